package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/silkloom/store/internal/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "../../migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:             uuid.New(),
		IdempotencyKey: uuid.New(),
		UserID:         "user-1",
		TotalAmount:    decimal.RequireFromString("4949.10"),
		Currency:       "INR",
		PaymentMethod:  domain.PaymentMethodCOD,
		Status:         domain.OrderStatusPlaced,
		Items: []domain.OrderItem{
			{ProductName: "Crimson Velvet", UnitPrice: decimal.NewFromInt(5499), Quantity: 1, ImageRef: "/static/images/product1.png"},
		},
	}
}

func TestCreateOrder_AndGetByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := sampleOrder()
	require.NoError(t, repo.CreateOrder(ctx, order))

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UserID, got.UserID)
	assert.Equal(t, domain.OrderStatusPlaced, got.Status)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("4949.1")))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Crimson Velvet", got.Items[0].ProductName)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(5499)))
}

func TestCreateOrder_DuplicateIdempotencyKey(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := sampleOrder()
	require.NoError(t, repo.CreateOrder(ctx, order))

	dup := sampleOrder()
	dup.ID = uuid.New()
	dup.IdempotencyKey = order.IdempotencyKey
	err := repo.CreateOrder(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	existing, err := repo.GetOrderByIdempotencyKey(ctx, order.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, order.ID, existing.ID)

	// Exactly one order row for the key's owner.
	orders, err := repo.ListOrdersByUserID(ctx, order.UserID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOutboxLifecycle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := sampleOrder()
	require.NoError(t, repo.CreateOrder(ctx, order))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].OrderID)
	assert.NotEmpty(t, events[0].Payload)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestListOrdersByUserID_Ordering(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	first := sampleOrder()
	require.NoError(t, repo.CreateOrder(ctx, first))

	second := sampleOrder()
	require.NoError(t, repo.CreateOrder(ctx, second))

	orders, err := repo.ListOrdersByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
}
