package checkout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/silkloom/store/internal/domain"
	"github.com/silkloom/store/internal/gateway"
	"github.com/silkloom/store/internal/otp"
	"github.com/silkloom/store/internal/repository"
)

type mockCarts struct {
	mu         sync.Mutex
	carts      map[string]*domain.Cart
	getErr     error
	clearErr   error
	clearCalls int
}

func newMockCarts() *mockCarts {
	return &mockCarts{carts: make(map[string]*domain.Cart)}
}

func (m *mockCarts) GetCart(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if cart, ok := m.carts[sessionID]; ok {
		return cart, nil
	}
	return &domain.Cart{SessionID: sessionID}, nil
}

func (m *mockCarts) ClearCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	if m.clearErr != nil {
		return m.clearErr
	}
	delete(m.carts, sessionID)
	return nil
}

func (m *mockCarts) set(cart *domain.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.SessionID] = cart
}

type memoryPendingStore struct {
	mu      sync.Mutex
	actions map[string]*domain.PendingAction
	putErr  error
}

func newMemoryPendingStore() *memoryPendingStore {
	return &memoryPendingStore{actions: make(map[string]*domain.PendingAction)}
}

func pendingKey(sessionID string, kind domain.ActionKind) string {
	return string(kind) + ":" + sessionID
}

func (m *memoryPendingStore) Put(_ context.Context, sessionID string, action *domain.PendingAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.actions[pendingKey(sessionID, action.Kind)] = action
	return nil
}

func (m *memoryPendingStore) Get(_ context.Context, sessionID string, kind domain.ActionKind) (*domain.PendingAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	action, ok := m.actions[pendingKey(sessionID, kind)]
	if !ok {
		return nil, otp.ErrNoPendingAction
	}
	return action, nil
}

func (m *memoryPendingStore) Delete(_ context.Context, sessionID string, kind domain.ActionKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.actions, pendingKey(sessionID, kind))
	return nil
}

type nopMailer struct{}

func (nopMailer) SendVerificationCode(_, _ string) error { return nil }

type mockStore struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*domain.Order
	byKey     map[uuid.UUID]*domain.Order
	createErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		byID:  make(map[uuid.UUID]*domain.Order),
		byKey: make(map[uuid.UUID]*domain.Order),
	}
}

func (m *mockStore) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byKey[order.IdempotencyKey]; ok {
		return repository.ErrDuplicateOrder
	}
	m.byID[order.ID] = order
	m.byKey[order.IdempotencyKey] = order
	return nil
}

func (m *mockStore) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockStore) GetOrderByIdempotencyKey(_ context.Context, key uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.byKey[key]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockStore) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []*domain.Order
	for _, order := range m.byID {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *mockStore) GetUnprocessedEvents(_ context.Context, _ int) ([]*repository.OutboxEvent, error) {
	return nil, nil
}

func (m *mockStore) MarkEventAsProcessed(_ context.Context, _ int64) error { return nil }

func (m *mockStore) Close() error { return nil }

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type mockGateway struct {
	mu        sync.Mutex
	method    domain.PaymentMethod
	handle    *gateway.IntentHandle
	createErr error
	verifyErr error
	lastReq   gateway.IntentRequest
	lastProof gateway.Proof
}

func (m *mockGateway) Method() domain.PaymentMethod { return m.method }

func (m *mockGateway) CreateIntent(_ context.Context, req gateway.IntentRequest) (*gateway.IntentHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	handle := *m.handle
	handle.Amount = req.Amount
	return &handle, nil
}

func (m *mockGateway) VerifyCompletion(_ context.Context, _ *gateway.IntentHandle, proof gateway.Proof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastProof = proof
	return m.verifyErr
}
