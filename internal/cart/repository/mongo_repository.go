package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/silkloom/store/internal/domain"
)

// cartDoc is the stored shape of a cart. Prices are kept as strings so
// the decimal value survives BSON round-trips without float drift.
type cartDoc struct {
	ID        string    `bson:"_id"`
	Lines     []lineDoc `bson:"lines"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type lineDoc struct {
	ItemKey     string    `bson:"item_key"`
	DisplayName string    `bson:"display_name"`
	UnitPrice   string    `bson:"unit_price"`
	ImageRef    string    `bson:"image_ref"`
	Quantity    int       `bson:"quantity"`
	AddedAt     time.Time `bson:"added_at"`
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{collection: db.Collection("carts")}
}

func (m *mongoRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var doc cartDoc

	err := m.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return docToCart(&doc)
}

func (m *mongoRepository) AddLine(ctx context.Context, sessionID string, line domain.CartLine) error {
	now := time.Now()
	line.AddedAt = now
	if line.Quantity < 1 {
		line.Quantity = 1
	}

	filter := bson.M{"_id": sessionID}

	var existing cartDoc
	err := m.collection.FindOne(ctx, filter).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			doc := cartDoc{
				ID:        sessionID,
				Lines:     []lineDoc{lineToDoc(line)},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err := m.collection.InsertOne(ctx, doc); err != nil {
				return fmt.Errorf("failed to create cart with line: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing cart: %w", err)
	}

	lineExists := false
	for _, l := range existing.Lines {
		if l.ItemKey == line.ItemKey {
			lineExists = true
			break
		}
	}

	if lineExists {
		// Only the quantity moves. Price, name and image stay as first
		// written.
		update := bson.M{
			"$inc": bson.M{"lines.$[elem].quantity": 1},
			"$set": bson.M{"updated_at": now},
		}
		arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"elem.item_key": line.ItemKey},
			},
		})

		if _, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters); err != nil {
			return fmt.Errorf("failed to increment existing line: %w", err)
		}
		return nil
	}

	update := bson.M{
		"$push": bson.M{"lines": lineToDoc(line)},
		"$set":  bson.M{"updated_at": now},
	}
	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to add new line: %w", err)
	}
	return nil
}

func (m *mongoRepository) RemoveLine(ctx context.Context, sessionID, itemKey string) error {
	filter := bson.M{"_id": sessionID, "lines.item_key": itemKey}
	update := bson.M{
		"$pull": bson.M{"lines": bson.M{"item_key": itemKey}},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove line: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, sessionID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func lineToDoc(line domain.CartLine) lineDoc {
	return lineDoc{
		ItemKey:     line.ItemKey,
		DisplayName: line.DisplayName,
		UnitPrice:   line.UnitPrice.String(),
		ImageRef:    line.ImageRef,
		Quantity:    line.Quantity,
		AddedAt:     line.AddedAt,
	}
}

func docToCart(doc *cartDoc) (*domain.Cart, error) {
	cart := &domain.Cart{
		SessionID: doc.ID,
		Lines:     make([]domain.CartLine, 0, len(doc.Lines)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, l := range doc.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("stored price %q is not a decimal: %w", l.UnitPrice, err)
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ItemKey:     l.ItemKey,
			DisplayName: l.DisplayName,
			UnitPrice:   price,
			ImageRef:    l.ImageRef,
			Quantity:    l.Quantity,
			AddedAt:     l.AddedAt,
		})
	}
	return cart, nil
}
