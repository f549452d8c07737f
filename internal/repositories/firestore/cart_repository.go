package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
	pfirestore "github.com/seungjae8520/hjjtest/internal/platform/firestore"
)

const cartCollection = "carts"

// CartRepository stores each visitor's cart as one document keyed by visitor ID.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
	now  func() time.Time
}

type cartDocument struct {
	Items      []cartItemDocument `firestore:"items"`
	ItemsCount int                `firestore:"itemsCount"`
	UpdatedAt  time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ID       string `firestore:"id"`
	Name     string `firestore:"name"`
	Price    int64  `firestore:"price"`
	Quantity int    `firestore:"quantity"`
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base: pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil),
		now:  time.Now,
	}, nil
}

// GetCart loads the visitor's cart.
func (r *CartRepository) GetCart(ctx context.Context, visitorID string) (domain.Cart, error) {
	id := strings.TrimSpace(visitorID)
	if id == "" {
		return domain.Cart{}, errors.New("cart repository: visitor id is required")
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}
	cart := domain.Cart{
		VisitorID: doc.ID,
		Items:     make([]domain.LineItem, 0, len(doc.Data.Items)),
		UpdatedAt: doc.Data.UpdatedAt,
	}
	if !doc.UpdateTime.IsZero() {
		cart.UpdatedAt = doc.UpdateTime
	}
	for _, item := range doc.Data.Items {
		cart.Items = append(cart.Items, domain.LineItem(item))
	}
	return cart, nil
}

// SaveCart replaces the stored cart.
func (r *CartRepository) SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	id := strings.TrimSpace(cart.VisitorID)
	if id == "" {
		return domain.Cart{}, errors.New("cart repository: visitor id is required")
	}
	doc := cartDocument{
		Items:      make([]cartItemDocument, 0, len(cart.Items)),
		ItemsCount: len(cart.Items),
		UpdatedAt:  r.now().UTC(),
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument(item))
	}
	updated, err := r.base.Set(ctx, id, doc)
	if err != nil {
		return domain.Cart{}, err
	}
	saved := cart.Clone()
	saved.VisitorID = id
	saved.UpdatedAt = updated
	return saved, nil
}
