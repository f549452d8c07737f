package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/format"
	"github.com/seungjae8520/hjjtest/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

var (
	// ErrCartInvalidInput indicates the caller supplied invalid input.
	ErrCartInvalidInput = errors.New("cart service: invalid input")
	// ErrCartUnavailable indicates the repository failed.
	ErrCartUnavailable = errors.New("cart service: unavailable")
	// ErrCartItemNotFound indicates the item is not in the cart.
	ErrCartItemNotFound = errors.New("cart service: item not found")
)

// CartServiceDeps wires the repository for cart operations.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type cartService struct {
	repo   repositories.CartRepository
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
	locks  visitorLocks
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		repo:   deps.Repository,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
	}, nil
}

func (s *cartService) GetCart(ctx context.Context, visitorID string) (CartSummary, error) {
	vid, err := requireVisitor(ErrCartInvalidInput, visitorID)
	if err != nil {
		return CartSummary{}, err
	}
	cart, err := s.load(ctx, vid)
	if err != nil {
		return CartSummary{}, err
	}
	return summarize(cart), nil
}

// AddItem increments the quantity of an existing line or appends a new one with quantity 1.
func (s *cartService) AddItem(ctx context.Context, visitorID string, cmd AddCartItemCommand) (CartSummary, error) {
	id := strings.TrimSpace(cmd.ID)
	name := strings.TrimSpace(cmd.Name)
	if id == "" || name == "" || cmd.Price < 0 {
		return CartSummary{}, fmt.Errorf("%w: id, name and a non-negative price are required", ErrCartInvalidInput)
	}
	return s.mutate(ctx, visitorID, "cart.item.added", func(cart *domain.Cart) error {
		if i := indexOf(cart.Items, id); i >= 0 {
			cart.Items[i].Quantity++
			return nil
		}
		cart.Items = append(cart.Items, domain.LineItem{ID: id, Name: name, Price: cmd.Price, Quantity: 1})
		return nil
	})
}

func (s *cartService) RemoveItem(ctx context.Context, visitorID, itemID string) (CartSummary, error) {
	id := strings.TrimSpace(itemID)
	return s.mutate(ctx, visitorID, "cart.item.removed", func(cart *domain.Cart) error {
		cart.Items = slices.DeleteFunc(cart.Items, func(item domain.LineItem) bool { return item.ID == id })
		return nil
	})
}

// UpdateQuantity sets max(1, quantity) on an existing line.
func (s *cartService) UpdateQuantity(ctx context.Context, visitorID, itemID string, quantity int) (CartSummary, error) {
	id := strings.TrimSpace(itemID)
	return s.mutate(ctx, visitorID, "cart.item.quantity_updated", func(cart *domain.Cart) error {
		i := indexOf(cart.Items, id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrCartItemNotFound, id)
		}
		cart.Items[i].Quantity = max(1, quantity)
		return nil
	})
}

func (s *cartService) Clear(ctx context.Context, visitorID string) (CartSummary, error) {
	return s.mutate(ctx, visitorID, "cart.cleared", func(cart *domain.Cart) error {
		cart.Items = nil
		return nil
	})
}

func (s *cartService) mutate(ctx context.Context, visitorID, event string, fn func(*domain.Cart) error) (CartSummary, error) {
	vid, err := requireVisitor(ErrCartInvalidInput, visitorID)
	if err != nil {
		return CartSummary{}, err
	}
	lock := s.locks.forVisitor(vid)
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.load(ctx, vid)
	if err != nil {
		return CartSummary{}, err
	}
	if err := fn(&cart); err != nil {
		return CartSummary{}, err
	}
	cart.UpdatedAt = s.now()
	saved, err := s.repo.SaveCart(ctx, cart)
	if err != nil {
		s.logger(ctx, "cart.save.failed", map[string]any{"visitorId": vid, "error": err.Error()})
		return CartSummary{}, translateRepoError(ErrCartUnavailable, err)
	}
	s.logger(ctx, event, map[string]any{"visitorId": vid, "items": len(saved.Items)})
	return summarize(saved), nil
}

func (s *cartService) load(ctx context.Context, visitorID string) (domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, visitorID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{VisitorID: visitorID}, nil
		}
		return domain.Cart{}, translateRepoError(ErrCartUnavailable, err)
	}
	cart.VisitorID = visitorID
	return cart, nil
}

func summarize(cart domain.Cart) CartSummary {
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}
	total := cart.Total()
	return CartSummary{Cart: cart, Total: total, FormattedTotal: format.KRW(total)}
}

func indexOf(items []domain.LineItem, id string) int {
	return slices.IndexFunc(items, func(item domain.LineItem) bool { return item.ID == id })
}

func requireVisitor(sentinel error, visitorID string) (string, error) {
	vid := strings.TrimSpace(visitorID)
	if vid == "" {
		return "", fmt.Errorf("%w: visitor id is required", sentinel)
	}
	return vid, nil
}

// translateRepoError maps repository failures onto the service's unavailable sentinel.
func translateRepoError(sentinel, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
