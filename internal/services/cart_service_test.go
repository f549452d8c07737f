package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/repositories"
	"github.com/seungjae8520/hjjtest/internal/repositories/memory"
)

var testNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func strPtr(v string) *string {
	return &v
}

type stubCartRepository struct {
	getFunc  func(ctx context.Context, visitorID string) (domain.Cart, error)
	saveFunc func(ctx context.Context, cart domain.Cart) (domain.Cart, error)
}

func (s *stubCartRepository) GetCart(ctx context.Context, visitorID string) (domain.Cart, error) {
	return s.getFunc(ctx, visitorID)
}

func (s *stubCartRepository) SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	return s.saveFunc(ctx, cart)
}

func newTestCartService(t *testing.T, repo repositories.CartRepository) CartService {
	t.Helper()
	svc, err := NewCartService(CartServiceDeps{Repository: repo, Clock: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func TestCartServiceAddItemIncrementsExisting(t *testing.T) {
	reg := memory.New()
	svc := newTestCartService(t, reg.Carts())
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "v1", AddCartItemCommand{ID: "standard", Name: "스탠다드", Price: 490000}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	summary, err := svc.AddItem(ctx, "v1", AddCartItemCommand{ID: "standard", Name: "스탠다드", Price: 490000})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(summary.Cart.Items) != 1 || summary.Cart.Items[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", summary.Cart.Items)
	}
	if summary.Total != 980000 || summary.FormattedTotal != "₩980,000" {
		t.Fatalf("unexpected totals %d %s", summary.Total, summary.FormattedTotal)
	}

	stored, err := reg.GetCart(ctx, "v1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if stored.Items[0].Quantity != 2 {
		t.Fatalf("mutation not persisted: %+v", stored.Items)
	}
}

func TestCartServiceUpdateQuantityClampsToOne(t *testing.T) {
	reg := memory.New()
	svc := newTestCartService(t, reg.Carts())
	ctx := context.Background()
	_, _ = svc.AddItem(ctx, "v1", AddCartItemCommand{ID: "test", Name: "반영테스트", Price: 99000})

	for _, q := range []int{0, -3} {
		summary, err := svc.UpdateQuantity(ctx, "v1", "test", q)
		if err != nil {
			t.Fatalf("UpdateQuantity(%d): %v", q, err)
		}
		if summary.Cart.Items[0].Quantity != 1 {
			t.Fatalf("quantity must not drop below 1, got %d", summary.Cart.Items[0].Quantity)
		}
	}
	summary, _ := svc.UpdateQuantity(ctx, "v1", "test", 4)
	if summary.Total != 396000 {
		t.Fatalf("unexpected total %d", summary.Total)
	}
	if _, err := svc.UpdateQuantity(ctx, "v1", "missing", 2); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
}

func TestCartServiceRemoveAndClear(t *testing.T) {
	reg := memory.New()
	svc := newTestCartService(t, reg.Carts())
	ctx := context.Background()
	_, _ = svc.AddItem(ctx, "v1", AddCartItemCommand{ID: "a", Name: "A", Price: 1000})
	_, _ = svc.AddItem(ctx, "v1", AddCartItemCommand{ID: "b", Name: "B", Price: 2000})

	summary, err := svc.RemoveItem(ctx, "v1", "a")
	if err != nil || len(summary.Cart.Items) != 1 || summary.Cart.Items[0].ID != "b" {
		t.Fatalf("RemoveItem = %+v, %v", summary.Cart.Items, err)
	}
	summary, err = svc.Clear(ctx, "v1")
	if err != nil || len(summary.Cart.Items) != 0 || summary.Total != 0 {
		t.Fatalf("Clear = %+v, %v", summary, err)
	}
	if summary.FormattedTotal != "₩0" {
		t.Fatalf("unexpected formatted total %q", summary.FormattedTotal)
	}
}

func TestCartServiceGetCartEmptyForNewVisitor(t *testing.T) {
	svc := newTestCartService(t, memory.New().Carts())
	summary, err := svc.GetCart(context.Background(), "new")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if summary.Cart.Items == nil || len(summary.Cart.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", summary.Cart.Items)
	}
}

func TestCartServiceValidatesInput(t *testing.T) {
	svc := newTestCartService(t, memory.New().Carts())
	ctx := context.Background()
	cases := []struct {
		visitor string
		cmd     AddCartItemCommand
	}{
		{" ", AddCartItemCommand{ID: "a", Name: "A", Price: 1}},
		{"v1", AddCartItemCommand{ID: "", Name: "A", Price: 1}},
		{"v1", AddCartItemCommand{ID: "a", Name: "A", Price: -1}},
	}
	for _, tc := range cases {
		if _, err := svc.AddItem(ctx, tc.visitor, tc.cmd); !errors.Is(err, ErrCartInvalidInput) {
			t.Fatalf("AddItem(%q, %+v): expected ErrCartInvalidInput, got %v", tc.visitor, tc.cmd, err)
		}
	}
}

func TestCartServiceTranslatesRepositoryErrors(t *testing.T) {
	repo := &stubCartRepository{
		getFunc: func(context.Context, string) (domain.Cart, error) {
			return domain.Cart{}, nil
		},
		saveFunc: func(context.Context, domain.Cart) (domain.Cart, error) {
			return domain.Cart{}, repositories.NewUnavailable("carts.save", errors.New("deadline"))
		},
	}
	svc := newTestCartService(t, repo)
	_, err := svc.AddItem(context.Background(), "v1", AddCartItemCommand{ID: "a", Name: "A", Price: 1})
	if !errors.Is(err, ErrCartUnavailable) {
		t.Fatalf("expected ErrCartUnavailable, got %v", err)
	}
}

func TestNewCartServiceRequiresDeps(t *testing.T) {
	if _, err := NewCartService(CartServiceDeps{Clock: time.Now}); err == nil {
		t.Fatal("expected repository error")
	}
	if _, err := NewCartService(CartServiceDeps{Repository: memory.New()}); err == nil {
		t.Fatal("expected clock error")
	}
}

func TestProfileServiceMergesPatch(t *testing.T) {
	reg := memory.New()
	svc, err := NewProfileService(ProfileServiceDeps{Repository: reg.Profiles(), Clock: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("NewProfileService: %v", err)
	}
	ctx := context.Background()

	if _, err := svc.UpdateProfile(ctx, "v1", domain.ProfilePatch{BusinessName: strPtr("내가올려 식당"), Region: strPtr("서울")}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	profile, err := svc.UpdateProfile(ctx, "v1", domain.ProfilePatch{Phone: strPtr("01012345678")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if profile.BusinessName != "내가올려 식당" || profile.Region != "서울" || profile.Phone != "010-1234-5678" {
		t.Fatalf("unexpected merged profile %+v", profile)
	}

	stored, err := reg.GetProfile(ctx, "v1")
	if err != nil || stored.Phone != "010-1234-5678" {
		t.Fatalf("profile not persisted: %+v %v", stored, err)
	}

	var verr *ValidationError
	if _, err := svc.UpdateProfile(ctx, "v1", domain.ProfilePatch{Phone: strPtr("02-123-4567")}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got, _ := svc.GetProfile(ctx, "nobody"); got != (domain.UserProfile{}) {
		t.Fatalf("expected empty profile, got %+v", got)
	}
}

// slowProfileRepository widens the gap between reading and writing a profile.
type slowProfileRepository struct {
	repositories.ProfileRepository
}

func (r slowProfileRepository) GetProfile(ctx context.Context, visitorID string) (domain.UserProfile, error) {
	profile, err := r.ProfileRepository.GetProfile(ctx, visitorID)
	time.Sleep(time.Millisecond)
	return profile, err
}

func TestProfileServiceConcurrentPatchesKeepBothFields(t *testing.T) {
	reg := memory.New()
	svc, err := NewProfileService(ProfileServiceDeps{
		Repository: slowProfileRepository{reg.Profiles()},
		Clock:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewProfileService: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		vid := fmt.Sprintf("v%d", i)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := svc.UpdateProfile(ctx, vid, domain.ProfilePatch{BusinessName: strPtr("내가올려 식당")}); err != nil {
				t.Errorf("UpdateProfile: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := svc.UpdateProfile(ctx, vid, domain.ProfilePatch{Region: strPtr("서울")}); err != nil {
				t.Errorf("UpdateProfile: %v", err)
			}
		}()
		wg.Wait()

		stored, err := reg.GetProfile(ctx, vid)
		if err != nil {
			t.Fatalf("GetProfile: %v", err)
		}
		if stored.BusinessName != "내가올려 식당" || stored.Region != "서울" {
			t.Fatalf("lost update for %s: %+v", vid, stored)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	for in, want := range map[string]bool{
		"010-1234-5678": true,
		"01012345678":   true,
		"011-123-4567":  true,
		"02-1234-5678":  false,
		"010-12-5678":   false,
	} {
		if got := ValidatePhone(in); got != want {
			t.Errorf("ValidatePhone(%q) = %v, want %v", in, got, want)
		}
	}
}
