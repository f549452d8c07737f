package services

import (
	"context"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/notify"
	"github.com/seungjae8520/hjjtest/internal/orderform"
	"github.com/seungjae8520/hjjtest/internal/selection"
)

// CartService manages the durable per-visitor cart. Every mutation is written through to
// the repository before it returns.
type CartService interface {
	GetCart(ctx context.Context, visitorID string) (CartSummary, error)
	AddItem(ctx context.Context, visitorID string, cmd AddCartItemCommand) (CartSummary, error)
	RemoveItem(ctx context.Context, visitorID, itemID string) (CartSummary, error)
	UpdateQuantity(ctx context.Context, visitorID, itemID string, quantity int) (CartSummary, error)
	Clear(ctx context.Context, visitorID string) (CartSummary, error)
}

// ProfileService manages the durable per-visitor profile.
type ProfileService interface {
	GetProfile(ctx context.Context, visitorID string) (domain.UserProfile, error)
	UpdateProfile(ctx context.Context, visitorID string, patch domain.ProfilePatch) (domain.UserProfile, error)
}

// SelectionService runs the product selection flow of a browser session.
type SelectionService interface {
	View(ctx context.Context, sessionID string) selection.View
	Apply(ctx context.Context, sessionID string, fn func(*selection.State) error) (selection.View, error)
	Proceed(ctx context.Context, sessionID string) (Handoff, error)
	SubmitRestaurant(ctx context.Context, sessionID string) (Handoff, error)
}

// OrderService runs the order form of a browser session and submits it.
type OrderService interface {
	Load(ctx context.Context, sessionID string) (OrderLoad, error)
	SetField(ctx context.Context, sessionID, name, value string) (string, error)
	SetAddress(ctx context.Context, sessionID, postalCode, address string) (orderform.View, error)
	SetAgreement(ctx context.Context, sessionID, name string, checked bool) (orderform.View, error)
	ToggleAll(ctx context.Context, sessionID string, checked bool) (orderform.View, error)
	Submit(ctx context.Context, sessionID string) (OrderSubmission, error)
}

// LeadService captures free-analysis requests.
type LeadService interface {
	Submit(ctx context.Context, lead domain.Lead) (LeadSubmission, error)
}

// IntakeClient posts to the intake endpoints. intake.Client satisfies it.
type IntakeClient interface {
	SubmitLead(ctx context.Context, lead domain.Lead) (domain.SubmitResult, error)
	SubmitOrder(ctx context.Context, payload domain.OrderPayload) (domain.SubmitResult, error)
}

// CartSummary is a cart with its derived totals.
type CartSummary struct {
	Cart           domain.Cart
	Total          int64
	FormattedTotal string
}

// AddCartItemCommand describes an item added to the cart.
type AddCartItemCommand struct {
	ID    string
	Name  string
	Price int64
}

// Handoff is the snapshot written when the selection flow hands over to the order form.
type Handoff struct {
	Order    domain.OrderData
	Redirect notify.Redirect
}

// OrderLoad is the order form as loaded for a session. Redirect is set when the visitor
// has to be sent elsewhere.
type OrderLoad struct {
	View     orderform.View
	Redirect *notify.Redirect
}

// OrderSubmission is the outcome of a submit.
type OrderSubmission struct {
	Result   domain.SubmitResult
	Redirect *notify.Redirect
}

// LeadSubmission is the outcome of a lead capture.
type LeadSubmission struct {
	Result domain.SubmitResult
}

// ValidationError names an input field and the message shown for it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return "validation: " + e.Field + ": " + e.Message
}
