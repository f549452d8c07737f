package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seungjae8520/hjjtest/internal/format"
	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
	"github.com/seungjae8520/hjjtest/internal/services"
)

// CartHandlers exposes the visitor's cart.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs cart handlers.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/cart", h.getCart)
	r.Delete("/cart", h.clearCart)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{itemID}", h.updateQuantity)
	r.Delete("/cart/items/{itemID}", h.removeItem)
}

type addCartItemRequest struct {
	ID    string `json:"id" validate:"required,max=128"`
	Name  string `json:"name" validate:"required,max=200"`
	Price int64  `json:"price" validate:"gte=0"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemPayload struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Price             int64  `json:"price"`
	Quantity          int    `json:"quantity"`
	Subtotal          int64  `json:"subtotal"`
	FormattedSubtotal string `json:"formatted_subtotal"`
}

type cartPayload struct {
	Items          []cartItemPayload `json:"items"`
	ItemsCount     int               `json:"items_count"`
	Total          int64             `json:"total"`
	FormattedTotal string            `json:"formatted_total"`
	UpdatedAt      string            `json:"updated_at,omitempty"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ready(w, r)
	if !ok {
		return
	}
	summary, err := h.carts.GetCart(r.Context(), id)
	h.write(w, r, summary, err)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ready(w, r)
	if !ok {
		return
	}
	summary, err := h.carts.Clear(r.Context(), id)
	h.write(w, r, summary, err)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ready(w, r)
	if !ok {
		return
	}
	var req addCartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	summary, err := h.carts.AddItem(r.Context(), id, services.AddCartItemCommand{
		ID:    strings.TrimSpace(req.ID),
		Name:  strings.TrimSpace(req.Name),
		Price: req.Price,
	})
	h.write(w, r, summary, err)
}

func (h *CartHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ready(w, r)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	summary, err := h.carts.UpdateQuantity(r.Context(), id, chi.URLParam(r, "itemID"), req.Quantity)
	h.write(w, r, summary, err)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ready(w, r)
	if !ok {
		return
	}
	summary, err := h.carts.RemoveItem(r.Context(), id, chi.URLParam(r, "itemID"))
	h.write(w, r, summary, err)
}

func (h *CartHandlers) ready(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.carts == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	ident, ok := identity(w, r)
	return ident.VisitorID, ok
}

func (h *CartHandlers) write(w http.ResponseWriter, r *http.Request, summary services.CartSummary, err error) {
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	setCartResponseHeaders(w, summary)
	respond(r.Context(), w, http.StatusOK, map[string]any{"cart": buildCartPayload(summary)})
}

func setCartResponseHeaders(w http.ResponseWriter, summary services.CartSummary) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if !summary.Cart.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", summary.Cart.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	if etag := buildCartETag(summary); etag != "" {
		w.Header().Set("ETag", etag)
	}
}

func buildCartPayload(summary services.CartSummary) cartPayload {
	items := make([]cartItemPayload, 0, len(summary.Cart.Items))
	for _, item := range summary.Cart.Items {
		items = append(items, cartItemPayload{
			ID:                item.ID,
			Name:              item.Name,
			Price:             item.Price,
			Quantity:          item.Quantity,
			Subtotal:          item.Subtotal(),
			FormattedSubtotal: format.KRW(item.Subtotal()),
		})
	}
	payload := cartPayload{
		Items:          items,
		ItemsCount:     len(items),
		Total:          summary.Total,
		FormattedTotal: summary.FormattedTotal,
	}
	if !summary.Cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = summary.Cart.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func buildCartETag(summary services.CartSummary) string {
	cart := summary.Cart
	if strings.TrimSpace(cart.VisitorID) == "" || cart.UpdatedAt.IsZero() {
		return ""
	}
	input := fmt.Sprintf("%s:%d:%d", cart.VisitorID, cart.UpdatedAt.UTC().UnixNano(), len(cart.Items))
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf(`W/"%s"`, hex.EncodeToString(sum[:8]))
}
