package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seungjae8520/hjjtest/internal/orderform"
	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
	"github.com/seungjae8520/hjjtest/internal/services"
)

// OrderHandlers serve the order form of the current browser session.
type OrderHandlers struct {
	orders services.OrderService
	guard  func(http.Handler) http.Handler
}

// NewOrderHandlers constructs order handlers. guard wraps the submit route; it is
// normally the idempotency middleware.
func NewOrderHandlers(orders services.OrderService, guard func(http.Handler) http.Handler) *OrderHandlers {
	return &OrderHandlers{orders: orders, guard: guard}
}

// Routes wires the /order endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/order", h.load)
	r.Patch("/order/fields", h.setField)
	r.Put("/order/address", h.setAddress)
	r.Put("/order/agreements", h.setAgreement)
	r.Post("/order/agreements:toggle-all", h.toggleAll)

	submit := r
	if h.guard != nil {
		submit = r.With(h.guard)
	}
	submit.Post("/order:submit", h.submit)
}

type setFieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value" validate:"max=1000"`
}

type setAddressRequest struct {
	PostalCode string `json:"postal_code" validate:"required,max=10"`
	Address    string `json:"address" validate:"required,max=300"`
}

type setAgreementRequest struct {
	Name    string `json:"name" validate:"required"`
	Checked bool   `json:"checked"`
}

type toggleAllRequest struct {
	Checked bool `json:"checked"`
}

func (h *OrderHandlers) load(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	load, err := h.orders.Load(r.Context(), sid)
	if err != nil {
		writeServiceError(r.Context(), w, err, load.Redirect)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]any{"order_form": load.View})
}

func (h *OrderHandlers) setField(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	var req setFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	field := strings.TrimSpace(req.Field)
	value, err := h.orders.SetField(r.Context(), sid, field, req.Value)
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]any{"field": field, "value": value})
}

func (h *OrderHandlers) setAddress(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	var req setAddressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.orders.SetAddress(r.Context(), sid, strings.TrimSpace(req.PostalCode), strings.TrimSpace(req.Address))
	h.writeView(w, r, view, err)
}

func (h *OrderHandlers) setAgreement(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	var req setAgreementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.orders.SetAgreement(r.Context(), sid, strings.TrimSpace(req.Name), req.Checked)
	h.writeView(w, r, view, err)
}

func (h *OrderHandlers) toggleAll(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	var req toggleAllRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.orders.ToggleAll(r.Context(), sid, req.Checked)
	h.writeView(w, r, view, err)
}

func (h *OrderHandlers) submit(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	sub, err := h.orders.Submit(r.Context(), sid)
	if err != nil {
		writeServiceError(r.Context(), w, err, sub.Redirect)
		return
	}
	payload := map[string]any{
		"success":   sub.Result.Success,
		"order_id":  sub.Result.OrderID,
		"simulated": sub.Result.Simulated,
	}
	if sub.Result.Message != "" {
		payload["message"] = sub.Result.Message
	}
	if sub.Redirect != nil {
		payload["redirect"] = redirectPayload(sub.Redirect)
	}
	respond(r.Context(), w, http.StatusOK, payload)
}

func (h *OrderHandlers) writeView(w http.ResponseWriter, r *http.Request, view orderform.View, err error) {
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]any{"order_form": view})
}

func (h *OrderHandlers) ready(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.orders == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	ident, ok := identity(w, r)
	return ident.SessionID, ok
}
