package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
	"github.com/seungjae8520/hjjtest/internal/services"
)

// LeadHandlers capture free-analysis requests from the landing page.
type LeadHandlers struct {
	leads services.LeadService
	guard func(http.Handler) http.Handler
}

// NewLeadHandlers constructs lead handlers. guard wraps the capture route.
func NewLeadHandlers(leads services.LeadService, guard func(http.Handler) http.Handler) *LeadHandlers {
	return &LeadHandlers{leads: leads, guard: guard}
}

// Routes wires /leads.
func (h *LeadHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.guard != nil {
		r = r.With(h.guard)
	}
	r.Post("/leads", h.capture)
}

// Field checks happen in the service so the visitor sees the site's own messages.
type leadRequest struct {
	BusinessName string `json:"business_name" validate:"max=200"`
	Name         string `json:"name" validate:"max=100"`
	Phone        string `json:"phone" validate:"max=20"`
	Email        string `json:"email" validate:"max=254"`
	URL          string `json:"url" validate:"max=500"`
	Message      string `json:"message" validate:"max=2000"`
}

func (h *LeadHandlers) capture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.leads == nil {
		httpx.WriteError(ctx, w, httpx.NewError("lead_service_unavailable", "lead service is unavailable", http.StatusServiceUnavailable))
		return
	}
	var req leadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sub, err := h.leads.Submit(ctx, domain.Lead{
		BusinessName: req.BusinessName,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		URL:          req.URL,
		Message:      req.Message,
	})
	if err != nil {
		writeServiceError(ctx, w, err, nil)
		return
	}
	payload := map[string]any{
		"success":   sub.Result.Success,
		"simulated": sub.Result.Simulated,
	}
	if sub.Result.Message != "" {
		payload["message"] = sub.Result.Message
	}
	respond(ctx, w, http.StatusCreated, payload)
}
