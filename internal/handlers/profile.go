package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
	"github.com/seungjae8520/hjjtest/internal/services"
)

// ProfileHandlers exposes the visitor's saved business profile.
type ProfileHandlers struct {
	profiles services.ProfileService
}

// NewProfileHandlers constructs profile handlers.
func NewProfileHandlers(profiles services.ProfileService) *ProfileHandlers {
	return &ProfileHandlers{profiles: profiles}
}

// Routes wires /profile.
func (h *ProfileHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/profile", h.getProfile)
	r.Patch("/profile", h.patchProfile)
}

// Absent members leave the stored value untouched.
type patchProfileRequest struct {
	BusinessType *string `json:"business_type" validate:"omitempty,max=64"`
	Region       *string `json:"region" validate:"omitempty,max=64"`
	BusinessName *string `json:"business_name" validate:"omitempty,max=200"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
}

type profilePayload struct {
	BusinessType string `json:"business_type"`
	Region       string `json:"region"`
	BusinessName string `json:"business_name"`
	Phone        string `json:"phone"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func (h *ProfileHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ready(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.GetProfile(r.Context(), id)
	h.write(w, r, profile, err)
}

func (h *ProfileHandlers) patchProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ready(w, r)
	if !ok {
		return
	}
	var req patchProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	profile, err := h.profiles.UpdateProfile(r.Context(), id, domain.ProfilePatch{
		BusinessType: req.BusinessType,
		Region:       req.Region,
		BusinessName: req.BusinessName,
		Phone:        req.Phone,
	})
	h.write(w, r, profile, err)
}

func (h *ProfileHandlers) ready(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.profiles == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("profile_service_unavailable", "profile service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	ident, ok := identity(w, r)
	return ident.VisitorID, ok
}

func (h *ProfileHandlers) write(w http.ResponseWriter, r *http.Request, profile domain.UserProfile, err error) {
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	payload := profilePayload{
		BusinessType: profile.BusinessType,
		Region:       profile.Region,
		BusinessName: profile.BusinessName,
		Phone:        profile.Phone,
	}
	if !profile.UpdatedAt.IsZero() {
		payload.UpdatedAt = profile.UpdatedAt.UTC().Format(time.RFC3339)
	}
	respond(r.Context(), w, http.StatusOK, map[string]any{"profile": payload})
}
