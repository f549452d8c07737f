package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
	"github.com/seungjae8520/hjjtest/internal/selection"
	"github.com/seungjae8520/hjjtest/internal/services"
)

// SelectionHandlers drive the product selection flow of the current browser session.
type SelectionHandlers struct {
	selections services.SelectionService
}

// NewSelectionHandlers constructs selection handlers.
func NewSelectionHandlers(selections services.SelectionService) *SelectionHandlers {
	return &SelectionHandlers{selections: selections}
}

// Routes wires the /selection endpoints.
func (h *SelectionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/selection", func(sr chi.Router) {
		sr.Get("/", h.getSelection)
		sr.Put("/business-type", h.selectBusinessType)
		sr.Post("/step/next", h.nextStep)
		sr.Post("/step/previous", h.previousStep)
		sr.Post("/platforms/{platform}:toggle", h.togglePlatform)
		sr.Put("/main-keyword", h.setMainKeyword)
		sr.Post("/sub-keywords", h.addSubKeyword)
		sr.Delete("/sub-keywords/{index}", h.removeSubKeyword)
		sr.Post("/products/{itemID}:toggle", h.toggleGeneral(func(s *selection.State, id string, price int64) (bool, error) {
			return s.ToggleProduct(id, price)
		}))
		sr.Post("/options/{itemID}:toggle", h.toggleGeneral(func(s *selection.State, id string, price int64) (bool, error) {
			return s.ToggleOption(id, price)
		}))
		sr.Post("/virals/{itemID}:toggle", h.toggleGeneral(func(s *selection.State, id string, price int64) (bool, error) {
			return s.ToggleViral(id, price)
		}))
		sr.Post("/proceed", h.proceed)

		sr.Patch("/restaurant", h.updateRestaurant)
		sr.Post("/restaurant/counts/{metric}:adjust", h.adjustCount)
		sr.Post("/restaurant/products/{itemID}:toggle", h.toggleRestaurant(func(s *selection.State, id string) (bool, error) {
			return s.ToggleRestaurantProduct(id)
		}))
		sr.Post("/restaurant/options/{itemID}:toggle", h.toggleRestaurant(func(s *selection.State, id string) (bool, error) {
			return s.ToggleAdditionalOption(id)
		}))
		sr.Post("/restaurant/submit", h.submitRestaurant)
	})
}

type businessTypeRequest struct {
	BusinessType string `json:"business_type" validate:"required"`
}

type keywordRequest struct {
	Keyword string `json:"keyword" validate:"max=100"`
}

// Price is optional; zero keeps the catalog price.
type toggleRequest struct {
	Price int64 `json:"price" validate:"gte=0"`
}

type adjustRequest struct {
	Amount int `json:"amount" validate:"required"`
}

type restaurantRequest struct {
	Keyword      *string `json:"keyword" validate:"omitempty,max=100"`
	BusinessName *string `json:"business_name" validate:"omitempty,max=200"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
}

func (h *SelectionHandlers) getSelection(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]any{"selection": h.selections.View(r.Context(), sid)})
}

func (h *SelectionHandlers) selectBusinessType(w http.ResponseWriter, r *http.Request) {
	var req businessTypeRequest
	h.apply(w, r, &req, func(s *selection.State) (map[string]any, error) {
		return nil, s.SelectBusinessType(domain.BusinessType(strings.TrimSpace(req.BusinessType)))
	})
}

func (h *SelectionHandlers) nextStep(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, nil, func(s *selection.State) (map[string]any, error) {
		return nil, s.Advance()
	})
}

func (h *SelectionHandlers) previousStep(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, nil, func(s *selection.State) (map[string]any, error) {
		s.PreviousStep()
		return nil, nil
	})
}

func (h *SelectionHandlers) togglePlatform(w http.ResponseWriter, r *http.Request) {
	platform := domain.Platform(chi.URLParam(r, "platform"))
	h.apply(w, r, nil, func(s *selection.State) (map[string]any, error) {
		selected, err := s.TogglePlatform(platform)
		return map[string]any{"selected": selected}, err
	})
}

func (h *SelectionHandlers) setMainKeyword(w http.ResponseWriter, r *http.Request) {
	var req keywordRequest
	h.apply(w, r, &req, func(s *selection.State) (map[string]any, error) {
		s.SetMainKeyword(req.Keyword)
		return nil, nil
	})
}

func (h *SelectionHandlers) addSubKeyword(w http.ResponseWriter, r *http.Request) {
	var req keywordRequest
	h.apply(w, r, &req, func(s *selection.State) (map[string]any, error) {
		return map[string]any{"added": s.AddSubKeyword(req.Keyword)}, nil
	})
}

func (h *SelectionHandlers) removeSubKeyword(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "index must be an integer", http.StatusBadRequest))
		return
	}
	h.apply(w, r, nil, func(s *selection.State) (map[string]any, error) {
		return map[string]any{"removed": s.RemoveSubKeyword(index)}, nil
	})
}

func (h *SelectionHandlers) toggleGeneral(fn func(*selection.State, string, int64) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "itemID")
		var req toggleRequest
		var body any
		if r.ContentLength > 0 {
			body = &req
		}
		h.apply(w, r, body, func(s *selection.State) (map[string]any, error) {
			selected, err := fn(s, id, req.Price)
			return map[string]any{"selected": selected}, err
		})
	}
}

func (h *SelectionHandlers) toggleRestaurant(fn func(*selection.State, string) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "itemID")
		h.apply(w, r, nil, func(s *selection.State) (map[string]any, error) {
			selected, err := fn(s, id)
			return map[string]any{"selected": selected}, err
		})
	}
}

func (h *SelectionHandlers) adjustCount(w http.ResponseWriter, r *http.Request) {
	metric := chi.URLParam(r, "metric")
	var req adjustRequest
	h.apply(w, r, &req, func(s *selection.State) (map[string]any, error) {
		count, err := s.AdjustCount(metric, req.Amount)
		return map[string]any{"count": count}, err
	})
}

func (h *SelectionHandlers) updateRestaurant(w http.ResponseWriter, r *http.Request) {
	var req restaurantRequest
	h.apply(w, r, &req, func(s *selection.State) (map[string]any, error) {
		s.UpdateRestaurant(selection.RestaurantPatch{
			Keyword:      req.Keyword,
			BusinessName: req.BusinessName,
			Phone:        req.Phone,
		})
		return nil, nil
	})
}

func (h *SelectionHandlers) proceed(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	handoff, err := h.selections.Proceed(r.Context(), sid)
	h.writeHandoff(w, r, handoff, err)
}

func (h *SelectionHandlers) submitRestaurant(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	handoff, err := h.selections.SubmitRestaurant(r.Context(), sid)
	h.writeHandoff(w, r, handoff, err)
}

func (h *SelectionHandlers) writeHandoff(w http.ResponseWriter, r *http.Request, handoff services.Handoff, err error) {
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]any{
		"order":    handoff.Order,
		"redirect": redirectPayload(&handoff.Redirect),
	})
}

// apply decodes body (when non-nil), runs fn against the session's selection and answers
// with the resulting view plus whatever fn reports.
func (h *SelectionHandlers) apply(w http.ResponseWriter, r *http.Request, body any, fn func(*selection.State) (map[string]any, error)) {
	sid, ok := h.ready(w, r)
	if !ok {
		return
	}
	if body != nil && !decodeBody(w, r, body) {
		return
	}
	var extra map[string]any
	view, err := h.selections.Apply(r.Context(), sid, func(s *selection.State) error {
		var err error
		extra, err = fn(s)
		return err
	})
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	payload := map[string]any{"selection": view}
	for k, v := range extra {
		payload[k] = v
	}
	respond(r.Context(), w, http.StatusOK, payload)
}

func (h *SelectionHandlers) ready(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.selections == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("selection_service_unavailable", "selection service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	ident, ok := identity(w, r)
	return ident.SessionID, ok
}
