package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seungjae8520/hjjtest/internal/fieldcheck"
	"github.com/seungjae8520/hjjtest/internal/format"
	"github.com/seungjae8520/hjjtest/internal/quote"
)

// ToolHandlers expose the stateless helpers used by the site's forms: single-field
// validation and package quotes.
type ToolHandlers struct{}

// NewToolHandlers constructs tool handlers.
func NewToolHandlers() *ToolHandlers {
	return &ToolHandlers{}
}

// Routes wires /validate and /quotes.
func (h *ToolHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/validate", h.validate)
	r.Post("/quotes/package", h.quotePackage)
}

type validateRequest struct {
	Fields map[string]validateField `json:"fields" validate:"required,min=1,max=50,dive"`
}

type validateField struct {
	Value string           `json:"value" validate:"max=2000"`
	Rules fieldcheck.Rules `json:"rules"`
}

type quoteRequest struct {
	BasePrice int64          `json:"base_price"`
	Period    *int           `json:"period"`
	Quantity  *int           `json:"quantity"`
	Options   []quote.Option `json:"options" validate:"max=50"`
}

func (h *ToolHandlers) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	errs := fieldcheck.Errors{}
	for name, field := range req.Fields {
		errs.Validate(name, field.Value, field.Rules)
	}
	respond(r.Context(), w, http.StatusOK, map[string]any{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

// quotePackage prices a package. Options listed twice cancel out, like clicking an add-on twice.
func (h *ToolHandlers) quotePackage(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pkg := quote.New()
	pkg.SelectPackage(req.BasePrice)
	if req.Period != nil {
		pkg.Period = *req.Period
	}
	if req.Quantity != nil {
		pkg.Quantity = *req.Quantity
	}
	for _, opt := range req.Options {
		qty := opt.Quantity
		pkg.ToggleOption(opt)
		if qty > 0 {
			for i := range pkg.Options {
				if pkg.Options[i].ID == opt.ID {
					pkg.Options[i].Quantity = qty
				}
			}
		}
	}
	total, err := pkg.Total()
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	optionsPrice, err := pkg.OptionsPrice()
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]any{
		"base_price":      pkg.BasePrice,
		"period":          pkg.Period,
		"quantity":        pkg.Quantity,
		"options_price":   optionsPrice,
		"total":           total,
		"formatted_total": format.KRW(total),
	})
}
