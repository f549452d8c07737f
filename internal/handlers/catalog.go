package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seungjae8520/hjjtest/internal/catalog"
	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
)

// CatalogHandlers serves the price list.
type CatalogHandlers struct {
	catalog *catalog.Catalog
}

// NewCatalogHandlers constructs catalog handlers. A nil catalog falls back to the embedded one.
func NewCatalogHandlers(c *catalog.Catalog) *CatalogHandlers {
	if c == nil {
		c = catalog.Default()
	}
	return &CatalogHandlers{catalog: c}
}

// Routes wires /catalog.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/catalog", h.getCatalog)
}

func (h *CatalogHandlers) getCatalog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"catalog": h.catalog})
}
