package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	catalog   RouteRegistrar
	cart      RouteRegistrar
	profile   RouteRegistrar
	selection RouteRegistrar
	order     RouteRegistrar
	leads     RouteRegistrar
	tools     RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	defaultTimeout    = 30 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and the site's route groups.
// Groups without a registrar answer 501.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
			ToastMiddleware,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		mount := func(registrar RouteRegistrar, name string, paths ...string) {
			if registrar != nil {
				api.Group(func(group chi.Router) { registrar(group) })
				return
			}
			for _, p := range paths {
				registerNotImplementedRoute(api, p, name)
			}
		}

		mount(cfg.catalog, "catalog", "/catalog")
		mount(cfg.cart, "cart", "/cart", "/cart/*")
		mount(cfg.profile, "profile", "/profile")
		mount(cfg.selection, "selection", "/selection", "/selection/*")
		mount(cfg.order, "order", "/order", "/order/*", "/order:submit")
		mount(cfg.leads, "leads", "/leads")
		mount(cfg.tools, "tools", "/validate", "/quotes/*")
	})
	return r
}

func registerNotImplementedRoute(r chi.Router, path, name string) {
	r.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s endpoints are not configured", name), http.StatusNotImplemented))
	})
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithCatalogRoutes configures the registrar responsible for the catalog endpoint.
func WithCatalogRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.catalog = reg
	}
}

// WithCartRoutes configures the registrar responsible for cart endpoints.
func WithCartRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.cart = reg
	}
}

// WithProfileRoutes configures the registrar responsible for profile endpoints.
func WithProfileRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.profile = reg
	}
}

// WithSelectionRoutes configures the registrar responsible for the selection flow.
func WithSelectionRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.selection = reg
	}
}

// WithOrderRoutes configures the registrar responsible for order form endpoints.
func WithOrderRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.order = reg
	}
}

// WithLeadRoutes configures the registrar responsible for lead capture.
func WithLeadRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.leads = reg
	}
}

// WithToolRoutes configures the registrar for field validation and quotes.
func WithToolRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.tools = reg
	}
}
