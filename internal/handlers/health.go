package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// HealthCollector runs readiness probes. repositories.Health satisfies it.
type HealthCollector interface {
	Collect(ctx context.Context) domain.HealthReport
}

// HealthHandlers serves /healthz and /readyz.
type HealthHandlers struct {
	build     BuildInfo
	collector HealthCollector
	now       func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo sets the build metadata reported by both endpoints.
func WithHealthBuildInfo(info BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthCollector sets the readiness probes. Without one /readyz reports ok.
func WithHealthCollector(c HealthCollector) HealthOption {
	return func(h *HealthHandlers) {
		h.collector = c
	}
}

// WithHealthClock overrides the clock.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.now = clock
		}
	}
}

// NewHealthHandlers builds health handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.now()
	}
	return h
}

// Healthz reports liveness without touching dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	payload := h.basePayload()
	payload["status"] = domain.HealthStatusOK
	httpx.WriteJSON(w, http.StatusOK, payload)
}

// Readyz runs the dependency probes. Anything but ok answers 503.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	payload := h.basePayload()
	if h.collector == nil {
		payload["status"] = domain.HealthStatusOK
		payload["checks"] = map[string]domain.HealthCheck{}
		httpx.WriteJSON(w, http.StatusOK, payload)
		return
	}
	report := h.collector.Collect(r.Context())
	payload["status"] = report.Status
	payload["checks"] = report.Checks
	payload["generatedAt"] = report.GeneratedAt.UTC().Format(time.RFC3339)

	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, payload)
}

func (h *HealthHandlers) basePayload() map[string]any {
	now := h.now()
	payload := map[string]any{
		"uptime":    now.Sub(h.build.StartedAt).Round(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if h.build.Version != "" {
		payload["version"] = h.build.Version
	}
	if h.build.CommitSHA != "" {
		payload["commitSha"] = h.build.CommitSHA
	}
	if h.build.Environment != "" {
		payload["environment"] = h.build.Environment
	}
	return payload
}
