package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
)

const defaultDependencyTimeout = 1500 * time.Millisecond

// DependencyCheck is a named readiness probe.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// HealthOption customises a Health checker.
type HealthOption func(*Health)

// WithDependencyTimeout overrides the timeout used when a check omits its own.
func WithDependencyTimeout(timeout time.Duration) HealthOption {
	return func(h *Health) {
		if timeout > 0 {
			h.defaultTimeout = timeout
		}
	}
}

// WithHealthClock injects a clock for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *Health) {
		if clock != nil {
			h.now = clock
		}
	}
}

// Health runs dependency probes concurrently.
type Health struct {
	checks         []DependencyCheck
	defaultTimeout time.Duration
	now            func() time.Time
}

// NewHealth validates the checks and returns a Health checker.
func NewHealth(checks []DependencyCheck, opts ...HealthOption) (*Health, error) {
	if len(checks) == 0 {
		return nil, errors.New("health: at least one dependency check is required")
	}
	for _, c := range checks {
		if strings.TrimSpace(c.Name) == "" || c.Check == nil {
			return nil, errors.New("health: dependency check requires a name and a function")
		}
	}
	h := &Health{
		checks:         append([]DependencyCheck(nil), checks...),
		defaultTimeout: defaultDependencyTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Collect runs every probe and reports the worst status.
func (h *Health) Collect(ctx context.Context) domain.HealthReport {
	results := make(map[string]domain.HealthCheck, len(h.checks))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, check := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := h.run(ctx, check)
			mu.Lock()
			results[check.Name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := domain.HealthStatusOK
	for _, r := range results {
		switch r.Status {
		case domain.HealthStatusError:
			status = domain.HealthStatusError
		case domain.HealthStatusDegraded:
			if status == domain.HealthStatusOK {
				status = domain.HealthStatusDegraded
			}
		}
	}
	return domain.HealthReport{Status: status, Checks: results, GeneratedAt: h.now()}
}

func (h *Health) run(ctx context.Context, check DependencyCheck) domain.HealthCheck {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = h.defaultTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := h.now()
	err := check.Check(checkCtx)
	end := h.now()

	result := domain.HealthCheck{Status: domain.HealthStatusOK, Detail: "ok", CheckedAt: end}
	result.Latency = end.Sub(start)
	result.LatencyMS = result.Latency.Milliseconds()
	switch {
	case err == nil && checkCtx.Err() == nil:
	case err == nil:
		result.Status, result.Detail = domain.HealthStatusError, checkCtx.Err().Error()
	case errors.Is(err, context.Canceled):
		result.Status, result.Detail = domain.HealthStatusError, "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		result.Status, result.Detail = domain.HealthStatusError, "timeout"
	default:
		result.Status, result.Detail = domain.HealthStatusDegraded, err.Error()
	}
	return result
}
