package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/seungjae8520/hjjtest/internal/catalog"
	"github.com/seungjae8520/hjjtest/internal/orderform"
	"github.com/seungjae8520/hjjtest/internal/selection"
)

const defaultWorkspaceTTL = 2 * time.Hour

// Workspace is the page state of one browser session. Selection is guarded by the
// workspace lock; Form carries its own.
type Workspace struct {
	mu        sync.Mutex
	selection *selection.State
	Form      *orderform.Form
	touched   time.Time
}

// Workspaces hands out one Workspace per session and forgets idle ones.
type Workspaces struct {
	mu      sync.Mutex
	entries map[string]*Workspace
	catalog *catalog.Catalog
	ttl     time.Duration
	now     func() time.Time
}

// NewWorkspaces returns an empty set. A zero ttl uses two hours.
func NewWorkspaces(c *catalog.Catalog, ttl time.Duration, clock func() time.Time) *Workspaces {
	if c == nil {
		c = catalog.Default()
	}
	if ttl <= 0 {
		ttl = defaultWorkspaceTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Workspaces{entries: make(map[string]*Workspace), catalog: c, ttl: ttl, now: clock}
}

// Get returns the workspace for sessionID, creating it on first use.
func (w *Workspaces) Get(sessionID string) *Workspace {
	id := strings.TrimSpace(sessionID)
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.entries[id]
	if !ok {
		ws = &Workspace{selection: selection.New(w.catalog), Form: orderform.New()}
		w.entries[id] = ws
	}
	ws.touched = w.now()
	return ws
}

// WithSelection runs fn while holding the workspace lock.
func (ws *Workspace) WithSelection(fn func(*selection.State) error) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return fn(ws.selection)
}

// Len reports the number of live workspaces.
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Sweep drops workspaces idle for longer than the TTL and reports how many went.
func (w *Workspaces) Sweep() int {
	cutoff := w.now().Add(-w.ttl)
	w.mu.Lock()
	defer w.mu.Unlock()
	removed := 0
	for id, ws := range w.entries {
		if ws.touched.Before(cutoff) {
			delete(w.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (w *Workspaces) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = w.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}
