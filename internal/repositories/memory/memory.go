// Package memory is the in-process storage driver. Records live for the life of the process.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/repositories"
)

// Registry holds every in-memory repository.
type Registry struct {
	mu        sync.RWMutex
	carts     map[string]domain.Cart
	profiles  map[string]domain.UserProfile
	snapshots map[string][]byte
	now       func() time.Time
}

var (
	_ repositories.Registry           = (*Registry)(nil)
	_ repositories.CartRepository     = (*Registry)(nil)
	_ repositories.ProfileRepository  = (*Registry)(nil)
	_ repositories.SnapshotRepository = (*Registry)(nil)
)

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		carts:     make(map[string]domain.Cart),
		profiles:  make(map[string]domain.UserProfile),
		snapshots: make(map[string][]byte),
		now:       time.Now,
	}
}

func (r *Registry) Carts() repositories.CartRepository         { return r }
func (r *Registry) Profiles() repositories.ProfileRepository   { return r }
func (r *Registry) Snapshots() repositories.SnapshotRepository { return r }

// Ping always succeeds.
func (r *Registry) Ping(context.Context) error { return nil }

// Close drops every record.
func (r *Registry) Close(context.Context) error {
	r.mu.Lock()
	clear(r.carts)
	clear(r.profiles)
	clear(r.snapshots)
	r.mu.Unlock()
	return nil
}

func (r *Registry) GetCart(_ context.Context, visitorID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cart, ok := r.carts[strings.TrimSpace(visitorID)]
	if !ok {
		return domain.Cart{}, repositories.NewNotFound("carts.get", visitorID)
	}
	return cart.Clone(), nil
}

func (r *Registry) SaveCart(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	id := strings.TrimSpace(cart.VisitorID)
	if id == "" {
		return domain.Cart{}, &repositories.StoreError{Op: "carts.save", Err: errEmptyKey}
	}
	saved := cart.Clone()
	saved.VisitorID = id
	saved.UpdatedAt = r.now().UTC()
	r.mu.Lock()
	r.carts[id] = saved
	r.mu.Unlock()
	return saved.Clone(), nil
}

func (r *Registry) GetProfile(_ context.Context, visitorID string) (domain.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[strings.TrimSpace(visitorID)]
	if !ok {
		return domain.UserProfile{}, repositories.NewNotFound("profiles.get", visitorID)
	}
	return profile, nil
}

func (r *Registry) SaveProfile(_ context.Context, visitorID string, profile domain.UserProfile) (domain.UserProfile, error) {
	id := strings.TrimSpace(visitorID)
	if id == "" {
		return domain.UserProfile{}, &repositories.StoreError{Op: "profiles.save", Err: errEmptyKey}
	}
	profile.UpdatedAt = r.now().UTC()
	r.mu.Lock()
	r.profiles[id] = profile
	r.mu.Unlock()
	return profile, nil
}

func (r *Registry) GetSnapshot(_ context.Context, sessionID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.snapshots[strings.TrimSpace(sessionID)]
	if !ok {
		return nil, repositories.NewNotFound("snapshots.get", sessionID)
	}
	return append([]byte(nil), raw...), nil
}

func (r *Registry) PutSnapshot(_ context.Context, sessionID string, raw []byte) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return &repositories.StoreError{Op: "snapshots.put", Err: errEmptyKey}
	}
	r.mu.Lock()
	r.snapshots[id] = append([]byte(nil), raw...)
	r.mu.Unlock()
	return nil
}

// DeleteSnapshot is a no-op for unknown sessions.
func (r *Registry) DeleteSnapshot(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.snapshots, strings.TrimSpace(sessionID))
	r.mu.Unlock()
	return nil
}
