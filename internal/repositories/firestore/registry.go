// Package firestore implements the repositories on Cloud Firestore.
package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/seungjae8520/hjjtest/internal/platform/firestore"
	"github.com/seungjae8520/hjjtest/internal/repositories"
)

// Registry bundles the Firestore repositories around one provider.
type Registry struct {
	provider  *pfirestore.Provider
	carts     *CartRepository
	profiles  *ProfileRepository
	snapshots *SnapshotRepository
}

var (
	_ repositories.Registry           = (*Registry)(nil)
	_ repositories.CartRepository     = (*CartRepository)(nil)
	_ repositories.ProfileRepository  = (*ProfileRepository)(nil)
	_ repositories.SnapshotRepository = (*SnapshotRepository)(nil)
	_ repositories.RepositoryError    = (*pfirestore.Error)(nil)
)

// NewRegistry wires every repository to provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	profiles, err := NewProfileRepository(provider)
	if err != nil {
		return nil, err
	}
	snapshots, err := NewSnapshotRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{provider: provider, carts: carts, profiles: profiles, snapshots: snapshots}, nil
}

func (r *Registry) Carts() repositories.CartRepository         { return r.carts }
func (r *Registry) Profiles() repositories.ProfileRepository   { return r.profiles }
func (r *Registry) Snapshots() repositories.SnapshotRepository { return r.snapshots }

// Ping checks that Firestore is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return errors.New("firestore registry not initialised")
	}
	return r.provider.Ping(ctx)
}

// Close releases the Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}
