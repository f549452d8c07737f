package repositories

import (
	"context"

	"github.com/seungjae8520/hjjtest/internal/domain"
)

// Registry exposes the repositories of one storage driver and its lifecycle.
type Registry interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	Carts() CartRepository
	Profiles() ProfileRepository
	Snapshots() SnapshotRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository stores one cart per visitor. Saves replace the whole cart.
type CartRepository interface {
	GetCart(ctx context.Context, visitorID string) (domain.Cart, error)
	SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
}

// ProfileRepository stores one profile per visitor. Saves replace the whole record.
type ProfileRepository interface {
	GetProfile(ctx context.Context, visitorID string) (domain.UserProfile, error)
	SaveProfile(ctx context.Context, visitorID string, profile domain.UserProfile) (domain.UserProfile, error)
}

// SnapshotRepository keeps the serialized order snapshot of a browser session. The payload
// is stored as written so that an unreadable snapshot can be told apart from a missing one.
type SnapshotRepository interface {
	GetSnapshot(ctx context.Context, sessionID string) ([]byte, error)
	PutSnapshot(ctx context.Context, sessionID string, raw []byte) error
	DeleteSnapshot(ctx context.Context, sessionID string) error
}
