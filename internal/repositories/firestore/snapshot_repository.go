package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/seungjae8520/hjjtest/internal/platform/firestore"
)

const snapshotCollection = "orderSnapshots"

// SnapshotRepository stores the raw order snapshot of each browser session.
type SnapshotRepository struct {
	base *pfirestore.BaseRepository[[]byte]
	now  func() time.Time
}

// NewSnapshotRepository constructs a Firestore-backed snapshot repository. The payload is
// kept as a string field so it round-trips byte for byte.
func NewSnapshotRepository(provider *pfirestore.Provider) (*SnapshotRepository, error) {
	if provider == nil {
		return nil, errors.New("snapshot repository requires firestore provider")
	}
	repo := &SnapshotRepository{now: time.Now}
	encode := func(_ context.Context, raw []byte) (any, error) {
		return map[string]any{
			"payload":   string(raw),
			"updatedAt": repo.now().UTC(),
		}, nil
	}
	decode := func(_ context.Context, snap *firestore.DocumentSnapshot) ([]byte, error) {
		value, err := snap.DataAt("payload")
		if err != nil {
			return nil, err
		}
		payload, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("payload has type %T", value)
		}
		return []byte(payload), nil
	}
	repo.base = pfirestore.NewBaseRepository[[]byte](provider, snapshotCollection, encode, decode)
	return repo, nil
}

func (r *SnapshotRepository) GetSnapshot(ctx context.Context, sessionID string) ([]byte, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (r *SnapshotRepository) PutSnapshot(ctx context.Context, sessionID string, raw []byte) error {
	_, err := r.base.Set(ctx, strings.TrimSpace(sessionID), raw)
	return err
}

func (r *SnapshotRepository) DeleteSnapshot(ctx context.Context, sessionID string) error {
	return r.base.Delete(ctx, strings.TrimSpace(sessionID))
}
