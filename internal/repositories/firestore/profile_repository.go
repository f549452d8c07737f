package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
	pfirestore "github.com/seungjae8520/hjjtest/internal/platform/firestore"
)

const profileCollection = "profiles"

// ProfileRepository stores visitor profiles keyed by visitor ID.
type ProfileRepository struct {
	base *pfirestore.BaseRepository[profileDocument]
	now  func() time.Time
}

type profileDocument struct {
	BusinessType string    `firestore:"businessType"`
	Region       string    `firestore:"region"`
	BusinessName string    `firestore:"businessName"`
	Phone        string    `firestore:"phone"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// NewProfileRepository constructs a Firestore-backed profile repository.
func NewProfileRepository(provider *pfirestore.Provider) (*ProfileRepository, error) {
	if provider == nil {
		return nil, errors.New("profile repository requires firestore provider")
	}
	return &ProfileRepository{
		base: pfirestore.NewBaseRepository[profileDocument](provider, profileCollection, nil, nil),
		now:  time.Now,
	}, nil
}

func (r *ProfileRepository) GetProfile(ctx context.Context, visitorID string) (domain.UserProfile, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(visitorID))
	if err != nil {
		return domain.UserProfile{}, err
	}
	return domain.UserProfile(doc.Data), nil
}

func (r *ProfileRepository) SaveProfile(ctx context.Context, visitorID string, profile domain.UserProfile) (domain.UserProfile, error) {
	profile.UpdatedAt = r.now().UTC()
	if _, err := r.base.Set(ctx, strings.TrimSpace(visitorID), profileDocument(profile)); err != nil {
		return domain.UserProfile{}, err
	}
	return profile, nil
}
