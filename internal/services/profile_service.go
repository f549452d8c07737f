package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/format"
	"github.com/seungjae8520/hjjtest/internal/repositories"
)

const msgProfilePhone = "올바른 전화번호 형식이 아닙니다."

var (
	errProfileRepositoryRequired = errors.New("profile service: repository is required")
	errProfileClockRequired      = errors.New("profile service: clock is required")
)

var (
	ErrProfileInvalidInput = errors.New("profile service: invalid input")
	ErrProfileUnavailable  = errors.New("profile service: unavailable")
)

type ProfileServiceDeps struct {
	Repository repositories.ProfileRepository
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type profileService struct {
	repo   repositories.ProfileRepository
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
	locks  visitorLocks
}

func NewProfileService(deps ProfileServiceDeps) (ProfileService, error) {
	if deps.Repository == nil {
		return nil, errProfileRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errProfileClockRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &profileService{
		repo:   deps.Repository,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
	}, nil
}

// ValidatePhone reports whether p is a mobile number, dashes optional.
func ValidatePhone(p string) bool {
	return format.IsMobile(p)
}

func (s *profileService) GetProfile(ctx context.Context, visitorID string) (domain.UserProfile, error) {
	vid, err := requireVisitor(ErrProfileInvalidInput, visitorID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	profile, err := s.repo.GetProfile(ctx, vid)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.UserProfile{}, nil
		}
		return domain.UserProfile{}, translateRepoError(ErrProfileUnavailable, err)
	}
	return profile, nil
}

// UpdateProfile merges the non-nil fields of patch and writes the whole record back. A
// phone number is stored formatted and must be a mobile number when non-empty.
func (s *profileService) UpdateProfile(ctx context.Context, visitorID string, patch domain.ProfilePatch) (domain.UserProfile, error) {
	vid, err := requireVisitor(ErrProfileInvalidInput, visitorID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		if phone != "" {
			if !ValidatePhone(phone) {
				return domain.UserProfile{}, &ValidationError{Field: "phone", Message: msgProfilePhone}
			}
			phone = format.Phone(phone)
		}
		patch.Phone = &phone
	}

	lock := s.locks.forVisitor(vid)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.GetProfile(ctx, vid)
	if err != nil {
		return domain.UserProfile{}, err
	}
	updated := patch.Apply(current)
	updated.UpdatedAt = s.now()
	saved, err := s.repo.SaveProfile(ctx, vid, updated)
	if err != nil {
		s.logger(ctx, "profile.save.failed", map[string]any{"visitorId": vid, "error": err.Error()})
		return domain.UserProfile{}, translateRepoError(ErrProfileUnavailable, err)
	}
	s.logger(ctx, "profile.updated", map[string]any{"visitorId": vid})
	return saved, nil
}
