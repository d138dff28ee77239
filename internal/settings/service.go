package settings

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetPreferences(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return defaultPreferences(userID), nil
	}
	return prefs, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, prefs *Preferences) error {
	prefs.UpdatedAt = time.Now().UTC()
	return s.repo.UpsertPreferences(ctx, prefs)
}

// InAppEnabled reports whether the user accepts in-app alerts. Lookup errors
// default to enabled; losing a notification is worse than an extra one.
func (s *Service) InAppEnabled(ctx context.Context, userID uuid.UUID) bool {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return true
	}
	return prefs.InAppAlerts
}
