package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pusher delivers an event to a user's live connections. The websocket
// manager implements it; tests substitute a recorder.
type Pusher interface {
	PushToUser(userID uuid.UUID, msg Message)
}

// PreferenceSource answers whether a user accepts in-app alerts.
type PreferenceSource interface {
	InAppEnabled(ctx context.Context, userID uuid.UUID) bool
}

// Service persists notifications and pushes them to connected clients.
type Service struct {
	db     *gorm.DB
	pusher Pusher
	prefs  PreferenceSource
	logger *zap.Logger
}

func NewService(db *gorm.DB, pusher Pusher, prefs PreferenceSource, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&Notification{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Service{db: db, pusher: pusher, prefs: prefs, logger: logger}, nil
}

// Notify persists a notification and pushes it out. Push failures are
// invisible here: the row is the durable copy and the client catches up on
// its next list call.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, kind, title, body string) (*Notification, error) {
	// Suspension notices bypass preferences; everything else respects them.
	if kind != TypeAccountSuspended && s.prefs != nil && !s.prefs.InAppEnabled(ctx, userID) {
		return nil, nil
	}

	n := &Notification{
		ID:     uuid.New(),
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.pusher != nil {
		s.pusher.PushToUser(userID, Message{
			Type:      n.Type,
			Payload:   n,
			Timestamp: time.Now().UTC(),
		})
	}
	if s.logger != nil {
		s.logger.Info("notification created",
			zap.String("user_id", userID.String()),
			zap.String("type", kind))
	}
	return n, nil
}

// List returns the user's most recent notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND read = false", userID).
		Count(&count).Error
	return count, err
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
