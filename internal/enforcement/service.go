package enforcement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docvault/backend/internal/notifications"
	"docvault/backend/pkg/mail"
)

// Notifier posts the in-app suspension notice to the affected user. Nil
// disables it.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, body string) (*notifications.Notification, error)
}

// Service performs the account suspension side effects triggered by a
// critical verification failure. The three core effects are independent:
// failure of one must not prevent the others from being attempted.
type Service struct {
	db          *gorm.DB
	mailer      mail.Mailer
	notifier    Notifier
	adminEmail  string
	banDuration time.Duration
	logger      *zap.Logger
}

func NewService(db *gorm.DB, mailer mail.Mailer, notifier Notifier, adminEmail string, banDuration time.Duration, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&AccountFlag{}, &SecurityEvent{}, &BlacklistEntry{}); err != nil {
		return nil, fmt.Errorf("migrate enforcement tables: %w", err)
	}
	if banDuration <= 0 {
		banDuration = 365 * 24 * time.Hour
	}
	if mailer == nil {
		mailer = mail.NoopMailer{}
	}
	return &Service{
		db:          db,
		mailer:      mailer,
		notifier:    notifier,
		adminEmail:  adminEmail,
		banDuration: banDuration,
		logger:      logger,
	}, nil
}

// Suspend satisfies the orchestrator's Enforcer interface. The error only
// reflects the core action; notification failures never surface here.
func (s *Service) Suspend(ctx context.Context, userID uuid.UUID, reason, fileName string) error {
	result := s.Enforce(ctx, userID, reason, fileName)
	if !result.Core() {
		return fmt.Errorf("enforcement incomplete for user %s", userID)
	}
	return nil
}

// Enforce runs all the side effects and reports each outcome separately.
func (s *Service) Enforce(ctx context.Context, userID uuid.UUID, reason, fileName string) Result {
	var result Result

	flag := &AccountFlag{
		ID:        uuid.New(),
		UserID:    userID,
		FlagType:  FlagTypeSuspended,
		Reason:    reason,
		FileName:  fileName,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(flag).Error; err != nil {
		s.warn("create account flag", userID, err)
	} else {
		result.FlagCreated = true
	}

	event := &SecurityEvent{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: EventFraudDetected,
		Detail:    fmt.Sprintf("fraudulent document detected (%s); account suspended", reason),
		FileName:  fileName,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.warn("create security event", userID, err)
	} else {
		result.EventLogged = true
	}

	if err := s.blacklist(ctx, userID, reason); err != nil {
		s.warn("blacklist account", userID, err)
	} else {
		result.Suspended = true
	}

	// The user sees the suspension in-app too. Best effort.
	if s.notifier != nil {
		_, err := s.notifier.Notify(ctx, userID, notifications.TypeAccountSuspended,
			"Account suspended",
			fmt.Sprintf("Your account was suspended after %q failed verification.", fileName))
		if err != nil {
			s.warn("user notification", userID, err)
		}
	}

	// Best effort only. An unreachable mail provider must not fail
	// enforcement.
	if s.adminEmail != "" {
		subject := "Account suspended: fraudulent document upload"
		body := fmt.Sprintf("User %s was suspended.\nReason: %s\nFile: %s\n", userID, reason, fileName)
		if err := s.mailer.Send(ctx, s.adminEmail, subject, body); err != nil {
			s.warn("admin notification", userID, err)
		} else {
			result.Notified = true
		}
	}

	return result
}

// blacklist looks up the account's email and upserts a ban record keyed by
// the lower-cased address.
func (s *Service) blacklist(ctx context.Context, userID uuid.UUID, reason string) error {
	var account struct {
		ID    uuid.UUID
		Email string
	}
	err := s.db.WithContext(ctx).
		Table("users").
		Select("id, email").
		Where("id = ?", userID).
		First(&account).Error
	if err != nil {
		return fmt.Errorf("lookup account email: %w", err)
	}

	entry := &BlacklistEntry{
		Email:     strings.ToLower(account.Email),
		UserID:    userID,
		Reason:    reason,
		BannedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(s.banDuration),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "reason", "banned_at", "expires_at"}),
		}).
		Create(entry).Error
}

func (s *Service) warn(action string, userID uuid.UUID, err error) {
	if s.logger != nil {
		s.logger.Error("enforcement side effect failed",
			zap.String("action", action),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}
