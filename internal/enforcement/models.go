package enforcement

import (
	"time"

	"github.com/google/uuid"
)

const FlagTypeSuspended = "suspended"

// AccountFlag marks an account as suspended over a specific file. Created by
// the pipeline on critical failure, never mutated by it; resolution is an
// out-of-band administrative action.
type AccountFlag struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	FlagType    string     `json:"flag_type"`
	Reason      string     `json:"reason"`
	FileName    string     `json:"file_name"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  *uuid.UUID `gorm:"type:uuid" json:"resolved_by,omitempty"`
	ResolveNote string     `json:"resolve_note,omitempty"`
}

// SecurityEvent is the audit record describing the fraud detection and the
// action taken.
type SecurityEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

const EventFraudDetected = "fraud_detected"

// BlacklistEntry bans an account by lower-cased email address.
type BlacklistEntry struct {
	Email     string    `gorm:"primaryKey" json:"email"`
	UserID    uuid.UUID `gorm:"type:uuid" json:"user_id"`
	Reason    string    `json:"reason"`
	BannedAt  time.Time `json:"banned_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Result reports each side effect separately so callers can rely on the
// core action without being blocked by notification failures.
type Result struct {
	FlagCreated bool `json:"flag_created"`
	EventLogged bool `json:"event_logged"`
	Suspended   bool `json:"suspended"`
	Notified    bool `json:"notified"`
}

// Core reports whether the enforcement action itself landed, independent of
// the best-effort notification.
func (r Result) Core() bool {
	return r.FlagCreated && r.EventLogged && r.Suspended
}
