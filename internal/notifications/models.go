package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the upload pipeline.
const (
	TypeUploadVerified   = "upload_verified"
	TypeUploadRejected   = "upload_rejected"
	TypeAccountSuspended = "account_suspended"
)

// Notification is a persisted in-app notification. The same record is pushed
// over WebSocket when the user has a live connection.
type Notification struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"not null;index"`
	Type      string    `json:"type" gorm:"not null"`
	Title     string    `json:"title" gorm:"not null"`
	Body      string    `json:"body" gorm:""`
	Read      bool      `json:"read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Message is the WebSocket envelope for pushed events.
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
