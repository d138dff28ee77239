package settings

import (
	"time"

	"github.com/google/uuid"
)

// Preferences are the per-user vault settings. A user without a row gets the
// defaults.
type Preferences struct {
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	EmailAlerts    bool      `json:"email_alerts" db:"email_alerts"`
	InAppAlerts    bool      `json:"in_app_alerts" db:"in_app_alerts"`
	AlertOnWarning bool      `json:"alert_on_warning" db:"alert_on_warning"`
	Language       string    `json:"language" db:"language"`
	Timezone       string    `json:"timezone" db:"timezone"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func defaultPreferences(userID uuid.UUID) *Preferences {
	return &Preferences{
		UserID:      userID,
		EmailAlerts: true,
		InAppAlerts: true,
		Language:    "en",
		Timezone:    "UTC",
	}
}
