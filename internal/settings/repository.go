package settings

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (*Preferences, error)
	UpsertPreferences(ctx context.Context, prefs *Preferences) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetPreferences(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	var prefs Preferences
	err := r.db.GetContext(ctx, &prefs,
		"SELECT * FROM user_preferences WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &prefs, err
}

func (r *postgresRepository) UpsertPreferences(ctx context.Context, prefs *Preferences) error {
	query := `
		INSERT INTO user_preferences (user_id, email_alerts, in_app_alerts, alert_on_warning, language, timezone, updated_at)
		VALUES (:user_id, :email_alerts, :in_app_alerts, :alert_on_warning, :language, :timezone, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			email_alerts = EXCLUDED.email_alerts,
			in_app_alerts = EXCLUDED.in_app_alerts,
			alert_on_warning = EXCLUDED.alert_on_warning,
			language = EXCLUDED.language,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.NamedExecContext(ctx, query, prefs)
	return err
}
