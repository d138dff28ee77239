package verification

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository is the durable state behind the server verification service:
// the flagged-hash table and the upload records that feed duplicate counts.
// Both are append/upsert-only from the pipeline's perspective.
type Repository interface {
	LookupFlaggedHash(ctx context.Context, hash string) (*FlaggedHash, error)
	UpsertFlaggedHash(ctx context.Context, flag *FlaggedHash) error

	RecordUpload(ctx context.Context, record *UploadRecord) error
	CountDistinctUploaders(ctx context.Context, hash string) (int, error)
	DeleteUploadsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) LookupFlaggedHash(ctx context.Context, hash string) (*FlaggedHash, error) {
	var flag FlaggedHash
	err := r.db.GetContext(ctx, &flag, "SELECT * FROM flagged_hashes WHERE hash = $1", hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &flag, err
}

func (r *postgresRepository) UpsertFlaggedHash(ctx context.Context, flag *FlaggedHash) error {
	query := `
		INSERT INTO flagged_hashes (hash, reason, flagged_by, flagged_at)
		VALUES (:hash, :reason, :flagged_by, :flagged_at)
		ON CONFLICT (hash) DO UPDATE SET reason = EXCLUDED.reason`
	_, err := r.db.NamedExecContext(ctx, query, flag)
	return err
}

func (r *postgresRepository) RecordUpload(ctx context.Context, record *UploadRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.UploadedAt.IsZero() {
		record.UploadedAt = time.Now()
	}
	query := `
		INSERT INTO upload_records (id, hash, user_id, file_name, file_size, uploaded_at)
		VALUES (:id, :hash, :user_id, :file_name, :file_size, :uploaded_at)`
	_, err := r.db.NamedExecContext(ctx, query, record)
	return err
}

func (r *postgresRepository) CountDistinctUploaders(ctx context.Context, hash string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(DISTINCT user_id) FROM upload_records WHERE hash = $1", hash)
	return count, err
}

func (r *postgresRepository) DeleteUploadsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM upload_records WHERE uploaded_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
