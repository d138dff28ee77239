package vault

import (
	"time"

	"github.com/google/uuid"
)

type DocumentSource string

const (
	SourceUpload DocumentSource = "upload"
	SourceImport DocumentSource = "import"
)

// Document is the metadata row for an encrypted blob in the vault. The blob
// itself is ciphertext in object storage; IV is the GCM nonce used to seal
// it.
type Document struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	UserID      uuid.UUID      `json:"user_id" db:"user_id"`
	Name        string         `json:"name" db:"name"`
	StoragePath string         `json:"storage_path" db:"storage_path"`
	FileSize    int64          `json:"file_size" db:"file_size"`
	MimeType    string         `json:"mime_type" db:"mime_type"`
	Source      DocumentSource `json:"source" db:"source"`
	IV          string         `json:"-" db:"iv"`
	SHA256Hash  string         `json:"sha256_hash" db:"sha256_hash"`
	UploadedAt  time.Time      `json:"uploaded_at" db:"uploaded_at"`
}
