package verification

import (
	"time"

	"github.com/google/uuid"
)

type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepWarning StepStatus = "warning"
	StepSkipped StepStatus = "skipped"
)

// Step identifiers, in pipeline order.
const (
	StepSignature = "signature"
	StepContent   = "content"
	StepHash      = "hash"
	StepMetadata  = "metadata"
	StepPDF       = "pdf"
	StepDuplicate = "duplicate"
	StepAI        = "ai"
)

// Step is one named stage of the pipeline. Status only moves forward
// (pending -> running -> terminal); a step is never revisited within a run.
type Step struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// FileDescriptor holds the immutable facts about a candidate upload.
type FileDescriptor struct {
	Name     string
	MimeType string
	Size     int64
	Content  []byte
}

// DocumentMetadata is the format-specific metadata extracted client-side.
// Absent fields are simply omitted; extraction never fails.
type DocumentMetadata struct {
	Producer        string `json:"producer,omitempty"`
	Creator         string `json:"creator,omitempty"`
	CreationDate    string `json:"creationDate,omitempty"`
	ModDate         string `json:"modDate,omitempty"`
	IncrementalSave bool   `json:"incrementalSave,omitempty"`
	HasAnnotations  bool   `json:"hasAnnotations,omitempty"`
	HasAcroForm     bool   `json:"hasAcroForm,omitempty"`
	HasSignature    bool   `json:"hasSignature,omitempty"`
	SignerName      string `json:"signerName,omitempty"`
	EditorSoftware  string `json:"editorSoftware,omitempty"`
}

// Bundle is the payload sent to the server verification service.
type Bundle struct {
	SHA256Hash string           `json:"sha256Hash"`
	FileName   string           `json:"fileName"`
	FileSize   int64            `json:"fileSize"`
	MimeType   string           `json:"mimeType"`
	Metadata   DocumentMetadata `json:"metadata"`
	// Preview is a bounded base64 image preview for AI analysis, if any.
	Preview string `json:"preview,omitempty"`
}

// CheckResult is one server-side sub-check outcome. Warning marks a finding
// that is advisory rather than critical; a warning never contributes to the
// verdict's critical failures.
type CheckResult struct {
	Passed     bool   `json:"passed"`
	Warning    bool   `json:"warning,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
}

type CriticalFailure struct {
	Check  string `json:"check"`
	Reason string `json:"reason"`
}

// Verdict is the aggregate response from the server verification service.
type Verdict struct {
	Verified         bool                   `json:"verified"`
	Results          map[string]CheckResult `json:"results"`
	CriticalFailures []CriticalFailure      `json:"criticalFailures"`
	Timestamp        time.Time              `json:"timestamp"`
}

// Server-side check names, also used as report step details.
const (
	CheckHash      = "hashCheck"
	CheckDuplicate = "duplicateCheck"
	CheckMetadata  = "metadataCheck"
	CheckAI        = "aiAnalysis"
)

// FlaggedHash is a durable record of a content hash that failed verification.
type FlaggedHash struct {
	Hash      string    `json:"hash" db:"hash"`
	Reason    string    `json:"reason" db:"reason"`
	FlaggedBy uuid.UUID `json:"flagged_by" db:"flagged_by"`
	FlaggedAt time.Time `json:"flagged_at" db:"flagged_at"`
}

// UploadRecord is appended for every verified hash and feeds the
// cross-user duplicate count.
type UploadRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Hash       string    `json:"hash" db:"hash"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	FileName   string    `json:"file_name" db:"file_name"`
	FileSize   int64     `json:"file_size" db:"file_size"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}
