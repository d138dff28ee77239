package verification

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RunState string

const (
	StateIdle       RunState = "idle"
	StateVerifying  RunState = "verifying"
	StateEncrypting RunState = "encrypting"
	StateUploading  RunState = "uploading"
	StateSuccess    RunState = "success"
	StateError      RunState = "error"
)

// ServerClient is the round-trip to the server verification service. The
// orchestrator treats it as a single atomic call with no partial results.
type ServerClient interface {
	Verify(ctx context.Context, userID uuid.UUID, bundle Bundle) (*Verdict, error)
}

// Enforcer triggers the account suspension side effects on critical failure.
type Enforcer interface {
	Suspend(ctx context.Context, userID uuid.UUID, reason, fileName string) error
}

// Report is the per-upload verification record. It lives only for the
// duration of one upload attempt; only the hash (and, on failure, the
// enforcement records) persist beyond it.
type Report struct {
	State     RunState
	Steps     []Step
	Hash      string
	Metadata  DocumentMetadata
	Rejection string
	Warnings  []string
	Enforced  bool
}

func (r *Report) step(id string) *Step {
	for i := range r.Steps {
		if r.Steps[i].ID == id {
			return &r.Steps[i]
		}
	}
	return nil
}

func (r *Report) set(id string, status StepStatus, detail string) {
	if s := r.step(id); s != nil {
		s.Status = status
		s.Detail = detail
	}
}

// Orchestrator sequences the client-side checks and the server round-trip
// for one upload attempt. Runs share no mutable state; each call owns its
// own Report.
type Orchestrator struct {
	server       ServerClient
	enforcer     Enforcer
	logger       *zap.Logger
	previewLimit int
}

func NewOrchestrator(server ServerClient, enforcer Enforcer, previewLimit int, logger *zap.Logger) *Orchestrator {
	if previewLimit <= 0 {
		previewLimit = 512 * 1024
	}
	return &Orchestrator{
		server:       server,
		enforcer:     enforcer,
		logger:       logger,
		previewLimit: previewLimit,
	}
}

func newReport() *Report {
	return &Report{
		State: StateVerifying,
		Steps: []Step{
			{ID: StepSignature, Label: "File signature", Status: StepPending},
			{ID: StepContent, Label: "Content scan", Status: StepPending},
			{ID: StepHash, Label: "Content fingerprint", Status: StepPending},
			{ID: StepMetadata, Label: "Metadata extraction", Status: StepPending},
			{ID: StepPDF, Label: "PDF structure", Status: StepPending},
			{ID: StepDuplicate, Label: "Duplicate lookup", Status: StepPending},
			{ID: StepAI, Label: "AI authenticity analysis", Status: StepPending},
		},
	}
}

// Run executes the full pipeline for one candidate file. It halts on the
// first critical failure, invoking enforcement exactly once, and fails open
// when the server verification service is unreachable.
func (o *Orchestrator) Run(ctx context.Context, userID uuid.UUID, file FileDescriptor) *Report {
	report := newReport()

	// 1. Signature check. A mismatch is type spoofing or corruption; halt.
	report.set(StepSignature, StepRunning, "")
	if !VerifySignature(file.MimeType, file.Content) {
		o.fail(ctx, report, StepSignature, "signature mismatch", "tampered", userID, file.Name)
		return report
	}
	report.set(StepSignature, StepPassed, "")

	// 2. Content scan.
	report.set(StepContent, StepRunning, "")
	if scan := ScanContent(file.MimeType, file.Content); !scan.Safe {
		o.fail(ctx, report, StepContent, scan.Reason, "malicious content", userID, file.Name)
		return report
	}
	report.set(StepContent, StepPassed, "")

	// 3. Fingerprint. Hashing cannot itself fail validation.
	report.set(StepHash, StepRunning, "")
	report.Hash = Fingerprint(file.Content)
	report.set(StepHash, StepPassed, report.Hash[:12])

	// 4. Metadata extraction.
	report.set(StepMetadata, StepRunning, "")
	report.Metadata = ExtractMetadata(file.MimeType, file.Content)
	if report.Metadata.EditorSoftware != "" {
		detail := "edited with " + report.Metadata.EditorSoftware
		report.set(StepMetadata, StepWarning, detail)
		report.Warnings = append(report.Warnings, detail)
	} else {
		report.set(StepMetadata, StepPassed, "")
	}

	// 5. PDF structural flags.
	if file.MimeType == "application/pdf" {
		report.set(StepPDF, StepRunning, "")
		switch {
		case report.Metadata.IncrementalSave:
			detail := "incremental saves detected"
			report.set(StepPDF, StepWarning, detail)
			report.Warnings = append(report.Warnings, detail)
		default:
			report.set(StepPDF, StepPassed, pdfFeatureNote(report.Metadata))
		}
	} else {
		report.set(StepPDF, StepSkipped, "not a PDF")
	}

	// 6. Server verification round-trip. Fail open on outage: a transient
	// service failure must not permanently block legitimate uploads.
	bundle := o.buildBundle(file, report)
	verdict, err := o.server.Verify(ctx, userID, bundle)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("server verification unavailable", zap.Error(err))
		}
		report.set(StepDuplicate, StepSkipped, "service unavailable")
		report.set(StepAI, StepSkipped, "service unavailable")
		report.State = StateEncrypting
		return report
	}

	// 7. Interpret the verdict. Critical failures reject the upload;
	// advisory findings surface as warnings and let the run proceed.
	o.applyVerdict(report, verdict)

	if len(verdict.CriticalFailures) > 0 {
		reasons := make([]string, 0, len(verdict.CriticalFailures))
		for _, cf := range verdict.CriticalFailures {
			reasons = append(reasons, cf.Reason)
		}
		o.enforce(ctx, report, strings.Join(reasons, "; "), userID, file.Name)
		report.Rejection = "failed verification: " + strings.Join(reasons, "; ")
		report.State = StateError
		return report
	}

	report.State = StateEncrypting
	return report
}

// applyVerdict maps server sub-checks onto their report steps. A critical
// server finding escalates the step to failed even if the client-side pass
// already marked it; severity only ever increases.
func (o *Orchestrator) applyVerdict(report *Report, verdict *Verdict) {
	stepFor := map[string]string{
		CheckHash:      StepHash,
		CheckDuplicate: StepDuplicate,
		CheckMetadata:  StepMetadata,
		CheckAI:        StepAI,
	}

	for check, result := range verdict.Results {
		id, ok := stepFor[check]
		if !ok {
			continue
		}
		switch {
		case result.Skipped:
			// Absence of a signal is not evidence of fraud.
			detail := result.Reason
			if detail == "" {
				detail = "not evaluated"
			}
			report.set(id, StepSkipped, detail)
		case result.Warning:
			detail := result.Reason
			if detail == "" {
				detail = result.Summary
			}
			report.set(id, StepWarning, detail)
			report.Warnings = append(report.Warnings, detail)
		case !result.Passed:
			report.set(id, StepFailed, result.Reason)
		default:
			if s := report.step(id); s != nil && s.Status != StepWarning {
				report.set(id, StepPassed, result.Summary)
			}
		}
	}
}

// fail marks a client-side step failed, closes out the remaining steps,
// triggers enforcement, and puts the run in the error state.
func (o *Orchestrator) fail(ctx context.Context, report *Report, stepID, reason, category string, userID uuid.UUID, fileName string) {
	report.set(stepID, StepFailed, reason)
	for i := range report.Steps {
		if report.Steps[i].Status == StepPending || report.Steps[i].Status == StepRunning {
			report.Steps[i].Status = StepSkipped
			report.Steps[i].Detail = "not evaluated"
		}
	}
	o.enforce(ctx, report, reason, userID, fileName)
	report.Rejection = fmt.Sprintf("%s: %s", category, reason)
	report.State = StateError
}

// enforce invokes the enforcement action at most once per run, and waits for
// it so the rejection response can tell the user their account was flagged.
func (o *Orchestrator) enforce(ctx context.Context, report *Report, reason string, userID uuid.UUID, fileName string) {
	if report.Enforced {
		return
	}
	report.Enforced = true
	if err := o.enforcer.Suspend(ctx, userID, reason, fileName); err != nil && o.logger != nil {
		o.logger.Error("enforcement action failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

func (o *Orchestrator) buildBundle(file FileDescriptor, report *Report) Bundle {
	bundle := Bundle{
		SHA256Hash: report.Hash,
		FileName:   sanitizeFileName(file.Name),
		FileSize:   file.Size,
		MimeType:   file.MimeType,
		Metadata:   report.Metadata,
	}
	if strings.HasPrefix(file.MimeType, "image/") {
		preview := file.Content
		if len(preview) > o.previewLimit {
			preview = preview[:o.previewLimit]
		}
		bundle.Preview = base64.StdEncoding.EncodeToString(preview)
	}
	return bundle
}

func pdfFeatureNote(meta DocumentMetadata) string {
	var features []string
	if meta.HasAnnotations {
		features = append(features, "annotations")
	}
	if meta.HasAcroForm {
		features = append(features, "form fields")
	}
	if meta.HasSignature {
		features = append(features, "digital signature")
	}
	if len(features) == 0 {
		return "no notable features"
	}
	return "found: " + strings.Join(features, ", ")
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return strings.TrimSpace(name)
}
