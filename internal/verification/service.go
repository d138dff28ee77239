package verification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docvault/backend/pkg/ai"
)

// Service is the server-side half of the pipeline: hash/flag lookup,
// cross-user duplicate count, metadata policy, and AI authenticity analysis.
type Service interface {
	VerifyUpload(ctx context.Context, userID uuid.UUID, bundle Bundle) (*Verdict, error)
	PruneUploads(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Options carry the tunables the checks run against. The duplicate threshold
// is deliberately configurable rather than a constant.
type Options struct {
	// DuplicateThreshold fails the duplicate check when more than this many
	// distinct accounts have already uploaded the same content.
	DuplicateThreshold int
	// RestrictedEditors are producer/creator signatures severe enough to
	// fail the metadata check outright rather than warn.
	RestrictedEditors []string
	// RapidEditWindow is the creation->modification delta below which a
	// non-fatal rapid-edit warning is attached.
	RapidEditWindow time.Duration
}

func DefaultOptions() Options {
	return Options{
		DuplicateThreshold: 2,
		RestrictedEditors:  []string{"Adobe Photoshop", "GIMP", "Photopea", "Canva"},
		RapidEditWindow:    time.Minute,
	}
}

type verifyService struct {
	repo   Repository
	oracle ai.Oracle
	opts   Options
	logger *zap.Logger
}

func NewService(repo Repository, oracle ai.Oracle, opts Options, logger *zap.Logger) Service {
	if opts.DuplicateThreshold <= 0 {
		opts.DuplicateThreshold = 2
	}
	if opts.RapidEditWindow <= 0 {
		opts.RapidEditWindow = time.Minute
	}
	return &verifyService{repo: repo, oracle: oracle, opts: opts, logger: logger}
}

// VerifyUpload evaluates the four sub-checks and returns one aggregate
// verdict. The read-mostly checks run concurrently but all complete before
// the verdict is assembled; callers never see partial results.
func (s *verifyService) VerifyUpload(ctx context.Context, userID uuid.UUID, bundle Bundle) (*Verdict, error) {
	var (
		hashResult CheckResult
		dupResult  CheckResult
		aiResult   CheckResult
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		hashResult, err = s.checkHash(gctx, bundle.SHA256Hash)
		return err
	})
	g.Go(func() error {
		var err error
		dupResult, err = s.checkDuplicates(gctx, bundle.SHA256Hash)
		return err
	})
	g.Go(func() error {
		aiResult = s.checkAI(gctx, bundle)
		return nil
	})

	metaResult := s.checkMetadata(bundle.Metadata)

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("verification checks: %w", err)
	}

	verdict := &Verdict{
		Results: map[string]CheckResult{
			CheckHash:      hashResult,
			CheckDuplicate: dupResult,
			CheckMetadata:  metaResult,
			CheckAI:        aiResult,
		},
		Timestamp: time.Now().UTC(),
	}

	for _, check := range []string{CheckHash, CheckDuplicate, CheckMetadata} {
		result := verdict.Results[check]
		if !result.Skipped && !result.Warning && !result.Passed {
			verdict.CriticalFailures = append(verdict.CriticalFailures, CriticalFailure{
				Check:  check,
				Reason: result.Reason,
			})
		}
	}

	// A negative AI call on its own is advisory: the model sees a lossy
	// preview and cannot suspend an account by itself. It hardens to a
	// critical failure only when it corroborates another failing check.
	if ai := verdict.Results[CheckAI]; !ai.Skipped && !ai.Passed {
		if len(verdict.CriticalFailures) > 0 {
			verdict.CriticalFailures = append(verdict.CriticalFailures, CriticalFailure{
				Check:  CheckAI,
				Reason: ai.Reason,
			})
		} else {
			ai.Warning = true
			verdict.Results[CheckAI] = ai
		}
	}
	verdict.Verified = len(verdict.CriticalFailures) == 0

	// The hash is recorded regardless of outcome so future duplicate
	// lookups see this upload.
	record := &UploadRecord{
		Hash:     bundle.SHA256Hash,
		UserID:   userID,
		FileName: bundle.FileName,
		FileSize: bundle.FileSize,
	}
	if err := s.repo.RecordUpload(ctx, record); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}

	// A failed verdict flags the hash so re-uploads of the same content
	// fail immediately, whoever submits them.
	if !verdict.Verified {
		flag := &FlaggedHash{
			Hash:      bundle.SHA256Hash,
			Reason:    verdict.CriticalFailures[0].Reason,
			FlaggedBy: userID,
			FlaggedAt: time.Now().UTC(),
		}
		if err := s.repo.UpsertFlaggedHash(ctx, flag); err != nil && s.logger != nil {
			s.logger.Error("failed to flag hash", zap.String("hash", bundle.SHA256Hash), zap.Error(err))
		}
	}

	return verdict, nil
}

func (s *verifyService) checkHash(ctx context.Context, hash string) (CheckResult, error) {
	flag, err := s.repo.LookupFlaggedHash(ctx, hash)
	if err != nil {
		return CheckResult{}, fmt.Errorf("lookup flagged hash: %w", err)
	}
	if flag != nil {
		return CheckResult{Passed: false, Reason: "previously flagged: " + flag.Reason}, nil
	}
	return CheckResult{Passed: true}, nil
}

// checkDuplicates counts the distinct accounts that uploaded this exact
// content before the current attempt. Legitimate personal documents do not
// recur across many unrelated accounts.
func (s *verifyService) checkDuplicates(ctx context.Context, hash string) (CheckResult, error) {
	count, err := s.repo.CountDistinctUploaders(ctx, hash)
	if err != nil {
		return CheckResult{}, fmt.Errorf("count uploaders: %w", err)
	}
	if count > s.opts.DuplicateThreshold {
		return CheckResult{
			Passed: false,
			Reason: fmt.Sprintf("mass-submitted: identical content uploaded by %d distinct accounts", count),
		}, nil
	}
	return CheckResult{Passed: true}, nil
}

func (s *verifyService) checkMetadata(meta DocumentMetadata) CheckResult {
	software := meta.Producer + " " + meta.Creator + " " + meta.EditorSoftware
	lower := strings.ToLower(software)
	for _, editor := range s.opts.RestrictedEditors {
		if strings.Contains(lower, strings.ToLower(editor)) {
			return CheckResult{Passed: false, Reason: "restricted editor software: " + editor}
		}
	}

	if meta.IncrementalSave {
		return CheckResult{Passed: false, Reason: "incremental save structure indicates post-issuance modification"}
	}

	result := CheckResult{Passed: true}
	created := parsePDFDate(meta.CreationDate)
	modified := parsePDFDate(meta.ModDate)
	if !created.IsZero() && !modified.IsZero() {
		delta := modified.Sub(created)
		if delta >= 0 && delta < s.opts.RapidEditWindow {
			// Common for batch-generated legitimate documents too, so this
			// stays a warning.
			result.Warning = true
			result.Summary = fmt.Sprintf("rapid creation/modification delta (%s)", delta)
		}
	}
	return result
}

// checkAI is only meaningful when a preview is supplied; an unavailable or
// undecided oracle is a skip, not a failure.
func (s *verifyService) checkAI(ctx context.Context, bundle Bundle) CheckResult {
	if bundle.Preview == "" {
		return CheckResult{Skipped: true, Reason: "no preview available"}
	}

	opinion, err := s.oracle.ScoreAuthenticity(ctx, ai.Request{
		PreviewBase64: bundle.Preview,
		PreviewMime:   bundle.MimeType,
		FileName:      bundle.FileName,
		FileSize:      bundle.FileSize,
		Producer:      bundle.Metadata.Producer,
		Creator:       bundle.Metadata.Creator,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("authenticity oracle unavailable", zap.Error(err))
		}
		return CheckResult{Skipped: true, Reason: "analysis unavailable"}
	}

	// A low-confidence "not authentic" call is not strong enough on its own
	// to suspend an account: the check passes unless the model commits to
	// authentic=false without a high-confidence override.
	passed := opinion.Authentic == nil || *opinion.Authentic || opinion.Confidence > 70
	result := CheckResult{
		Passed:     passed,
		Confidence: opinion.Confidence,
		Summary:    opinion.Summary,
	}
	if !passed {
		reason := "AI analysis flagged document as not authentic"
		if len(opinion.Issues) > 0 {
			reason += ": " + strings.Join(opinion.Issues, ", ")
		}
		result.Reason = reason
	}
	return result
}

func (s *verifyService) PruneUploads(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.repo.DeleteUploadsBefore(ctx, time.Now().Add(-olderThan))
}

// parsePDFDate parses the D:YYYYMMDDHHMMSS prefix of a PDF date string.
// Zone suffixes are ignored; the delta comparison only needs precision to
// the second.
func parsePDFDate(value string) time.Time {
	value = strings.TrimPrefix(value, "D:")
	if len(value) > 14 {
		value = value[:14]
	}
	for _, layout := range []string{"20060102150405", "200601021504", "20060102"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
