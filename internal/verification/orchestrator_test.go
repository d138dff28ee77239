package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docvault/backend/pkg/ai"
)

type MockServerClient struct {
	mock.Mock
}

func (m *MockServerClient) Verify(ctx context.Context, userID uuid.UUID, bundle Bundle) (*Verdict, error) {
	args := m.Called(ctx, userID, bundle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Verdict), args.Error(1)
}

type MockEnforcer struct {
	mock.Mock
}

func (m *MockEnforcer) Suspend(ctx context.Context, userID uuid.UUID, reason, fileName string) error {
	args := m.Called(ctx, userID, reason, fileName)
	return args.Error(0)
}

func cleanVerdict() *Verdict {
	return &Verdict{
		Verified: true,
		Results: map[string]CheckResult{
			CheckHash:      {Passed: true},
			CheckDuplicate: {Passed: true},
			CheckMetadata:  {Passed: true},
			CheckAI:        {Skipped: true, Reason: "no preview available"},
		},
		Timestamp: time.Now(),
	}
}

func pdfFile(name string) FileDescriptor {
	content := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF")
	return FileDescriptor{
		Name:     name,
		MimeType: "application/pdf",
		Size:     int64(len(content)),
		Content:  content,
	}
}

func assertReportComplete(t *testing.T, report *Report) {
	t.Helper()
	assert.Len(t, report.Steps, 7)
	seen := map[string]int{}
	for _, step := range report.Steps {
		seen[step.ID]++
		assert.Contains(t,
			[]StepStatus{StepPassed, StepFailed, StepWarning, StepSkipped},
			step.Status, "step %s left non-terminal", step.ID)
	}
	for _, id := range []string{StepSignature, StepContent, StepHash, StepMetadata, StepPDF, StepDuplicate, StepAI} {
		assert.Equal(t, 1, seen[id])
	}
}

func TestRunSignatureMismatchHalts(t *testing.T) {
	server := new(MockServerClient)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(server, enforcer, 0, nil)

	userID := uuid.New()
	enforcer.On("Suspend", mock.Anything, userID, "signature mismatch", "scan.jpg").Return(nil).Once()

	// PDF magic bytes declared as JPEG.
	file := FileDescriptor{
		Name:     "scan.jpg",
		MimeType: "image/jpeg",
		Size:     4,
		Content:  []byte{0x25, 0x50, 0x44, 0x46},
	}
	report := o.Run(context.Background(), userID, file)

	assert.Equal(t, StateError, report.State)
	assert.Equal(t, StepFailed, report.step(StepSignature).Status)
	assert.Equal(t, "tampered: signature mismatch", report.Rejection)
	assert.True(t, report.Enforced)
	assertReportComplete(t, report)

	// Subsequent steps were never evaluated.
	for _, id := range []string{StepContent, StepHash, StepMetadata, StepPDF, StepDuplicate, StepAI} {
		assert.Equal(t, StepSkipped, report.step(id).Status)
	}
	server.AssertNotCalled(t, "Verify")
	enforcer.AssertExpectations(t)
}

func TestRunMaliciousContentHalts(t *testing.T) {
	server := new(MockServerClient)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(server, enforcer, 0, nil)

	userID := uuid.New()
	enforcer.On("Suspend", mock.Anything, userID, "embedded PDF action", "form.pdf").Return(nil).Once()

	content := []byte("%PDF-1.4\n<< /S /JavaScript >>")
	file := FileDescriptor{Name: "form.pdf", MimeType: "application/pdf", Size: int64(len(content)), Content: content}
	report := o.Run(context.Background(), userID, file)

	assert.Equal(t, StateError, report.State)
	assert.Equal(t, StepPassed, report.step(StepSignature).Status)
	assert.Equal(t, StepFailed, report.step(StepContent).Status)
	assert.True(t, report.Enforced)
	server.AssertNotCalled(t, "Verify")
	enforcer.AssertExpectations(t)
	assertReportComplete(t, report)
}

func TestRunCleanPDFPasses(t *testing.T) {
	server := new(MockServerClient)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(server, enforcer, 0, nil)

	server.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(cleanVerdict(), nil).Once()

	report := o.Run(context.Background(), uuid.New(), pdfFile("statement.pdf"))

	assert.Equal(t, StateEncrypting, report.State)
	assert.False(t, report.Enforced)
	assert.Empty(t, report.Rejection)
	assert.Equal(t, StepPassed, report.step(StepHash).Status)
	assert.Equal(t, StepSkipped, report.step(StepAI).Status)
	assertReportComplete(t, report)
	enforcer.AssertNotCalled(t, "Suspend")
}

func TestRunFailsOpenOnServerOutage(t *testing.T) {
	server := new(MockServerClient)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(server, enforcer, 0, nil)

	server.On("Verify", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused")).Once()

	report := o.Run(context.Background(), uuid.New(), pdfFile("statement.pdf"))

	assert.Equal(t, StateEncrypting, report.State)
	assert.Equal(t, StepSkipped, report.step(StepDuplicate).Status)
	assert.Equal(t, "service unavailable", report.step(StepDuplicate).Detail)
	assert.Equal(t, StepSkipped, report.step(StepAI).Status)
	assert.Equal(t, "service unavailable", report.step(StepAI).Detail)
	assertReportComplete(t, report)
	enforcer.AssertNotCalled(t, "Suspend")
}

func TestRunServerCriticalFailureEnforcesOnce(t *testing.T) {
	server := new(MockServerClient)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(server, enforcer, 0, nil)

	verdict := cleanVerdict()
	verdict.Verified = false
	verdict.Results[CheckHash] = CheckResult{Passed: false, Reason: "previously flagged: forged template"}
	verdict.Results[CheckDuplicate] = CheckResult{Passed: false, Reason: "mass-submitted: identical content uploaded by 4 distinct accounts"}
	verdict.CriticalFailures = []CriticalFailure{
		{Check: CheckHash, Reason: "previously flagged: forged template"},
		{Check: CheckDuplicate, Reason: "mass-submitted: identical content uploaded by 4 distinct accounts"},
	}
	server.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(verdict, nil).Once()

	userID := uuid.New()
	enforcer.On("Suspend", mock.Anything, userID, mock.Anything, "statement.pdf").Return(nil).Once()

	report := o.Run(context.Background(), userID, pdfFile("statement.pdf"))

	assert.Equal(t, StateError, report.State)
	assert.Equal(t, StepFailed, report.step(StepHash).Status)
	assert.Equal(t, StepFailed, report.step(StepDuplicate).Status)
	assert.Contains(t, report.Rejection, "failed verification")
	assert.True(t, report.Enforced)
	// Two failing sub-checks, exactly one enforcement invocation.
	enforcer.AssertNumberOfCalls(t, "Suspend", 1)
	assertReportComplete(t, report)
}

func TestRunWarningsDoNotHalt(t *testing.T) {
	server := new(MockServerClient)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(server, enforcer, 0, nil)

	server.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(cleanVerdict(), nil).Once()

	// Incremental save: a warning-level structural signal.
	content := []byte("%PDF-1.4\n%%EOF\ntrailer\n%%EOF")
	file := FileDescriptor{Name: "resaved.pdf", MimeType: "application/pdf", Size: int64(len(content)), Content: content}
	report := o.Run(context.Background(), uuid.New(), file)

	assert.Equal(t, StateEncrypting, report.State)
	assert.Equal(t, StepWarning, report.step(StepPDF).Status)
	assert.NotEmpty(t, report.Warnings)
	enforcer.AssertNotCalled(t, "Suspend")
}

func TestRunAdvisoryAIFindingWarnsWithoutRejection(t *testing.T) {
	server := new(MockServerClient)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(server, enforcer, 0, nil)

	verdict := cleanVerdict()
	verdict.Results[CheckAI] = CheckResult{
		Warning:    true,
		Reason:     "AI analysis flagged document as not authentic",
		Confidence: 55,
	}
	server.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(verdict, nil).Once()

	report := o.Run(context.Background(), uuid.New(), pdfFile("statement.pdf"))

	assert.Equal(t, StateEncrypting, report.State)
	assert.False(t, report.Enforced)
	assert.Empty(t, report.Rejection)
	assert.Equal(t, StepWarning, report.step(StepAI).Status)
	assert.Contains(t, report.Warnings, "AI analysis flagged document as not authentic")
	assertReportComplete(t, report)
	enforcer.AssertNotCalled(t, "Suspend")
}

// End-to-end over the real verification service: a lone low-confidence
// negative analysis call surfaces as a warning, never as a rejection.
func TestRunLoneNegativeAICallDoesNotSuspend(t *testing.T) {
	no := false
	repo := new(MockRepository)
	repo.On("LookupFlaggedHash", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("CountDistinctUploaders", mock.Anything, mock.Anything).Return(0, nil)
	repo.On("RecordUpload", mock.Anything, mock.Anything).Return(nil)

	oracle := fakeOracle{opinion: &ai.Opinion{Authentic: &no, Confidence: 55, Issues: []string{"font inconsistency"}}}
	svc := NewService(repo, oracle, DefaultOptions(), nil)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(NewLocalClient(svc), enforcer, 4096, nil)

	content := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}
	file := FileDescriptor{Name: "receipt.jpg", MimeType: "image/jpeg", Size: int64(len(content)), Content: content}
	report := o.Run(context.Background(), uuid.New(), file)

	assert.Equal(t, StateEncrypting, report.State)
	assert.False(t, report.Enforced)
	assert.Empty(t, report.Rejection)
	assert.Equal(t, StepWarning, report.step(StepAI).Status)
	assert.NotEmpty(t, report.Warnings)
	enforcer.AssertNotCalled(t, "Suspend")
	repo.AssertNotCalled(t, "UpsertFlaggedHash")
}

func TestRunSkipsPDFStepForImages(t *testing.T) {
	server := new(MockServerClient)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(server, enforcer, 0, nil)

	server.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(cleanVerdict(), nil).Once()

	content := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	file := FileDescriptor{Name: "id.jpg", MimeType: "image/jpeg", Size: int64(len(content)), Content: content}
	report := o.Run(context.Background(), uuid.New(), file)

	assert.Equal(t, StepSkipped, report.step(StepPDF).Status)
	assert.Equal(t, "not a PDF", report.step(StepPDF).Detail)

	// Image uploads carry a bounded base64 preview for AI analysis.
	bundle := server.Calls[0].Arguments.Get(2).(Bundle)
	assert.NotEmpty(t, bundle.Preview)
}

func TestRunDeterministicHash(t *testing.T) {
	server := new(MockServerClient)
	enforcer := new(MockEnforcer)
	o := NewOrchestrator(server, enforcer, 0, nil)

	server.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(cleanVerdict(), nil)

	first := o.Run(context.Background(), uuid.New(), pdfFile("a.pdf"))
	second := o.Run(context.Background(), uuid.New(), pdfFile("b.pdf"))
	assert.Equal(t, first.Hash, second.Hash, "hash depends on content only, not name")
}
