package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docvault/backend/pkg/ai"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) LookupFlaggedHash(ctx context.Context, hash string) (*FlaggedHash, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FlaggedHash), args.Error(1)
}

func (m *MockRepository) UpsertFlaggedHash(ctx context.Context, flag *FlaggedHash) error {
	args := m.Called(ctx, flag)
	return args.Error(0)
}

func (m *MockRepository) RecordUpload(ctx context.Context, record *UploadRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepository) CountDistinctUploaders(ctx context.Context, hash string) (int, error) {
	args := m.Called(ctx, hash)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) DeleteUploadsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type fakeOracle struct {
	opinion *ai.Opinion
	err     error
}

func (f fakeOracle) ScoreAuthenticity(ctx context.Context, req ai.Request) (*ai.Opinion, error) {
	return f.opinion, f.err
}

const testHash = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func cleanBundle() Bundle {
	return Bundle{
		SHA256Hash: testHash,
		FileName:   "statement.pdf",
		FileSize:   2048,
		MimeType:   "application/pdf",
	}
}

// cleanRepo wires the no-findings happy path.
func cleanRepo() *MockRepository {
	repo := new(MockRepository)
	repo.On("LookupFlaggedHash", mock.Anything, testHash).Return(nil, nil)
	repo.On("CountDistinctUploaders", mock.Anything, testHash).Return(0, nil)
	repo.On("RecordUpload", mock.Anything, mock.Anything).Return(nil)
	return repo
}

func TestVerifyUploadCleanDocument(t *testing.T) {
	repo := cleanRepo()
	svc := NewService(repo, ai.Disabled{}, DefaultOptions(), nil)

	verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), cleanBundle())

	assert.NoError(t, err)
	assert.True(t, verdict.Verified)
	assert.Empty(t, verdict.CriticalFailures)
	assert.True(t, verdict.Results[CheckHash].Passed)
	assert.True(t, verdict.Results[CheckDuplicate].Passed)
	assert.True(t, verdict.Results[CheckMetadata].Passed)
	assert.True(t, verdict.Results[CheckAI].Skipped)
	repo.AssertCalled(t, "RecordUpload", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpsertFlaggedHash")
}

func TestVerifyUploadFlaggedHash(t *testing.T) {
	repo := new(MockRepository)
	repo.On("LookupFlaggedHash", mock.Anything, testHash).
		Return(&FlaggedHash{Hash: testHash, Reason: "forged template"}, nil)
	repo.On("CountDistinctUploaders", mock.Anything, testHash).Return(0, nil)
	repo.On("RecordUpload", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpsertFlaggedHash", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, ai.Disabled{}, DefaultOptions(), nil)
	verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), cleanBundle())

	assert.NoError(t, err)
	assert.False(t, verdict.Verified)
	assert.Len(t, verdict.CriticalFailures, 1)
	assert.Equal(t, CheckHash, verdict.CriticalFailures[0].Check)
	assert.Contains(t, verdict.Results[CheckHash].Reason, "previously flagged: forged template")
	repo.AssertCalled(t, "UpsertFlaggedHash", mock.Anything, mock.Anything)
}

func TestVerifyUploadDuplicateThreshold(t *testing.T) {
	tests := []struct {
		name      string
		uploaders int
		verified  bool
	}{
		{"first upload", 0, true},
		{"at threshold", 2, true},
		{"over threshold", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			repo.On("LookupFlaggedHash", mock.Anything, testHash).Return(nil, nil)
			repo.On("CountDistinctUploaders", mock.Anything, testHash).Return(tt.uploaders, nil)
			repo.On("RecordUpload", mock.Anything, mock.Anything).Return(nil)
			repo.On("UpsertFlaggedHash", mock.Anything, mock.Anything).Return(nil)

			svc := NewService(repo, ai.Disabled{}, DefaultOptions(), nil)
			verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), cleanBundle())

			assert.NoError(t, err)
			assert.Equal(t, tt.verified, verdict.Verified)
			if !tt.verified {
				assert.Contains(t, verdict.Results[CheckDuplicate].Reason, "mass-submitted")
			}
		})
	}
}

// The count is taken before the current upload is recorded, so with a
// threshold of 2 the fourth distinct uploader is the first to fail.
func TestVerifyUploadCountsBeforeRecording(t *testing.T) {
	repo := new(MockRepository)
	counted := false
	repo.On("LookupFlaggedHash", mock.Anything, testHash).Return(nil, nil)
	repo.On("CountDistinctUploaders", mock.Anything, testHash).Return(2, nil).Run(func(mock.Arguments) {
		counted = true
	})
	repo.On("RecordUpload", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		assert.True(t, counted, "count must precede the record of this upload")
	})

	svc := NewService(repo, ai.Disabled{}, DefaultOptions(), nil)
	verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), cleanBundle())

	assert.NoError(t, err)
	assert.True(t, verdict.Verified, "third distinct uploader is still within the threshold")
}

func TestVerifyUploadRestrictedEditor(t *testing.T) {
	repo := cleanRepo()
	repo.On("UpsertFlaggedHash", mock.Anything, mock.Anything).Return(nil)

	bundle := cleanBundle()
	bundle.Metadata.Producer = "Adobe Photoshop 24.0 for Windows"

	svc := NewService(repo, ai.Disabled{}, DefaultOptions(), nil)
	verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), bundle)

	assert.NoError(t, err)
	assert.False(t, verdict.Verified)
	assert.Contains(t, verdict.Results[CheckMetadata].Reason, "restricted editor software")
}

func TestVerifyUploadIncrementalSave(t *testing.T) {
	repo := cleanRepo()
	repo.On("UpsertFlaggedHash", mock.Anything, mock.Anything).Return(nil)

	bundle := cleanBundle()
	bundle.Metadata.IncrementalSave = true

	svc := NewService(repo, ai.Disabled{}, DefaultOptions(), nil)
	verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), bundle)

	assert.NoError(t, err)
	assert.False(t, verdict.Verified)
	assert.Contains(t, verdict.Results[CheckMetadata].Reason, "post-issuance modification")
}

func TestVerifyUploadRapidEditDeltaWarnsOnly(t *testing.T) {
	repo := cleanRepo()

	bundle := cleanBundle()
	bundle.Metadata.CreationDate = "D:20260110120000"
	bundle.Metadata.ModDate = "D:20260110120030"

	svc := NewService(repo, ai.Disabled{}, DefaultOptions(), nil)
	verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), bundle)

	assert.NoError(t, err)
	assert.True(t, verdict.Verified)
	assert.True(t, verdict.Results[CheckMetadata].Passed)
	assert.True(t, verdict.Results[CheckMetadata].Warning)
	assert.Contains(t, verdict.Results[CheckMetadata].Summary, "rapid creation/modification delta")
}

func TestVerifyUploadAIOpinions(t *testing.T) {
	no := false
	yes := true
	tests := []struct {
		name    string
		opinion *ai.Opinion
		warning bool
	}{
		// A lone low-confidence "not authentic" call is advisory only.
		{"low-confidence rejection", &ai.Opinion{Authentic: &no, Confidence: 55, Issues: []string{"font inconsistency"}}, true},
		// High confidence overrides the negative call.
		{"high confidence override", &ai.Opinion{Authentic: &no, Confidence: 80}, false},
		{"authentic", &ai.Opinion{Authentic: &yes, Confidence: 90}, false},
		{"undecided", &ai.Opinion{Authentic: nil, Confidence: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := cleanRepo()

			bundle := cleanBundle()
			bundle.MimeType = "image/jpeg"
			bundle.Preview = "aGVsbG8="

			svc := NewService(repo, fakeOracle{opinion: tt.opinion}, DefaultOptions(), nil)
			verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), bundle)

			assert.NoError(t, err)
			assert.True(t, verdict.Verified, "analysis alone never fails an upload")
			assert.Empty(t, verdict.CriticalFailures)
			assert.Equal(t, tt.warning, verdict.Results[CheckAI].Warning)
			if tt.warning {
				assert.Contains(t, verdict.Results[CheckAI].Reason, "not authentic")
			}
			repo.AssertNotCalled(t, "UpsertFlaggedHash")
		})
	}
}

// A negative analysis call does escalate when another sub-check already
// failed for the same upload.
func TestVerifyUploadAICorroboratesCriticalFailure(t *testing.T) {
	no := false
	repo := new(MockRepository)
	repo.On("LookupFlaggedHash", mock.Anything, testHash).
		Return(&FlaggedHash{Hash: testHash, Reason: "forged template"}, nil)
	repo.On("CountDistinctUploaders", mock.Anything, testHash).Return(0, nil)
	repo.On("RecordUpload", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpsertFlaggedHash", mock.Anything, mock.Anything).Return(nil)

	bundle := cleanBundle()
	bundle.MimeType = "image/jpeg"
	bundle.Preview = "aGVsbG8="

	oracle := fakeOracle{opinion: &ai.Opinion{Authentic: &no, Confidence: 55}}
	svc := NewService(repo, oracle, DefaultOptions(), nil)
	verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), bundle)

	assert.NoError(t, err)
	assert.False(t, verdict.Verified)
	assert.False(t, verdict.Results[CheckAI].Warning)

	checks := make([]string, 0, len(verdict.CriticalFailures))
	for _, cf := range verdict.CriticalFailures {
		checks = append(checks, cf.Check)
	}
	assert.Contains(t, checks, CheckHash)
	assert.Contains(t, checks, CheckAI)
}

func TestVerifyUploadAIOracleErrorSkips(t *testing.T) {
	repo := cleanRepo()

	bundle := cleanBundle()
	bundle.MimeType = "image/jpeg"
	bundle.Preview = "aGVsbG8="

	svc := NewService(repo, fakeOracle{err: ai.ErrUnavailable}, DefaultOptions(), nil)
	verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), bundle)

	assert.NoError(t, err)
	assert.True(t, verdict.Verified)
	assert.True(t, verdict.Results[CheckAI].Skipped)
	assert.Equal(t, "analysis unavailable", verdict.Results[CheckAI].Reason)
}

// Uploads are recorded whether or not the verdict passes.
func TestVerifyUploadRecordsFailedAttempts(t *testing.T) {
	repo := new(MockRepository)
	repo.On("LookupFlaggedHash", mock.Anything, testHash).
		Return(&FlaggedHash{Hash: testHash, Reason: "forged template"}, nil)
	repo.On("CountDistinctUploaders", mock.Anything, testHash).Return(0, nil)
	repo.On("RecordUpload", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpsertFlaggedHash", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, ai.Disabled{}, DefaultOptions(), nil)
	verdict, err := svc.VerifyUpload(context.Background(), uuid.New(), cleanBundle())

	assert.NoError(t, err)
	assert.False(t, verdict.Verified)
	repo.AssertNumberOfCalls(t, "RecordUpload", 1)
}

func TestPruneUploads(t *testing.T) {
	repo := cleanRepo()
	repo.On("DeleteUploadsBefore", mock.Anything, mock.Anything).Return(int64(12), nil)

	svc := NewService(repo, ai.Disabled{}, DefaultOptions(), nil)
	deleted, err := svc.PruneUploads(context.Background(), 180*24*time.Hour)

	assert.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
}
