package vault

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"docvault/backend/internal/verification"
	"docvault/backend/pkg/cryptoutil"
	"docvault/backend/pkg/storage"
	"docvault/backend/pkg/workflows"
)

// ErrRejected is returned when the verification pipeline hard-rejects the
// upload. The accompanying UploadResult carries the step report and the
// category-labeled reason.
var ErrRejected = errors.New("vault: upload rejected by verification")

type Service interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, userID uuid.UUID) ([]Document, error)
	Download(ctx context.Context, id uuid.UUID) ([]byte, *Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

type UploadRequest struct {
	UserID   uuid.UUID
	Name     string
	MimeType string
	Content  []byte
}

type UploadResult struct {
	Document *Document            `json:"document,omitempty"`
	Report   *verification.Report `json:"report"`
}

type vaultService struct {
	repo         Repository
	blobs        storage.BlobClient
	orchestrator *verification.Orchestrator
	states       *workflows.StateMachine
	bucket       string
	masterKey    []byte
}

func NewService(repo Repository, blobs storage.BlobClient, orchestrator *verification.Orchestrator, bucket string, masterKey []byte) Service {
	return &vaultService{
		repo:         repo,
		blobs:        blobs,
		orchestrator: orchestrator,
		states:       workflows.NewUploadStateMachine(),
		bucket:       bucket,
		masterKey:    masterKey,
	}
}

// advance moves the run to the next state, refusing transitions the upload
// workflow does not define.
func (s *vaultService) advance(report *verification.Report, to verification.RunState) error {
	if !s.states.CanTransition(string(report.State), string(to)) {
		return fmt.Errorf("illegal state transition %s -> %s", report.State, to)
	}
	report.State = to
	return nil
}

// Upload runs the verification pipeline and, when the file clears it,
// encrypts the content and persists blob plus metadata row. A hard rejection
// surfaces as ErrRejected after enforcement has already completed.
func (s *vaultService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	file := verification.FileDescriptor{
		Name:     req.Name,
		MimeType: req.MimeType,
		Size:     int64(len(req.Content)),
		Content:  req.Content,
	}

	report := s.orchestrator.Run(ctx, req.UserID, file)
	result := &UploadResult{Report: report}
	if report.State == verification.StateError {
		return result, ErrRejected
	}

	// report.State is now encrypting; advance through upload to success.
	key, err := cryptoutil.DeriveKey(s.masterKey, report.Hash)
	if err != nil {
		return result, err
	}
	ciphertext, iv, err := cryptoutil.Seal(key, req.Content)
	if err != nil {
		return result, fmt.Errorf("encrypt document: %w", err)
	}

	if err := s.advance(report, verification.StateUploading); err != nil {
		return result, err
	}
	docID := uuid.New()
	path := fmt.Sprintf("vault/%s/%s", req.UserID, docID)
	if err := s.blobs.Upload(ctx, s.bucket, path, bytes.NewReader(ciphertext)); err != nil {
		return result, fmt.Errorf("store blob: %w", err)
	}

	doc := &Document{
		ID:          docID,
		UserID:      req.UserID,
		Name:        req.Name,
		StoragePath: path,
		FileSize:    file.Size,
		MimeType:    req.MimeType,
		Source:      SourceUpload,
		IV:          hex.EncodeToString(iv),
		SHA256Hash:  report.Hash,
		UploadedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return result, fmt.Errorf("persist document row: %w", err)
	}

	if err := s.advance(report, verification.StateSuccess); err != nil {
		return result, err
	}
	result.Document = doc
	return result, nil
}

func (s *vaultService) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetDocumentByID(ctx, id)
}

func (s *vaultService) ListDocuments(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	return s.repo.ListDocuments(ctx, userID)
}

func (s *vaultService) Download(ctx context.Context, id uuid.UUID) ([]byte, *Document, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, fmt.Errorf("document not found")
	}

	reader, err := s.blobs.Download(ctx, s.bucket, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch blob: %w", err)
	}
	defer reader.Close()

	ciphertext, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, err
	}
	iv, err := hex.DecodeString(doc.IV)
	if err != nil {
		return nil, nil, fmt.Errorf("decode iv: %w", err)
	}
	key, err := cryptoutil.DeriveKey(s.masterKey, doc.SHA256Hash)
	if err != nil {
		return nil, nil, err
	}
	plaintext, err := cryptoutil.Open(key, ciphertext, iv)
	if err != nil {
		return nil, nil, err
	}
	return plaintext, doc, nil
}

func (s *vaultService) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document not found")
	}
	if err := s.blobs.Delete(ctx, s.bucket, doc.StoragePath); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return s.repo.DeleteDocument(ctx, id)
}
