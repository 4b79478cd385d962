package uploads

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// Service handles upload business logic.
type Service struct {
	repo  RepositoryPort
	store BlobStore
	audit *audit.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, store BlobStore, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, store: store, audit: auditLogger}
}

// ListForInstance returns live uploads of an instance.
func (s *Service) ListForInstance(ctx context.Context, ayCommitteeID int64) ([]FileUpload, error) {
	return s.repo.ListForInstance(ctx, ayCommitteeID)
}

// GetUpload fetches live metadata.
func (s *Service) GetUpload(ctx context.Context, id int64) (FileUpload, error) {
	return s.repo.GetUpload(ctx, id)
}

// Store saves the blob under a fresh uuid and records metadata. The size
// reported by the store wins over anything the client claimed.
func (s *Service) Store(ctx context.Context, actorID int64, f FileUpload, content io.Reader) (FileUpload, error) {
	f.FileName = strings.TrimSpace(f.FileName)
	if f.FileName == "" {
		return FileUpload{}, shared.NewValidationError("file", "a file is required")
	}
	f.StorageKey = uuid.NewString()
	size, err := s.store.Save(f.StorageKey, content)
	if err != nil {
		return FileUpload{}, err
	}
	f.SizeBytes = size
	stamp := lifecycle.NewStamp(actorID)
	created, err := s.repo.CreateUpload(ctx, f, stamp)
	if err != nil {
		return FileUpload{}, err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "upload.create", Entity: "file_upload",
		EntityID: strconv.FormatInt(created.ID, 10),
		Meta:     map[string]any{"file_name": created.FileName, "ay_committee_id": created.AYCommitteeID},
		At:       stamp.At,
	})
	return created, nil
}

// Open returns the metadata and content of a live upload.
func (s *Service) Open(ctx context.Context, id int64) (FileUpload, io.ReadCloser, error) {
	f, err := s.repo.GetUpload(ctx, id)
	if err != nil {
		return FileUpload{}, nil, err
	}
	rc, err := s.store.Open(f.StorageKey)
	if err != nil {
		return FileUpload{}, nil, err
	}
	return f, rc, nil
}

// Remove soft-deletes the metadata. The blob is retained so an admin
// restore of the database row loses nothing.
func (s *Service) Remove(ctx context.Context, actorID, id int64) error {
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteUpload(ctx, id, stamp); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "upload.delete", Entity: "file_upload",
		EntityID: strconv.FormatInt(id, 10), At: stamp.At,
	})
	return nil
}

// Name identifies this feature area in cascade audit entries.
func (s *Service) Name() string { return "uploads" }

// SoftDeleteForAYCommittee removes every live upload of a deleted instance
// under the instance's stamp.
func (s *Service) SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error) {
	return s.repo.SoftDeleteForAYCommittee(ctx, ayCommitteeID, stamp)
}
