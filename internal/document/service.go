package document

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/supplier-portal/internal"
	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
)

type Service struct {
	repo     RepositoryAPI
	storage  Storage
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the document flow. maxBytes <= 0 disables the size check.
func NewService(repo RepositoryAPI, storage Storage, maxBytes int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		storage:  storage,
		maxBytes: maxBytes,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListMine returns the caller's supplier documents, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]*Document, error) {
	supplierID, err := s.supplierOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to list documents", err)
	}
	return FromDataModels(rows), nil
}

// Upload stores the file and records it against the caller's supplier. The
// stored object is removed again when the record cannot be written.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (*Document, error) {
	if err := in.Validate(s.maxBytes); err != nil {
		return nil, err
	}

	supplierID, err := s.supplierOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := ObjectKey(supplierID, in.FileName, now)
	if err := s.storage.Put(ctx, key, in.Body, in.Size, in.contentType()); err != nil {
		return nil, errors.NewInternalError("Failed to store document", err)
	}

	dm := &supplierDatamodel.Document{
		SupplierID:   supplierID,
		Type:         in.documentType(),
		FileKey:      key,
		OriginalName: in.FileName,
		MimeType:     in.contentType(),
		SizeBytes:    in.Size,
		UploadedByID: userID,
		UploadedAt:   now,
	}
	if err := s.repo.Create(ctx, dm); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.ErrorContext(ctx, "orphaned document object", "key", key, "error", delErr)
		}
		return nil, errors.NewInternalError("Failed to record document", err)
	}

	s.logger.InfoContext(ctx, "document uploaded",
		"supplier_id", supplierID,
		"document_id", dm.ID,
		"type", dm.Type,
		"size_bytes", dm.SizeBytes)

	return FromDataModel(dm), nil
}

func (s *Service) supplierOf(ctx context.Context, userID string) (string, error) {
	owner, err := s.repo.GetOwner(ctx, userID)
	if err != nil {
		return "", errors.NewInternalError("Failed to load user", err)
	}
	if owner == nil || owner.SupplierID == nil || *owner.SupplierID == "" {
		return "", errors.ErrSupplierNotFound
	}
	return *owner.SupplierID, nil
}
