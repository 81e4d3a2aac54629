package document

import (
	"context"
	"io"
	"time"

	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
)

// DefaultType labels uploads that did not name a document type.
const DefaultType = "OUTROS"

type ServiceAPI interface {
	ListMine(ctx context.Context, userID string) ([]*Document, error)
	Upload(ctx context.Context, userID string, in UploadInput) (*Document, error)
}

// RepositoryAPI lookups return (nil, nil) when nothing matches.
type RepositoryAPI interface {
	GetOwner(ctx context.Context, userID string) (*userDatamodel.User, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]supplierDatamodel.Document, error)
	Create(ctx context.Context, d *supplierDatamodel.Document) error
}

// Storage holds the uploaded bytes under a key.
type Storage interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type Document struct {
	ID           string    `json:"id"`
	SupplierID   string    `json:"supplierId"`
	Type         string    `json:"type"`
	FileKey      string    `json:"fileKey"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	UploadedByID string    `json:"uploadedById"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

func FromDataModel(dm *supplierDatamodel.Document) *Document {
	if dm == nil {
		return nil
	}
	return &Document{
		ID:           dm.ID,
		SupplierID:   dm.SupplierID,
		Type:         dm.Type,
		FileKey:      dm.FileKey,
		OriginalName: dm.OriginalName,
		MimeType:     dm.MimeType,
		SizeBytes:    dm.SizeBytes,
		UploadedByID: dm.UploadedByID,
		UploadedAt:   dm.UploadedAt,
	}
}

// FromDataModels keeps the order of rows and never returns nil.
func FromDataModels(rows []supplierDatamodel.Document) []*Document {
	result := make([]*Document, 0, len(rows))
	for i := range rows {
		result = append(result, FromDataModel(&rows[i]))
	}
	return result
}
