package supplier

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is a file a supplier uploaded. FileKey addresses the stored bytes
// in whichever storage backend received them.
type Document struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	SupplierID   string    `gorm:"column:supplier_id;type:varchar(36);index;not null"`
	Type         string    `gorm:"column:type;not null"`
	FileKey      string    `gorm:"column:file_key;not null"`
	OriginalName string    `gorm:"column:original_name;not null"`
	MimeType     string    `gorm:"column:mime_type;not null"`
	SizeBytes    int64     `gorm:"column:size_bytes;not null"`
	UploadedByID string    `gorm:"column:uploaded_by_id;type:varchar(36);not null"`
	UploadedAt   time.Time `gorm:"column:uploaded_at;autoCreateTime"`
}

func (Document) TableName() string {
	return "documents"
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
