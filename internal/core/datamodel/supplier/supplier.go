package supplier

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Supplier struct {
	ID            string       `gorm:"primaryKey;type:varchar(36)"`
	FantasyName   string       `gorm:"column:fantasy_name;not null"`
	LegalName     string       `gorm:"column:legal_name;not null"`
	DocumentID    string       `gorm:"column:document_id;not null"`
	Email         string       `gorm:"column:email;not null"`
	Phone         *string      `gorm:"column:phone"`
	Address       *string      `gorm:"column:address"`
	IQFScore      *float64     `gorm:"column:iqf_score"`
	ApprovalScore *float64     `gorm:"column:approval_score"`
	CreatedAt     time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time    `gorm:"column:updated_at;autoUpdateTime"`
	IQFHistory    []IQFHistory `gorm:"foreignKey:SupplierID"`
	Documents     []Document   `gorm:"foreignKey:SupplierID"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type IQFHistory struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)"`
	SupplierID    string    `gorm:"column:supplier_id;type:varchar(36);index;not null"`
	MonthRef      time.Time `gorm:"column:month_ref;not null"`
	IQFScore      float64   `gorm:"column:iqf_score;not null"`
	ApprovalScore *float64  `gorm:"column:approval_score"`
	Notes         *string   `gorm:"column:notes"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (IQFHistory) TableName() string {
	return "iqf_history"
}

func (h *IQFHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
