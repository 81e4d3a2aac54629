package supplier

import (
	"context"
	"time"

	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/supplier-portal/internal/document"
)

// SearchLimit caps the staff search result set.
const SearchLimit = 50

type ServiceAPI interface {
	GetMine(ctx context.Context, userID string) (*MyProfileResponse, error)
	Search(ctx context.Context, query string) ([]*Supplier, error)
	RecordIQF(ctx context.Context, supplierID string, dto RecordIQFDTO) (*IQFEntry, error)
}

// RepositoryAPI lookups return (nil, nil) when nothing matches.
type RepositoryAPI interface {
	Transaction(ctx context.Context, fn func(repo RepositoryAPI) error) error
	GetOwner(ctx context.Context, userID string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id string, withHistory bool) (*supplierDatamodel.Supplier, error)
	Search(ctx context.Context, query string, limit int) ([]supplierDatamodel.Supplier, error)
	CreateIQFHistory(ctx context.Context, h *supplierDatamodel.IQFHistory) error
	UpdateScores(ctx context.Context, supplierID string, iqfScore float64, approvalScore *float64) error
}

type Supplier struct {
	ID            string      `json:"id"`
	FantasyName   string      `json:"fantasyName"`
	LegalName     string      `json:"legalName"`
	DocumentID    string      `json:"documentId"`
	Email         string      `json:"email"`
	Phone         *string     `json:"phone"`
	Address       *string     `json:"address"`
	IQFScore      *float64    `json:"iqfScore"`
	ApprovalScore *float64    `json:"approvalScore"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	IQFHistory    []*IQFEntry `json:"iqfHistory,omitempty"`
	// Documents is only loaded for the owner's own profile.
	Documents []*document.Document `json:"documents,omitempty"`
}

type IQFEntry struct {
	ID            string    `json:"id"`
	SupplierID    string    `json:"supplierId"`
	MonthRef      time.Time `json:"monthRef"`
	IQFScore      float64   `json:"iqfScore"`
	ApprovalScore *float64  `json:"approvalScore"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
}

type OwnerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MyProfileResponse struct {
	User     OwnerSummary `json:"user"`
	Supplier *Supplier    `json:"supplier"`
}

func FromDataModel(dm *supplierDatamodel.Supplier) *Supplier {
	if dm == nil {
		return nil
	}
	s := &Supplier{
		ID:            dm.ID,
		FantasyName:   dm.FantasyName,
		LegalName:     dm.LegalName,
		DocumentID:    dm.DocumentID,
		Email:         dm.Email,
		Phone:         dm.Phone,
		Address:       dm.Address,
		IQFScore:      dm.IQFScore,
		ApprovalScore: dm.ApprovalScore,
		CreatedAt:     dm.CreatedAt,
		UpdatedAt:     dm.UpdatedAt,
	}
	if dm.IQFHistory != nil {
		s.IQFHistory = make([]*IQFEntry, 0, len(dm.IQFHistory))
		for i := range dm.IQFHistory {
			s.IQFHistory = append(s.IQFHistory, IQFEntryFromDataModel(&dm.IQFHistory[i]))
		}
	}
	if dm.Documents != nil {
		s.Documents = document.FromDataModels(dm.Documents)
	}
	return s
}

func IQFEntryFromDataModel(dm *supplierDatamodel.IQFHistory) *IQFEntry {
	return &IQFEntry{
		ID:            dm.ID,
		SupplierID:    dm.SupplierID,
		MonthRef:      dm.MonthRef,
		IQFScore:      dm.IQFScore,
		ApprovalScore: dm.ApprovalScore,
		Notes:         dm.Notes,
		CreatedAt:     dm.CreatedAt,
	}
}
