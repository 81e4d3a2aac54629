package postgres

import (
	"context"
	"errors"
	"strings"

	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/supplier-portal/internal/supplier"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Transaction(ctx context.Context, fn func(repo supplier.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) GetOwner(ctx context.Context, userID string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByID(ctx context.Context, id string, withHistory bool) (*supplierDatamodel.Supplier, error) {
	var s supplierDatamodel.Supplier
	query := r.db.WithContext(ctx)
	if withHistory {
		query = query.Preload("IQFHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("month_ref DESC, created_at DESC")
		}).Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at DESC")
		})
	}

	err := query.Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if withHistory && s.IQFHistory == nil {
		s.IQFHistory = []supplierDatamodel.IQFHistory{}
	}
	if withHistory && s.Documents == nil {
		s.Documents = []supplierDatamodel.Document{}
	}
	return &s, nil
}

// Search matches names case-insensitively and the document id as a plain
// substring. An empty query lists the newest suppliers.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]supplierDatamodel.Supplier, error) {
	var rows []supplierDatamodel.Supplier

	namePattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	docPattern := "%" + escapeLike(query) + "%"

	err := r.db.WithContext(ctx).
		Where("LOWER(fantasy_name) LIKE ? ESCAPE '\\' OR LOWER(legal_name) LIKE ? ESCAPE '\\' OR document_id LIKE ? ESCAPE '\\'",
			namePattern, namePattern, docPattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) CreateIQFHistory(ctx context.Context, h *supplierDatamodel.IQFHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *Repository) UpdateScores(ctx context.Context, supplierID string, iqfScore float64, approvalScore *float64) error {
	updates := map[string]interface{}{"iqf_score": iqfScore}
	if approvalScore != nil {
		updates["approval_score"] = *approvalScore
	}

	result := r.db.WithContext(ctx).
		Model(&supplierDatamodel.Supplier{}).
		Where("id = ?", supplierID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
