package postgres

import (
	"context"
	"errors"

	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
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

func (r *Repository) ListBySupplier(ctx context.Context, supplierID string) ([]supplierDatamodel.Document, error) {
	var rows []supplierDatamodel.Document
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("uploaded_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Create(ctx context.Context, d *supplierDatamodel.Document) error {
	return r.db.WithContext(ctx).Create(d).Error
}
