package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	query := r.db.Rebind(`SELECT id, name, email, role, supplier_id, created_at, updated_at FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}
