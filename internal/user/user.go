package user

import (
	"context"
	"time"

	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, userID string) (*Profile, error)
}

// Repository returns (nil, nil) for an unknown id.
type Repository interface {
	GetByID(ctx context.Context, userID string) (*userDatamodel.User, error)
}

// Profile is the caller-facing view of a user; it never carries the hash.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	SupplierID *string   `json:"supplierId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func ProfileFromDataModel(dm *userDatamodel.User) *Profile {
	return &Profile{
		ID:         dm.ID,
		Name:       dm.Name,
		Email:      dm.Email,
		Role:       dm.Role,
		SupplierID: dm.SupplierID,
		CreatedAt:  dm.CreatedAt,
	}
}
