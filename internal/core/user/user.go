package user

import (
	"errors"
	"time"

	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAnalyst  Role = "ANALYST"
	RoleSupplier Role = "SUPPLIER"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole maps a stored or claimed role string onto the closed set of roles.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleAnalyst, RoleSupplier:
		return Role(s), nil
	}
	return "", ErrUnknownRole
}

func (r Role) String() string {
	return string(r)
}

// RoleAllowed reports whether role is a member of allowed.
func RoleAllowed(role Role, allowed []Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// StaffRoles may search suppliers and record quality scores.
var StaffRoles = []Role{RoleAdmin, RoleAnalyst}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	SupplierID   *string   `json:"supplierId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         Role(u.Role),
		SupplierID:   u.SupplierID,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
