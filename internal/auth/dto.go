package auth

import (
	"strings"

	errors "github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/common/validation"
	"github.com/frahmantamala/supplier-portal/internal/supplier"
)

const (
	minPasswordLength     = 8
	minNameLength         = 2
	minRefreshTokenLength = 10
)

type RegisterDTO struct {
	Name     string                        `json:"name"`
	Email    string                        `json:"email"`
	Password string                        `json:"password"`
	Supplier *supplier.RegisterSupplierDTO `json:"supplier,omitempty"`
}

func (d RegisterDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(minNameLength)
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(minPasswordLength)
	if d.Supplier != nil {
		d.Supplier.AddRules(v, "supplier.")
	}
	return v.Validate()
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(minPasswordLength)
	return v.Validate()
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

func (d RefreshTokenDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("refreshToken", d.RefreshToken).Required().MinLength(minRefreshTokenLength)
	return v.Validate()
}

// LogoutDTO is optional: an empty token revokes every session of the caller.
type LogoutDTO struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email"`
}

func (d ForgotPasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	return v.Validate()
}

type ResetPasswordDTO struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (d ResetPasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("token", strings.TrimSpace(d.Token)).Required()
	v.Field("newPassword", d.NewPassword).Required().MinLength(minPasswordLength)
	return v.Validate()
}
