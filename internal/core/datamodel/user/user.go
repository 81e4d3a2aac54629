package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is mapped by gorm for writes and by sqlx for read-only lookups.
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" db:"id"`
	Name         string    `gorm:"column:name;not null" db:"name"`
	Email        string    `gorm:"column:email;uniqueIndex;not null" db:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" db:"password_hash"`
	Role         string    `gorm:"column:role;not null" db:"role"`
	SupplierID   *string   `gorm:"column:supplier_id;type:varchar(36)" db:"supplier_id"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" db:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" db:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
