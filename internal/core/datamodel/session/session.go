package session

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is a refresh-token grant. Only the SHA-256 of the token is stored.
type Session struct {
	ID               string     `gorm:"primaryKey;type:varchar(36)"`
	UserID           string     `gorm:"column:user_id;type:varchar(36);index;not null"`
	RefreshTokenHash string     `gorm:"column:refresh_token_hash;uniqueIndex;not null"`
	IP               string     `gorm:"column:ip"`
	UserAgent        string     `gorm:"column:user_agent"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	RevokedAt        *time.Time `gorm:"column:revoked_at"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
