package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePasswordResetRequested = "auth.password_reset_requested"
)

// PasswordResetRequestedEvent carries the plaintext reset link to the mail
// collaborator. Data omits the link so it never reaches logs.
type PasswordResetRequestedEvent struct {
	BaseEvent
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ResetLink string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewPasswordResetRequestedEvent(userID, email, name, resetLink string, expiresAt time.Time) *PasswordResetRequestedEvent {
	return &PasswordResetRequestedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePasswordResetRequested,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":    userID,
				"expires_at": expiresAt,
			},
		},
		UserID:    userID,
		Email:     email,
		Name:      name,
		ResetLink: resetLink,
		ExpiresAt: expiresAt,
	}
}
