package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/supplier-portal/internal/auth"
	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/passwordreset"
	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/session"
	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Transaction(ctx context.Context, fn func(repo auth.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) CreateUser(ctx context.Context, u *userDatamodel.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicateKey(err) {
			return auth.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *Repository) CreateSupplier(ctx context.Context, s *supplierDatamodel.Supplier) error {
	return r.db.WithContext(ctx).Omit("IQFHistory").Create(s).Error
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	return r.firstUser(ctx, "email = ?", email)
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	return r.firstUser(ctx, "id = ?", id)
}

func (r *Repository) firstUser(ctx context.Context, cond string, arg interface{}) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where(cond, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	result := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) CreateSession(ctx context.Context, s *session.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repository) FindSessionByRefreshTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	var s session.Session
	err := r.db.WithContext(ctx).Where("refresh_token_hash = ?", tokenHash).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Revocations only touch active sessions, so revoked_at keeps its first value.

func (r *Repository) RevokeSession(ctx context.Context, sessionID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&session.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", at).Error
}

func (r *Repository) RevokeSessionByTokenHash(ctx context.Context, userID, tokenHash string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&session.Session{}).
		Where("user_id = ? AND refresh_token_hash = ? AND revoked_at IS NULL", userID, tokenHash).
		Update("revoked_at", at)
	return result.RowsAffected, result.Error
}

func (r *Repository) RevokeAllSessions(ctx context.Context, userID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&session.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at)
	return result.RowsAffected, result.Error
}

func (r *Repository) CreatePasswordReset(ctx context.Context, pr *passwordreset.PasswordReset) error {
	return r.db.WithContext(ctx).Create(pr).Error
}

func (r *Repository) FindLatestUsablePasswordReset(ctx context.Context, userID string, now time.Time) (*passwordreset.PasswordReset, error) {
	var pr passwordreset.PasswordReset
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND used_at IS NULL AND expires_at > ?", userID, now).
		Order("created_at DESC").
		First(&pr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// MarkPasswordResetUsed reports zero rows when another request consumed the
// reset first.
func (r *Repository) MarkPasswordResetUsed(ctx context.Context, resetID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&passwordreset.PasswordReset{}).
		Where("id = ? AND used_at IS NULL", resetID).
		Update("used_at", at)
	return result.RowsAffected, result.Error
}

// isDuplicateKey recognises unique violations whether or not the gorm
// dialector translates them.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
