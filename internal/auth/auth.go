package auth

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/passwordreset"
	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/session"
	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO, client ClientInfo) (AuthTokens, error)
	Authenticate(ctx context.Context, dto LoginDTO, client ClientInfo) (AuthTokens, error)
	RefreshAccessToken(ctx context.Context, dto RefreshTokenDTO) (AccessTokenResponse, error)
	Logout(ctx context.Context, userID string, dto LogoutDTO) error
	ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error
	ResetPassword(ctx context.Context, dto ResetPasswordDTO) error
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// RepositoryAPI is the credential, session, and password-reset store.
// Lookups return (nil, nil) when nothing matches.
type RepositoryAPI interface {
	// Transaction runs fn against a repository bound to one database
	// transaction; any error rolls every write back.
	Transaction(ctx context.Context, fn func(repo RepositoryAPI) error) error

	CreateUser(ctx context.Context, u *userDatamodel.User) error
	CreateSupplier(ctx context.Context, s *supplierDatamodel.Supplier) error
	GetUserByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetUserByID(ctx context.Context, id string) (*userDatamodel.User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error

	CreateSession(ctx context.Context, s *session.Session) error
	FindSessionByRefreshTokenHash(ctx context.Context, tokenHash string) (*session.Session, error)
	RevokeSession(ctx context.Context, sessionID string, at time.Time) error
	RevokeSessionByTokenHash(ctx context.Context, userID, tokenHash string, at time.Time) (int64, error)
	RevokeAllSessions(ctx context.Context, userID string, at time.Time) (int64, error)

	CreatePasswordReset(ctx context.Context, pr *passwordreset.PasswordReset) error
	FindLatestUsablePasswordReset(ctx context.Context, userID string, now time.Time) (*passwordreset.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, resetID string, at time.Time) (int64, error)
}

type TokenIssuerAPI interface {
	IssueAccessToken(userID string, role user.Role) (string, error)
	VerifyAccessToken(tokenString string) (*Claims, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(encodedHash, plaintext string) bool
}

// OutcomeRecorder receives one observation per auth operation.
type OutcomeRecorder interface {
	ObserveAuthOutcome(operation, outcome string)
}

// ClientInfo is the request metadata captured on every new session.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// Claims are the access-token claims: subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type JWTTokenIssuer struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	now            func() time.Time
}

// ErrDuplicateEmail is returned by repositories when the unique email index rejects an insert.
var ErrDuplicateEmail = errors.New("email already exists")
