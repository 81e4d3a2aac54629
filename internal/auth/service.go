package auth

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	errors "github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/passwordreset"
	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/session"
	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/supplier-portal/internal/core/events"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
)

const adminName = "Administrator"

// ServiceConfig holds the lifetimes and public URL the auth flows depend on.
type ServiceConfig struct {
	RefreshTokenTTLDays int
	ResetTokenTTL       time.Duration
	AppURL              string
}

type Service struct {
	repo      RepositoryAPI
	tokens    TokenIssuerAPI
	hasher    PasswordHasher
	publisher events.Publisher
	metrics   OutcomeRecorder
	cfg       ServiceConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, tokens TokenIssuerAPI, hasher PasswordHasher, publisher events.Publisher, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		tokens:    tokens,
		hasher:    hasher,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetMetrics(m OutcomeRecorder) {
	s.metrics = m
}

// SetClock replaces the time source used for session age and reset expiry.
func (s *Service) SetClock(now func() time.Time) {
	s.now = func() time.Time { return now().UTC() }
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO, client ClientInfo) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		s.observe("register", "invalid")
		return AuthTokens{}, err
	}

	existing, err := s.repo.GetUserByEmail(ctx, dto.Email)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("Failed to check email", err)
	}
	if existing != nil {
		s.observe("register", "conflict")
		return AuthTokens{}, errors.ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("Failed to hash password", err)
	}

	newUser := &userDatamodel.User{
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: passwordHash,
		Role:         string(user.RoleSupplier),
	}

	err = s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		if dto.Supplier != nil {
			sup := dto.Supplier.ToDataModel()
			if err := tx.CreateSupplier(ctx, sup); err != nil {
				return err
			}
			newUser.SupplierID = &sup.ID
		}
		return tx.CreateUser(ctx, newUser)
	})
	if err != nil {
		if stdErrors.Is(err, ErrDuplicateEmail) {
			s.observe("register", "conflict")
			return AuthTokens{}, errors.ErrEmailTaken
		}
		return AuthTokens{}, errors.NewInternalError("Failed to register user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", newUser.ID, "with_supplier", newUser.SupplierID != nil)
	s.observe("register", "success")

	return s.IssueTokens(ctx, user.FromDataModel(newUser), client)
}

// Authenticate answers unknown email and wrong password with the same error.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO, client ClientInfo) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		s.observe("login", "invalid")
		return AuthTokens{}, err
	}

	dm, err := s.repo.GetUserByEmail(ctx, dto.Email)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("Failed to load user", err)
	}
	if dm == nil || !s.hasher.Verify(dm.PasswordHash, dto.Password) {
		s.observe("login", "failure")
		return AuthTokens{}, errors.ErrInvalidCredentials
	}

	s.observe("login", "success")
	return s.IssueTokens(ctx, user.FromDataModel(dm), client)
}

// IssueTokens mints an access token and opens a new session for the refresh token.
func (s *Service) IssueTokens(ctx context.Context, u *user.User, client ClientInfo) (AuthTokens, error) {
	accessToken, err := s.tokens.IssueAccessToken(u.ID, u.Role)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("Failed to issue access token", err)
	}

	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("Failed to issue refresh token", err)
	}

	sess := &session.Session{
		UserID:           u.ID,
		RefreshTokenHash: HashRefreshToken(refreshToken),
		IP:               client.IP,
		UserAgent:        client.UserAgent,
		CreatedAt:        s.now(),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return AuthTokens{}, errors.NewInternalError("Failed to create session", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshAccessToken returns a new access token for a live session. The
// refresh token itself is not rotated; a session past its lifetime is revoked.
func (s *Service) RefreshAccessToken(ctx context.Context, dto RefreshTokenDTO) (AccessTokenResponse, error) {
	if err := dto.Validate(); err != nil {
		s.observe("refresh", "invalid")
		return AccessTokenResponse{}, err
	}

	sess, err := s.repo.FindSessionByRefreshTokenHash(ctx, HashRefreshToken(dto.RefreshToken))
	if err != nil {
		return AccessTokenResponse{}, errors.NewInternalError("Failed to load session", err)
	}
	if sess == nil || sess.RevokedAt != nil {
		s.observe("refresh", "failure")
		return AccessTokenResponse{}, errors.ErrInvalidRefreshToken
	}

	now := s.now()
	if s.sessionExpired(sess, now) {
		if err := s.repo.RevokeSession(ctx, sess.ID, now); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke expired session", "session_id", sess.ID, "error", err)
		}
		s.observe("refresh", "expired")
		return AccessTokenResponse{}, errors.ErrInvalidRefreshToken.WithCause(fmt.Errorf("session %s aged out", sess.ID))
	}

	dm, err := s.repo.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return AccessTokenResponse{}, errors.NewInternalError("Failed to load user", err)
	}
	if dm == nil {
		s.observe("refresh", "failure")
		return AccessTokenResponse{}, errors.ErrInvalidRefreshToken
	}

	role, err := user.ParseRole(dm.Role)
	if err != nil {
		return AccessTokenResponse{}, errors.NewInternalError("Stored role is invalid", err)
	}

	accessToken, err := s.tokens.IssueAccessToken(dm.ID, role)
	if err != nil {
		return AccessTokenResponse{}, errors.NewInternalError("Failed to issue access token", err)
	}

	s.observe("refresh", "success")
	return AccessTokenResponse{AccessToken: accessToken}, nil
}

// sessionExpired compares the age in whole milliseconds against the
// configured number of days.
func (s *Service) sessionExpired(sess *session.Session, now time.Time) bool {
	ageMs := now.Sub(sess.CreatedAt).Milliseconds()
	ttlMs := int64(s.cfg.RefreshTokenTTLDays) * 24 * 60 * 60 * 1000
	return ageMs >= ttlMs
}

// Logout revokes the session holding dto.RefreshToken when it belongs to the
// caller, or every active session of the caller when no token is given.
func (s *Service) Logout(ctx context.Context, userID string, dto LogoutDTO) error {
	now := s.now()
	token := strings.TrimSpace(dto.RefreshToken)

	var (
		revoked int64
		err     error
	)
	if token != "" {
		revoked, err = s.repo.RevokeSessionByTokenHash(ctx, userID, HashRefreshToken(token), now)
	} else {
		revoked, err = s.repo.RevokeAllSessions(ctx, userID, now)
	}
	if err != nil {
		return errors.NewInternalError("Failed to revoke sessions", err)
	}

	s.logger.InfoContext(ctx, "user logged out", "user_id", userID, "sessions_revoked", revoked, "all", token == "")
	s.observe("logout", "success")
	return nil
}

// ForgotPassword never reveals whether the address is registered: past input
// validation every path returns nil and failures only reach the log.
func (s *Service) ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	dm, err := s.repo.GetUserByEmail(ctx, dto.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "forgot password: user lookup failed", "error", err)
		return nil
	}
	if dm == nil {
		s.observe("forgot_password", "unknown_email")
		return nil
	}

	token, err := GenerateResetToken()
	if err != nil {
		s.logger.ErrorContext(ctx, "forgot password: token generation failed", "error", err)
		return nil
	}
	tokenHash, err := s.hasher.Hash(token)
	if err != nil {
		s.logger.ErrorContext(ctx, "forgot password: token hashing failed", "error", err)
		return nil
	}

	now := s.now()
	reset := &passwordreset.PasswordReset{
		UserID:    dm.ID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreatePasswordReset(ctx, reset); err != nil {
		s.logger.ErrorContext(ctx, "forgot password: storing reset failed", "user_id", dm.ID, "error", err)
		return nil
	}

	event := events.NewPasswordResetRequestedEvent(dm.ID, dm.Email, dm.Name, BuildResetLink(s.cfg.AppURL, token, dm.Email), reset.ExpiresAt)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "forgot password: publishing event failed", "user_id", dm.ID, "error", err)
		}
	}

	s.observe("forgot_password", "issued")
	return nil
}

// ResetPassword consumes the newest usable reset for the user. The password
// change, the reset consumption and the session revocation commit together.
func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	dm, err := s.repo.GetUserByEmail(ctx, dto.Email)
	if err != nil {
		return errors.NewInternalError("Failed to load user", err)
	}
	if dm == nil {
		s.observe("reset_password", "failure")
		return errors.ErrInvalidResetToken
	}

	now := s.now()
	reset, err := s.repo.FindLatestUsablePasswordReset(ctx, dm.ID, now)
	if err != nil {
		return errors.NewInternalError("Failed to load reset", err)
	}
	if reset == nil || !s.hasher.Verify(reset.TokenHash, dto.Token) {
		s.observe("reset_password", "failure")
		return errors.ErrInvalidResetToken
	}

	passwordHash, err := s.hasher.Hash(dto.NewPassword)
	if err != nil {
		return errors.NewInternalError("Failed to hash password", err)
	}

	var revoked int64
	err = s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		used, err := tx.MarkPasswordResetUsed(ctx, reset.ID, now)
		if err != nil {
			return err
		}
		if used == 0 {
			return errors.ErrInvalidResetToken
		}
		if err := tx.UpdatePasswordHash(ctx, dm.ID, passwordHash); err != nil {
			return err
		}
		revoked, err = tx.RevokeAllSessions(ctx, dm.ID, now)
		return err
	})
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			s.observe("reset_password", "failure")
			return appErr
		}
		return errors.NewInternalError("Failed to reset password", err)
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", dm.ID, "sessions_revoked", revoked)
	s.observe("reset_password", "success")
	return nil
}

// EnsureAdmin creates the administrator account unless the email is already
// taken. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	return s.EnsureUser(ctx, adminName, email, password, user.RoleAdmin)
}

// EnsureUser is the idempotent account bootstrap behind EnsureAdmin and the
// seed command. An existing email is left untouched.
func (s *Service) EnsureUser(ctx context.Context, name, email, password string, role user.Role) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := user.ParseRole(string(role)); err != nil {
		return false, err
	}
	// Credentials the login endpoint would reject are refused here too.
	if appErr := (LoginDTO{Email: email, Password: password}).Validate(); appErr != nil {
		return false, appErr
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", email, err)
	}
	if existing != nil {
		return false, nil
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	dm := &userDatamodel.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         string(role),
	}
	if err := s.repo.CreateUser(ctx, dm); err != nil {
		if stdErrors.Is(err, ErrDuplicateEmail) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create %s: %w", email, err)
	}

	s.logger.InfoContext(ctx, "user bootstrapped", "email", email, "role", role)
	return true, nil
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.VerifyAccessToken(tokenString)
}

// BuildResetLink renders {appURL}/reset?token=<token>&email=<email>.
func BuildResetLink(appURL, token, email string) string {
	return strings.TrimRight(appURL, "/") + "/reset?token=" + url.QueryEscape(token) + "&email=" + url.QueryEscape(email)
}

func (s *Service) observe(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveAuthOutcome(operation, outcome)
	}
}
