package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
	"github.com/frahmantamala/supplier-portal/internal/transport"
)

// RoleAuthorization gates routes on the principal's role. It must be mounted
// after AuthMiddleware.
type RoleAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRoleAuthorization(logger *slog.Logger) *RoleAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		logger:      logger,
	}
}

// Require admits only principals whose role is one of roles: 401 when no
// principal is attached, 403 when the role is outside the list.
func (ra *RoleAuthorization) Require(roles ...user.Role) func(http.Handler) http.Handler {
	allowed := append([]user.Role(nil), roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := internal.PrincipalFromContext(r.Context())
			if !ok {
				ra.logger.WarnContext(r.Context(), "authorization check failed: no principal in context")
				ra.WriteAppError(w, internal.ErrMissingToken)
				return
			}

			if !user.RoleAllowed(principal.Role, allowed) {
				ra.logger.WarnContext(r.Context(), "access denied: role not allowed",
					"user_id", principal.UserID,
					"role", principal.Role,
					"allowed", allowed)
				ra.WriteAppError(w, internal.ErrInsufficientRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RoleAuthorization) RequireStaff() func(http.Handler) http.Handler {
	return ra.Require(user.StaffRoles...)
}
