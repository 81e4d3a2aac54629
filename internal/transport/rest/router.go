package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/supplier-portal/internal/auth"
	"github.com/frahmantamala/supplier-portal/internal/document"
	"github.com/frahmantamala/supplier-portal/internal/observability"
	"github.com/frahmantamala/supplier-portal/internal/supplier"
	"github.com/frahmantamala/supplier-portal/internal/transport/middleware"
	"github.com/frahmantamala/supplier-portal/internal/transport/swagger"
	"github.com/frahmantamala/supplier-portal/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

const openAPIPath = "/openapi.yml"

// RouterDeps carries everything the HTTP surface is built from. Nil handlers
// leave their routes unmounted.
type RouterDeps struct {
	AuthHandler     *auth.Handler
	Roles           *auth.RoleAuthorization
	UserHandler     *user.Handler
	SupplierHandler *supplier.Handler
	DocumentHandler *document.Handler
	HealthChecks    map[string]Checker

	// RateLimiter guards the credential endpoints when set.
	RateLimiter middleware.RouteLimiter

	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	MetricsPath    string

	AllowedOrigins []string
	OpenAPIFile    string

	// TrustProxy takes the client address from forwarding headers. Off, the
	// rate limiter and session records use the TCP peer address.
	TrustProxy bool
}

func RegisterAllRoutes(router *chi.Mux, deps RouterDeps, logger *slog.Logger) {
	healthHandler := NewHealthHandler(deps.HealthChecks)

	// Apply global middleware
	if deps.TrustProxy {
		router.Use(chiMiddleware.RealIP)
	}
	router.Use(middleware.ContextLogger(logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.SecureHeaders)
	router.Use(middleware.CORS(deps.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}

	if deps.MetricsHandler != nil && deps.MetricsPath != "" {
		router.Handle(deps.MetricsPath, deps.MetricsHandler)
	}

	// Serve the OpenAPI document at root (outside API prefix)
	if deps.OpenAPIFile != "" {
		router.Get(openAPIPath, func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, deps.OpenAPIFile)
		})
		router.Handle("/swagger/*", swagger.Handler(openAPIPath))
	}

	limit := func(route string) func(http.Handler) http.Handler {
		if deps.RateLimiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return deps.RateLimiter.Middleware(route)
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if deps.AuthHandler == nil {
			return
		}
		authHandler := deps.AuthHandler
		roles := deps.Roles
		if roles == nil {
			roles = auth.NewRoleAuthorization(logger)
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.With(limit("register")).Post("/register", authHandler.Register)
			ar.With(limit("login")).Post("/login", authHandler.Login)
			ar.With(limit("refresh")).Post("/refresh", authHandler.RefreshToken)
			ar.With(limit("forgot-password")).Post("/forgot-password", authHandler.ForgotPassword)
			ar.With(limit("reset-password")).Post("/reset-password", authHandler.ResetPassword)
			ar.With(authHandler.AuthMiddleware).Post("/logout", authHandler.Logout)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			if deps.UserHandler != nil {
				pr.Get("/users/me", deps.UserHandler.GetCurrentUser)
			}

			if deps.SupplierHandler != nil {
				pr.Route("/suppliers", func(sr chi.Router) {
					sr.Get("/my", deps.SupplierHandler.GetMine)

					sr.Group(func(staff chi.Router) {
						staff.Use(roles.RequireStaff())
						staff.Get("/", deps.SupplierHandler.Search)
						staff.Post("/{id}/iqf", deps.SupplierHandler.RecordIQF)
					})
				})
			}

			if deps.DocumentHandler != nil {
				pr.Route("/documents", func(dr chi.Router) {
					dr.Get("/my", deps.DocumentHandler.ListMine)
					dr.Post("/upload", deps.DocumentHandler.Upload)
				})
			}
		})
	})
}
