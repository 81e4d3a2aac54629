package auth_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/auth"
	authPostgres "github.com/frahmantamala/supplier-portal/internal/auth/postgres"
	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/passwordreset"
	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/session"
	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
	"github.com/frahmantamala/supplier-portal/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func jsonBody(v interface{}) *bytes.Reader {
	b, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return bytes.NewReader(b)
}

func decodeError(w *httptest.ResponseRecorder) internal.AppError {
	var body struct {
		Error internal.AppError `json:"error"`
	}
	Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
	return body.Error
}

var _ = Describe("Auth Handler Integration", func() {
	var (
		db      *gorm.DB
		service *auth.Service
		handler *auth.Handler
		roles   *auth.RoleAuthorization
		slogger *slog.Logger
	)

	BeforeEach(func() {
		var err error
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		err = db.AutoMigrate(&supplierDatamodel.Supplier{}, &supplierDatamodel.IQFHistory{},
			&userDatamodel.User{}, &session.Session{}, &passwordreset.PasswordReset{})
		Expect(err).NotTo(HaveOccurred())

		repo := authPostgres.NewRepository(db)
		tokens := auth.NewJWTTokenIssuer("handler-test-secret-long-enough-for-hs256", 15*time.Minute)
		service = auth.NewService(repo, tokens, auth.NewArgon2Hasher(1024, 1, 1), nil, auth.ServiceConfig{
			RefreshTokenTTLDays: 15,
			ResetTokenTTL:       time.Hour,
			AppURL:              "http://localhost:3000",
		}, slogger)

		handler = auth.NewHandler(service)
		handler.BaseHandler = &transport.BaseHandler{Logger: slogger}
		roles = auth.NewRoleAuthorization(slogger)
	})

	register := func(email string) auth.AuthTokens {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", jsonBody(map[string]interface{}{
			"name":     "Joana Souza",
			"email":    email,
			"password": "supersecret",
			"supplier": map[string]string{
				"fantasyName": "Metalurgica Sul",
				"legalName":   "Metalurgica Sul SA",
				"documentId":  "98765432000111",
				"email":       "contato@metalsul.com",
			},
		}))
		req.RemoteAddr = "192.0.2.10:51234"
		w := httptest.NewRecorder()

		handler.Register(w, req)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var tokens auth.AuthTokens
		Expect(json.NewDecoder(w.Body).Decode(&tokens)).To(Succeed())
		return tokens
	}

	It("should handle POST /auth/register and record the client address", func() {
		tokens := register("joana@metalsul.com")
		Expect(tokens.AccessToken).NotTo(BeEmpty())
		Expect(tokens.RefreshToken).NotTo(BeEmpty())

		var sess session.Session
		Expect(db.First(&sess).Error).To(Succeed())
		Expect(sess.IP).To(Equal("192.0.2.10"))
	})

	It("should answer a duplicate registration with 409", func() {
		register("joana@metalsul.com")

		req := httptest.NewRequest(http.MethodPost, "/auth/register", jsonBody(map[string]string{
			"name": "Joana", "email": "joana@metalsul.com", "password": "supersecret",
		}))
		w := httptest.NewRecorder()
		handler.Register(w, req)

		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(decodeError(w).Code).To(Equal(internal.ErrCodeEmailTaken))
	})

	It("should reject malformed JSON with 400", func() {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not json"))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(w).Code).To(Equal(internal.ErrCodeInvalidBody))
	})

	It("should list field errors on an invalid login", func() {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(map[string]string{"email": "x", "password": "1"}))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var body map[string]map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["error"]["type"]).To(Equal("VALIDATION_ERROR"))
		Expect(body["error"]["details"]).To(HaveKey("errors"))
	})

	It("should return 401 with a uniform message on bad credentials", func() {
		register("joana@metalsul.com")

		for _, creds := range []map[string]string{
			{"email": "joana@metalsul.com", "password": "wrong-password"},
			{"email": "nobody@metalsul.com", "password": "supersecret"},
		} {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(creds))
			w := httptest.NewRecorder()
			handler.Login(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			appErr := decodeError(w)
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidCredentials))
			Expect(appErr.Message).To(Equal("Invalid credentials"))
		}
	})

	It("should refresh and then log out through the middleware", func() {
		tokens := register("joana@metalsul.com")

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", jsonBody(map[string]string{"refreshToken": tokens.RefreshToken}))
		w := httptest.NewRecorder()
		handler.RefreshToken(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
		var refreshed auth.AccessTokenResponse
		Expect(json.NewDecoder(w.Body).Decode(&refreshed)).To(Succeed())
		Expect(refreshed.AccessToken).NotTo(BeEmpty())

		logout := handler.AuthMiddleware(http.HandlerFunc(handler.Logout))
		req = httptest.NewRequest(http.MethodPost, "/auth/logout", jsonBody(map[string]string{"refreshToken": tokens.RefreshToken}))
		req.Header.Set("Authorization", "Bearer "+refreshed.AccessToken)
		w = httptest.NewRecorder()
		logout.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"ok":true}`))

		req = httptest.NewRequest(http.MethodPost, "/auth/refresh", jsonBody(map[string]string{"refreshToken": tokens.RefreshToken}))
		w = httptest.NewRecorder()
		handler.RefreshToken(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(decodeError(w).Code).To(Equal(internal.ErrCodeInvalidRefreshToken))
	})

	It("should log out every session when the body is empty", func() {
		tokens := register("joana@metalsul.com")

		logout := handler.AuthMiddleware(http.HandlerFunc(handler.Logout))
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		w := httptest.NewRecorder()
		logout.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))

		var active int64
		Expect(db.Model(&session.Session{}).Where("revoked_at IS NULL").Count(&active).Error).To(Succeed())
		Expect(active).To(BeZero())
	})

	It("should answer forgot-password identically for unknown emails", func() {
		register("joana@metalsul.com")

		var bodies []string
		for _, email := range []string{"joana@metalsul.com", "ghost@metalsul.com"} {
			req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password", jsonBody(map[string]string{"email": email}))
			w := httptest.NewRecorder()
			handler.ForgotPassword(w, req)
			Expect(w.Code).To(Equal(http.StatusOK))
			bodies = append(bodies, w.Body.String())
		}
		Expect(bodies[0]).To(Equal(bodies[1]))

		var resets int64
		Expect(db.Model(&passwordreset.PasswordReset{}).Count(&resets).Error).To(Succeed())
		Expect(resets).To(Equal(int64(1)))
	})

	It("should reject an invalid reset token with 401", func() {
		register("joana@metalsul.com")

		req := httptest.NewRequest(http.MethodPost, "/auth/reset-password", jsonBody(map[string]string{
			"email": "joana@metalsul.com", "token": "bogus", "newPassword": "another-secret",
		}))
		w := httptest.NewRecorder()
		handler.ResetPassword(w, req)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(decodeError(w).Code).To(Equal(internal.ErrCodeInvalidResetToken))
	})

	Describe("AuthMiddleware", func() {
		var protected http.Handler

		BeforeEach(func() {
			protected = handler.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal, ok := internal.PrincipalFromContext(r.Context())
				Expect(ok).To(BeTrue())
				w.Header().Set("X-Role", string(principal.Role))
				w.WriteHeader(http.StatusNoContent)
			}))
		})

		It("should return MISSING_TOKEN without an Authorization header", func() {
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(w).Code).To(Equal(internal.ErrCodeMissingToken))
		})

		It("should return INVALID_TOKEN for a non-bearer header", func() {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(w).Code).To(Equal(internal.ErrCodeInvalidToken))
		})

		It("should return INVALID_TOKEN for a tampered token", func() {
			tokens := register("joana@metalsul.com")
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			req.Header.Set("Authorization", "Bearer "+tokens.AccessToken+"x")
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(w).Code).To(Equal(internal.ErrCodeInvalidToken))
		})

		It("should attach the principal for a valid token", func() {
			tokens := register("joana@metalsul.com")
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(w.Header().Get("X-Role")).To(Equal("SUPPLIER"))
		})
	})

	Describe("RoleAuthorization", func() {
		var staffOnly http.Handler

		BeforeEach(func() {
			staffOnly = roles.RequireStaff()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
		})

		serveAs := func(role user.Role) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/suppliers", nil)
			if role != "" {
				req = req.WithContext(internal.ContextWithPrincipal(req.Context(), &internal.Principal{UserID: "u-1", Role: role}))
			}
			w := httptest.NewRecorder()
			staffOnly.ServeHTTP(w, req)
			return w
		}

		It("should admit ADMIN and ANALYST", func() {
			Expect(serveAs(user.RoleAdmin).Code).To(Equal(http.StatusNoContent))
			Expect(serveAs(user.RoleAnalyst).Code).To(Equal(http.StatusNoContent))
		})

		It("should forbid SUPPLIER", func() {
			w := serveAs(user.RoleSupplier)
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(w).Code).To(Equal(internal.ErrCodeInsufficientRole))
		})

		It("should return 401 without a principal", func() {
			w := serveAs("")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
