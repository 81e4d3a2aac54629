package auth

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
	"github.com/frahmantamala/supplier-portal/internal/transport"
	"github.com/frahmantamala/supplier-portal/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	tokens, err := h.Service.Register(r.Context(), dto, clientInfo(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, tokens)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto, clientInfo(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	resp, err := h.Service.RefreshAccessToken(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// Logout must run behind AuthMiddleware.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrMissingToken)
		return
	}

	var dto LogoutDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.Logout(r.Context(), principal.UserID, dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var dto ForgotPasswordDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.ForgotPassword(r.Context(), dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.ResetPassword(r.Context(), dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// AuthMiddleware admits requests carrying a valid bearer access token and
// attaches the caller's principal to the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			h.HandleServiceError(w, r, internal.ErrMissingToken)
			return
		}

		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.HandleServiceError(w, r, internal.ErrInvalidToken)
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}

		principal := &internal.Principal{
			UserID: claims.Subject,
			Role:   user.Role(claims.Role),
		}

		ctx := internal.ContextWithPrincipal(r.Context(), principal)
		ctx = logger.With(ctx, "user_id", principal.UserID, "role", principal.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientInfo records the peer address without its port. RemoteAddr only
// reflects X-Forwarded-For when the router trusts the proxy.
func clientInfo(r *http.Request) ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return ClientInfo{
		IP:        ip,
		UserAgent: r.UserAgent(),
	}
}
