package supplier

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/transport"
	"github.com/frahmantamala/supplier-portal/pkg/logger"
	"github.com/go-chi/chi"
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

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleServiceError(w, r, errors.ErrMissingToken)
		return
	}

	profile, err := h.Service.GetMine(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.Service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, suppliers)
}

func (h *Handler) RecordIQF(w http.ResponseWriter, r *http.Request) {
	supplierID := chi.URLParam(r, "id")
	if supplierID == "" {
		h.HandleServiceError(w, r, errors.ErrSupplierNotFound)
		return
	}

	var dto RecordIQFDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	entry, err := h.Service.RecordIQF(r.Context(), supplierID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, entry)
}
