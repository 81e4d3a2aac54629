package document

import (
	stdErrors "errors"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/transport"
	"github.com/frahmantamala/supplier-portal/pkg/logger"
)

const (
	// multipartMemory is kept in RAM while parsing; larger parts spill to disk.
	multipartMemory = 8 << 20
	// multipartOverhead allows for boundaries and the other form fields.
	multipartOverhead = 1 << 20
)

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	MaxUploadBytes int64
}

func NewHandler(svc ServiceAPI, maxUploadBytes int64) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(lg),
		Service:        svc,
		MaxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleServiceError(w, r, errors.ErrMissingToken)
		return
	}

	docs, err := h.Service.ListMine(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, docs)
}

// Upload accepts multipart/form-data with a "file" part and an optional
// "type" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleServiceError(w, r, errors.ErrMissingToken)
		return
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stdErrors.As(err, &tooLarge) {
			h.HandleServiceError(w, r, errors.ErrFileTooLarge)
			return
		}
		h.HandleServiceError(w, r, errors.ErrInvalidBody.WithCause(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.HandleServiceError(w, r, errors.ErrMissingFile.WithCause(err))
		return
	}
	defer file.Close()

	doc, err := h.Service.Upload(r.Context(), userID, UploadInput{
		Type:        r.FormValue("type"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, doc)
}
