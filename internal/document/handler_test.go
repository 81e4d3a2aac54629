package document_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
	"github.com/frahmantamala/supplier-portal/internal/document"
	documentPostgres "github.com/frahmantamala/supplier-portal/internal/document/postgres"
	"github.com/frahmantamala/supplier-portal/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func asSupplier(r *http.Request, userID string) *http.Request {
	return r.WithContext(internal.ContextWithPrincipal(r.Context(), &internal.Principal{UserID: userID, Role: user.RoleSupplier}))
}

func multipartBody(fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		Expect(mw.WriteField(k, v)).To(Succeed())
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		Expect(err).NotTo(HaveOccurred())
		_, err = fw.Write([]byte(content))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(mw.Close()).To(Succeed())
	return &buf, mw.FormDataContentType()
}

var _ = Describe("Document Handler Integration", func() {
	var (
		db     *gorm.DB
		store  *memoryStorage
		router *chi.Mux
	)

	newRouter := func(maxBytes int64) *chi.Mux {
		service := document.NewService(documentPostgres.NewRepository(db), store, maxBytes, quietLogger)
		handler := document.NewHandler(service, maxBytes)
		handler.BaseHandler = &transport.BaseHandler{Logger: quietLogger}

		r := chi.NewRouter()
		r.Get("/documents/my", handler.ListMine)
		r.Post("/documents/upload", handler.Upload)
		return r
	}

	BeforeEach(func() {
		db = newTestDB()
		store = newMemoryStorage()
		router = newRouter(1024)
	})

	It("should accept an upload and list it afterwards", func() {
		owner := seedOwner(db, "carlos@acme.com", true)

		body, contentType := multipartBody(map[string]string{"type": "ALVARA"}, "alvara.pdf", "%PDF-1.4")
		req := asSupplier(httptest.NewRequest(http.MethodPost, "/documents/upload", body), owner.ID)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var created map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created).To(HaveKeyWithValue("type", "ALVARA"))
		Expect(created).To(HaveKeyWithValue("originalName", "alvara.pdf"))
		Expect(created).To(HaveKeyWithValue("sizeBytes", BeNumerically("==", 8)))
		Expect(store.count()).To(Equal(1))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, asSupplier(httptest.NewRequest(http.MethodGet, "/documents/my", nil), owner.ID))

		Expect(w.Code).To(Equal(http.StatusOK))
		var listed []map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(HaveLen(1))
		Expect(listed[0]).To(HaveKeyWithValue("id", created["id"]))
	})

	It("should answer an empty array when nothing was uploaded", func() {
		owner := seedOwner(db, "carlos@acme.com", true)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, asSupplier(httptest.NewRequest(http.MethodGet, "/documents/my", nil), owner.ID))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(strings.TrimSpace(w.Body.String())).To(Equal("[]"))
	})

	It("should answer 400 MISSING_FILE without a file part", func() {
		owner := seedOwner(db, "carlos@acme.com", true)

		body, contentType := multipartBody(map[string]string{"type": "ALVARA"}, "", "")
		req := asSupplier(httptest.NewRequest(http.MethodPost, "/documents/upload", body), owner.ID)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(`"code":"MISSING_FILE"`))
	})

	It("should answer 400 INVALID_BODY for a non-multipart body", func() {
		owner := seedOwner(db, "carlos@acme.com", true)

		req := asSupplier(httptest.NewRequest(http.MethodPost, "/documents/upload", strings.NewReader("{}")), owner.ID)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(`"code":"INVALID_BODY"`))
	})

	It("should answer 413 FILE_TOO_LARGE for a file over the limit", func() {
		owner := seedOwner(db, "carlos@acme.com", true)

		body, contentType := multipartBody(nil, "big.pdf", strings.Repeat("x", 2048))
		req := asSupplier(httptest.NewRequest(http.MethodPost, "/documents/upload", body), owner.ID)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
		Expect(w.Body.String()).To(ContainSubstring(`"code":"FILE_TOO_LARGE"`))
		Expect(store.count()).To(BeZero())
	})

	It("should answer 404 when the caller has no supplier", func() {
		owner := seedOwner(db, "staff@example.com", false)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, asSupplier(httptest.NewRequest(http.MethodGet, "/documents/my", nil), owner.ID))

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 401 without a principal", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/my", nil))

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})
