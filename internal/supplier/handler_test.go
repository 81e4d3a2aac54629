package supplier_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
	"github.com/frahmantamala/supplier-portal/internal/supplier"
	supplierPostgres "github.com/frahmantamala/supplier-portal/internal/supplier/postgres"
	"github.com/frahmantamala/supplier-portal/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func asPrincipal(r *http.Request, userID string, role user.Role) *http.Request {
	return r.WithContext(internal.ContextWithPrincipal(r.Context(), &internal.Principal{UserID: userID, Role: role}))
}

var _ = Describe("Supplier Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *supplier.Handler
		router  *chi.Mux
	)

	BeforeEach(func() {
		db = newTestDB()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := supplier.NewService(supplierPostgres.NewRepository(db), slogger)
		handler = supplier.NewHandler(service)
		handler.BaseHandler = &transport.BaseHandler{Logger: slogger}

		router = chi.NewRouter()
		router.Get("/suppliers/my", handler.GetMine)
		router.Get("/suppliers", handler.Search)
		router.Post("/suppliers/{id}/iqf", handler.RecordIQF)
	})

	It("should handle GET /suppliers/my for the owner", func() {
		s := seedSupplier(db, "Acme", "Acme LTDA", "11222333000144", time.Now())
		owner := seedOwner(db, "carlos@acme.com", &s.ID)

		req := asPrincipal(httptest.NewRequest(http.MethodGet, "/suppliers/my", nil), owner.ID, user.RoleSupplier)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var body map[string]map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["user"]).To(HaveKeyWithValue("email", "carlos@acme.com"))
		Expect(body["user"]).NotTo(HaveKey("passwordHash"))
		Expect(body["supplier"]).To(HaveKeyWithValue("fantasyName", "Acme"))
	})

	It("should answer 404 when the caller has no supplier", func() {
		owner := seedOwner(db, "staff@example.com", nil)

		req := asPrincipal(httptest.NewRequest(http.MethodGet, "/suppliers/my", nil), owner.ID, user.RoleAnalyst)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 401 without a principal", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suppliers/my", nil))

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should handle GET /suppliers?q= and return an array", func() {
		seedSupplier(db, "Acme", "Acme LTDA", "11222333000144", time.Now())
		seedSupplier(db, "Outra", "Outra SA", "55666777000188", time.Now())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suppliers?q=acme", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var result []supplier.Supplier
		Expect(json.NewDecoder(w.Body).Decode(&result)).To(Succeed())
		Expect(result).To(HaveLen(1))
		Expect(result[0].FantasyName).To(Equal("Acme"))
	})

	It("should return an empty array rather than null", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suppliers?q=nothing", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`[]`))
	})

	It("should handle POST /suppliers/{id}/iqf with 201", func() {
		s := seedSupplier(db, "Acme", "Acme LTDA", "11222333000144", time.Now())

		body, _ := json.Marshal(map[string]interface{}{"monthRef": "2025-06-01", "iqfScore": 88, "notes": "ok"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/suppliers/"+s.ID+"/iqf", bytes.NewReader(body)))

		Expect(w.Code).To(Equal(http.StatusCreated))
		var entry supplier.IQFEntry
		Expect(json.NewDecoder(w.Body).Decode(&entry)).To(Succeed())
		Expect(entry.SupplierID).To(Equal(s.ID))
		Expect(entry.IQFScore).To(Equal(88.0))
		Expect(*entry.Notes).To(Equal("ok"))

		profile, err := supplier.NewService(supplierPostgres.NewRepository(db), nil).Search(context.Background(), "acme")
		Expect(err).NotTo(HaveOccurred())
		Expect(*profile[0].IQFScore).To(Equal(88.0))
	})

	It("should answer 404 for an unknown supplier id", func() {
		body, _ := json.Marshal(map[string]interface{}{"monthRef": "2025-06-01", "iqfScore": 88})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/suppliers/does-not-exist/iqf", bytes.NewReader(body)))

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 400 with INVALID_SCORE details", func() {
		s := seedSupplier(db, "Acme", "Acme LTDA", "11222333000144", time.Now())

		body, _ := json.Marshal(map[string]interface{}{"monthRef": "2025-06-01", "iqfScore": 140})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/suppliers/"+s.ID+"/iqf", bytes.NewReader(body)))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(`"code":"INVALID_SCORE"`))
	})
})
