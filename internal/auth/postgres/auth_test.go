package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frahmantamala/supplier-portal/internal/auth"
	authPostgres "github.com/frahmantamala/supplier-portal/internal/auth/postgres"
	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/passwordreset"
	"github.com/frahmantamala/supplier-portal/internal/core/datamodel/session"
	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
	userDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAuthPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Postgres Suite")
}

var _ = Describe("Auth PostgreSQL Repository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *authPostgres.Repository
		now  time.Time
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		now = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		err = db.AutoMigrate(&supplierDatamodel.Supplier{}, &userDatamodel.User{},
			&session.Session{}, &passwordreset.PasswordReset{})
		Expect(err).NotTo(HaveOccurred())

		repo = authPostgres.NewRepository(db)
	})

	createUser := func(email string) *userDatamodel.User {
		u := &userDatamodel.User{Name: "Ana", Email: email, PasswordHash: "hash", Role: "SUPPLIER"}
		Expect(repo.CreateUser(ctx, u)).To(Succeed())
		return u
	}

	Describe("Users", func() {
		It("should create and look up a user by email and id", func() {
			u := createUser("ana@example.com")
			Expect(u.ID).To(HaveLen(36))

			byEmail, err := repo.GetUserByEmail(ctx, "ana@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(u.ID))

			byID, err := repo.GetUserByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Email).To(Equal("ana@example.com"))
		})

		It("should return nil for a missing user", func() {
			u, err := repo.GetUserByEmail(ctx, "missing@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNil())
		})

		It("should map a duplicate email to ErrDuplicateEmail", func() {
			createUser("ana@example.com")

			err := repo.CreateUser(ctx, &userDatamodel.User{Name: "Ana 2", Email: "ana@example.com", PasswordHash: "h", Role: "SUPPLIER"})
			Expect(errors.Is(err, auth.ErrDuplicateEmail)).To(BeTrue())
		})

		It("should update the password hash", func() {
			u := createUser("ana@example.com")

			Expect(repo.UpdatePasswordHash(ctx, u.ID, "new-hash")).To(Succeed())

			reloaded, _ := repo.GetUserByID(ctx, u.ID)
			Expect(reloaded.PasswordHash).To(Equal("new-hash"))
			Expect(repo.UpdatePasswordHash(ctx, "missing", "x")).To(MatchError(gorm.ErrRecordNotFound))
		})
	})

	Describe("Transaction", func() {
		It("should roll back the supplier when the user insert fails", func() {
			createUser("ana@example.com")

			err := repo.Transaction(ctx, func(tx auth.RepositoryAPI) error {
				s := &supplierDatamodel.Supplier{FantasyName: "X", LegalName: "X SA", DocumentID: "12345", Email: "x@x.com"}
				if err := tx.CreateSupplier(ctx, s); err != nil {
					return err
				}
				return tx.CreateUser(ctx, &userDatamodel.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "h", Role: "SUPPLIER", SupplierID: &s.ID})
			})
			Expect(errors.Is(err, auth.ErrDuplicateEmail)).To(BeTrue())

			var suppliers int64
			Expect(db.Model(&supplierDatamodel.Supplier{}).Count(&suppliers).Error).To(Succeed())
			Expect(suppliers).To(BeZero())
		})
	})

	Describe("Sessions", func() {
		var u *userDatamodel.User

		BeforeEach(func() {
			u = createUser("ana@example.com")
			for _, hash := range []string{"hash-a", "hash-b"} {
				Expect(repo.CreateSession(ctx, &session.Session{UserID: u.ID, RefreshTokenHash: hash, CreatedAt: now})).To(Succeed())
			}
		})

		It("should find a session by token hash", func() {
			s, err := repo.FindSessionByRefreshTokenHash(ctx, "hash-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.UserID).To(Equal(u.ID))
			Expect(s.CreatedAt).To(BeTemporally("==", now))
			Expect(s.RevokedAt).To(BeNil())

			missing, err := repo.FindSessionByRefreshTokenHash(ctx, "nope")
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(BeNil())
		})

		It("should revoke by token hash only for the owner", func() {
			n, err := repo.RevokeSessionByTokenHash(ctx, "someone-else", "hash-a", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			n, err = repo.RevokeSessionByTokenHash(ctx, u.ID, "hash-a", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			b, _ := repo.FindSessionByRefreshTokenHash(ctx, "hash-b")
			Expect(b.RevokedAt).To(BeNil())
		})

		It("should revoke all active sessions and keep the first revocation time", func() {
			s, _ := repo.FindSessionByRefreshTokenHash(ctx, "hash-a")
			Expect(repo.RevokeSession(ctx, s.ID, now)).To(Succeed())

			n, err := repo.RevokeAllSessions(ctx, u.ID, now.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			a, _ := repo.FindSessionByRefreshTokenHash(ctx, "hash-a")
			Expect(*a.RevokedAt).To(BeTemporally("==", now))
		})
	})

	Describe("Password resets", func() {
		var u *userDatamodel.User

		BeforeEach(func() {
			u = createUser("ana@example.com")
		})

		It("should return the newest unused, unexpired reset", func() {
			older := &passwordreset.PasswordReset{UserID: u.ID, TokenHash: "old", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
			newer := &passwordreset.PasswordReset{UserID: u.ID, TokenHash: "new", ExpiresAt: now.Add(2 * time.Hour), CreatedAt: now.Add(time.Minute)}
			Expect(repo.CreatePasswordReset(ctx, older)).To(Succeed())
			Expect(repo.CreatePasswordReset(ctx, newer)).To(Succeed())

			pr, err := repo.FindLatestUsablePasswordReset(ctx, u.ID, now.Add(2*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(pr.TokenHash).To(Equal("new"))
		})

		It("should ignore expired resets", func() {
			Expect(repo.CreatePasswordReset(ctx, &passwordreset.PasswordReset{UserID: u.ID, TokenHash: "h", ExpiresAt: now, CreatedAt: now.Add(-time.Hour)})).To(Succeed())

			pr, err := repo.FindLatestUsablePasswordReset(ctx, u.ID, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(pr).To(BeNil())
		})

		It("should mark a reset used exactly once", func() {
			pr := &passwordreset.PasswordReset{UserID: u.ID, TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
			Expect(repo.CreatePasswordReset(ctx, pr)).To(Succeed())

			n, err := repo.MarkPasswordResetUsed(ctx, pr.ID, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			n, err = repo.MarkPasswordResetUsed(ctx, pr.ID, now.Add(time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			usable, _ := repo.FindLatestUsablePasswordReset(ctx, u.ID, now)
			Expect(usable).To(BeNil())
		})
	})

	Describe("ResetPassword transaction", func() {
		var (
			hasher  *auth.Argon2Hasher
			service *auth.Service
			u       *userDatamodel.User
		)

		BeforeEach(func() {
			hasher = auth.NewArgon2Hasher(1024, 1, 1)
			service = auth.NewService(repo, nil, hasher, nil, auth.ServiceConfig{RefreshTokenTTLDays: 15, ResetTokenTTL: time.Hour}, nil)
			service.SetClock(func() time.Time { return now })

			u = createUser("ana@example.com")
			tokenHash, err := hasher.Hash("reset-token")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.CreatePasswordReset(ctx, &passwordreset.PasswordReset{UserID: u.ID, TokenHash: tokenHash, ExpiresAt: now.Add(time.Hour), CreatedAt: now})).To(Succeed())
			Expect(repo.CreateSession(ctx, &session.Session{UserID: u.ID, RefreshTokenHash: "hash-a", CreatedAt: now})).To(Succeed())
		})

		dto := auth.ResetPasswordDTO{Email: "ana@example.com", Token: "reset-token", NewPassword: "brand-new-secret"}

		It("should leave the password and the reset untouched when revoking sessions fails", func() {
			Expect(db.Migrator().DropTable(&session.Session{})).To(Succeed())

			Expect(service.ResetPassword(ctx, dto)).NotTo(Succeed())

			reloaded, err := repo.GetUserByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.PasswordHash).To(Equal("hash"))

			var pr passwordreset.PasswordReset
			Expect(db.First(&pr, "user_id = ?", u.ID).Error).To(Succeed())
			Expect(pr.UsedAt).To(BeNil())

			Expect(db.AutoMigrate(&session.Session{})).To(Succeed())
			Expect(service.ResetPassword(ctx, dto)).To(Succeed())
		})

		It("should commit the password, the reset and the revocation together", func() {
			Expect(service.ResetPassword(ctx, dto)).To(Succeed())

			reloaded, err := repo.GetUserByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hasher.Verify(reloaded.PasswordHash, "brand-new-secret")).To(BeTrue())

			var pr passwordreset.PasswordReset
			Expect(db.First(&pr, "user_id = ?", u.ID).Error).To(Succeed())
			Expect(pr.UsedAt).NotTo(BeNil())

			s, err := repo.FindSessionByRefreshTokenHash(ctx, "hash-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.RevokedAt).NotTo(BeNil())
		})
	})
})
