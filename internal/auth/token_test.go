package auth

import (
	"strings"
	"time"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("JWTTokenIssuer", func() {
	var (
		issuer *JWTTokenIssuer
		now    time.Time
	)

	ginkgo.BeforeEach(func() {
		now = time.Now()
		issuer = NewJWTTokenIssuer("test-secret-that-is-long-enough-for-hs256", 15*time.Minute)
		issuer.now = func() time.Time { return now }
	})

	ginkgo.Describe("IssueAccessToken", func() {
		ginkgo.It("should carry subject, role, issued-at and expiry", func() {
			token, err := issuer.IssueAccessToken("user-1", user.RoleAnalyst)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(strings.Count(token, ".")).To(gomega.Equal(2))

			claims, err := issuer.VerifyAccessToken(token)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.Subject).To(gomega.Equal("user-1"))
			gomega.Expect(claims.Role).To(gomega.Equal("ANALYST"))
			gomega.Expect(claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)).To(gomega.Equal(15 * time.Minute))
		})
	})

	ginkgo.Describe("VerifyAccessToken", func() {
		ginkgo.Context("with expired token", func() {
			ginkgo.It("should return token expired", func() {
				token, err := issuer.IssueAccessToken("user-1", user.RoleSupplier)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				now = now.Add(16 * time.Minute)

				_, err = issuer.VerifyAccessToken(token)
				gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
			})
		})

		ginkgo.Context("with a token signed by another secret", func() {
			ginkgo.It("should return invalid token", func() {
				other := NewJWTTokenIssuer("another-secret-that-is-long-enough-too", 15*time.Minute)
				token, _ := other.IssueAccessToken("user-1", user.RoleAdmin)

				_, err := issuer.VerifyAccessToken(token)
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
			})
		})

		ginkgo.Context("with a token using another algorithm", func() {
			ginkgo.It("should reject HS512", func() {
				claims := Claims{
					Role: "ADMIN",
					RegisteredClaims: jwt.RegisteredClaims{
						Subject:   "user-1",
						ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
					},
				}
				token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(issuer.Secret)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				_, err = issuer.VerifyAccessToken(token)
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
			})
		})

		ginkgo.Context("with claims the portal does not issue", func() {
			sign := func(claims Claims) string {
				token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.Secret)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				return token
			}

			ginkgo.It("should reject a token without expiry", func() {
				token := sign(Claims{Role: "ADMIN", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})
				_, err := issuer.VerifyAccessToken(token)
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
			})

			ginkgo.It("should reject an unknown role", func() {
				token := sign(Claims{Role: "ROOT", RegisteredClaims: jwt.RegisteredClaims{
					Subject:   "user-1",
					ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
				}})
				_, err := issuer.VerifyAccessToken(token)
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
			})

			ginkgo.It("should reject a token without subject", func() {
				token := sign(Claims{Role: "ADMIN", RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
				}})
				_, err := issuer.VerifyAccessToken(token)
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
			})
		})

		ginkgo.It("should reject garbage", func() {
			_, err := issuer.VerifyAccessToken("not.a.jwt")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})
})

var _ = ginkgo.Describe("Opaque tokens", func() {
	ginkgo.It("should generate distinct hex refresh tokens", func() {
		a, err := GenerateRefreshToken()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		b, _ := GenerateRefreshToken()

		gomega.Expect(a).To(gomega.MatchRegexp(`^[0-9a-f]{128}$`))
		gomega.Expect(a).ToNot(gomega.Equal(b))
	})

	ginkgo.It("should generate 32-byte reset tokens", func() {
		token, err := GenerateResetToken()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(token).To(gomega.MatchRegexp(`^[0-9a-f]{64}$`))
	})

	ginkgo.It("should hash refresh tokens deterministically", func() {
		gomega.Expect(HashRefreshToken("abc")).To(gomega.Equal("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"))
		gomega.Expect(HashRefreshToken("abc")).ToNot(gomega.Equal(HashRefreshToken("abd")))
	})
})
