package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
)

const (
	refreshTokenBytes = 64
	resetTokenBytes   = 32
)

func NewJWTTokenIssuer(secret string, accessTTL time.Duration) *JWTTokenIssuer {
	return &JWTTokenIssuer{
		Secret:         []byte(secret),
		AccessTokenTTL: accessTTL,
		now:            time.Now,
	}
}

func (g *JWTTokenIssuer) IssueAccessToken(userID string, role user.Role) (string, error) {
	now := g.clock()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken accepts only HS256 tokens signed with the issuer secret
// that carry an expiry, a subject and a known role.
func (g *JWTTokenIssuer) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return g.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.clock),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired.WithCause(err)
		}
		return nil, internal.ErrInvalidToken.WithCause(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, internal.ErrInvalidToken
	}
	if _, err := user.ParseRole(claims.Role); err != nil {
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	return claims, nil
}

func (g *JWTTokenIssuer) clock() time.Time {
	if g.now == nil {
		return time.Now()
	}
	return g.now()
}

// GenerateRefreshToken returns 64 random bytes, hex encoded.
func GenerateRefreshToken() (string, error) {
	return randomHex(refreshTokenBytes)
}

// GenerateResetToken returns 32 random bytes, hex encoded.
func GenerateResetToken() (string, error) {
	return randomHex(resetTokenBytes)
}

// HashRefreshToken is the hex SHA-256 stored as the session lookup key.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
