// Package token issues and verifies the bearer tokens that carry a
// principal between requests.
package token

import (
	"errors"
	"fmt"
	"time"

	autherrors "expobook/internal/auth/errors"
	"expobook/pkg/clock"
	"expobook/pkg/model"

	"github.com/golang-jwt/jwt/v4"
)

const issuer = "expobook"

type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs HS256 tokens with sub set to the user id.
type Manager struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewManager(secret string, ttl time.Duration, clk clock.Clock) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clk,
	}
}

func (m *Manager) Issue(user *model.User) (string, time.Time, error) {
	now := m.clock.Now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify returns the principal a valid, unexpired token was issued to.
// Expiry is judged by the manager's clock.
func (m *Manager) Verify(raw string) (model.Principal, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return model.Principal{}, errors.Join(autherrors.ErrInvalidToken, err)
	}
	if !claims.VerifyExpiresAt(m.clock.Now(), true) {
		return model.Principal{}, errors.Join(autherrors.ErrInvalidToken, jwt.ErrTokenExpired)
	}
	if !parsed.Valid || claims.Subject == "" || !claims.Role.Valid() || claims.Issuer != issuer {
		return model.Principal{}, autherrors.ErrInvalidToken
	}

	return model.Principal{ID: claims.Subject, Role: claims.Role}, nil
}
