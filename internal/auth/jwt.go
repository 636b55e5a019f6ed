package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/AzenoHI/travel-hi/pkg/e"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and verifies HS256 bearer tokens. The scheme is the
// conventional one: subject carries the user id, expiry from the
// configured TTL.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

type Claims struct {
	Username string `json:"name"`
	jwt.RegisteredClaims
}

func (m *TokenManager) Issue(userID uuid.UUID, username string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth.Issue: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the user id and username.
func (m *TokenManager) Verify(raw string) (uuid.UUID, string, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", fmt.Errorf("auth.Verify: %w", errors.Join(err, e.ErrUnauthorized))
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("auth.Verify: bad claims: %w", e.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("auth.Verify: bad subject: %w", e.ErrUnauthorized)
	}

	return userID, claims.Username, nil
}
