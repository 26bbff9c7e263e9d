/**
 * Sync: echo write-token
 * @description: opaque signed token carried through the push→webhook
 *               round trip; an inbound update matching an outstanding
 *               token for the same lead is the echo, independent of
 *               elapsed time
 * @func: TokenService
 */
package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenRegistry stores outstanding token ids per lead.
type TokenRegistry interface {
	Register(ctx context.Context, externalID int64, tokenID string, ttl time.Duration) error
	Consume(ctx context.Context, externalID int64, tokenID string) bool
}

// TokenService mints and matches echo write-tokens. The token is a
// signed JWT so a peer cannot forge one, and its id is registered in
// the shared registry so each push suppresses exactly one echo.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	registry TokenRegistry
	now      func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(secret string, ttl time.Duration, registry TokenRegistry) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		ttl:      ttl,
		registry: registry,
		now:      time.Now,
	}
}

// Mint creates and registers a token for an outbound push on the lead.
func (s *TokenService) Mint(ctx context.Context, externalID int64) (string, error) {
	tokenID := uuid.NewString()
	now := s.now()

	claims := jwt.RegisteredClaims{
		ID:        tokenID,
		Subject:   strconv.FormatInt(externalID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign write token: %w", err)
	}

	if err := s.registry.Register(ctx, externalID, tokenID, s.ttl); err != nil {
		return "", err
	}
	return signed, nil
}

// IsEcho reports whether an inbound token is the unexpired outstanding
// token for the lead. Matching consumes the registration. Any parse or
// signature failure reports false; the wall-clock guard still applies.
func (s *TokenService) IsEcho(ctx context.Context, externalID int64, token string) bool {
	if token == "" {
		return false
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return false
	}
	if claims.Subject != strconv.FormatInt(externalID, 10) {
		return false
	}
	return s.registry.Consume(ctx, externalID, claims.ID)
}
