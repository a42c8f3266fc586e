// Package token issues and verifies bearer tokens.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/config"
	"github.com/smallbiznis/roomlease/internal/identity"
)

var ErrInvalid = errors.New("invalid_token")

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

func NewManager(cfg config.Config, clk clock.Clock) (*Manager, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	ttl := cfg.AuthJWTTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret: []byte(secret),
		issuer: cfg.AuthJWTIssuer,
		ttl:    ttl,
		clock:  clk,
	}, nil
}

// Issue signs an HS256 token for caller.
func (m *Manager) Issue(caller identity.CallerIdentity) (string, error) {
	if caller.UserID == 0 {
		return "", fmt.Errorf("issue token: %w", ErrInvalid)
	}
	now := m.clock.Now()
	claims := Claims{
		Email: caller.Email,
		Role:  caller.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies raw and returns the caller it was issued for.
func (m *Manager) Parse(raw string) (identity.CallerIdentity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return identity.CallerIdentity{}, ErrInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return identity.CallerIdentity{}, ErrInvalid
	}

	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil || userID == 0 {
		return identity.CallerIdentity{}, ErrInvalid
	}
	role, ok := identity.ParseRole(claims.Role)
	if !ok {
		return identity.CallerIdentity{}, ErrInvalid
	}

	return identity.CallerIdentity{
		UserID: userID,
		Email:  identity.NormalizeEmail(claims.Email),
		Role:   role,
	}, nil
}

// FromHeader extracts the token from an "Authorization: Bearer" value.
func FromHeader(header string) (string, bool) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
