// Package auth checks the shared admin credential and issues signed session tokens.
// A verified token becomes a Capability, which the list service demands on publish and close.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
)

type Scope string

const (
	ScopeLists   Scope = "lists"
	ScopeCatalog Scope = "catalog"
	ScopeReports Scope = "reports"
)

var adminScopes = []Scope{ScopeLists, ScopeCatalog, ScopeReports}

// Capability can only be obtained from Sessions.Verify or Job. The zero value allows nothing.
type Capability struct {
	subject string
	scopes  []Scope
}

func (c Capability) Subject() string { return c.subject }

func (c Capability) Allows(s Scope) bool {
	for _, have := range c.scopes {
		if have == s {
			return true
		}
	}
	return false
}

// Job returns a capability for an in-process scheduled task.
func Job(name string, scopes ...Scope) Capability {
	return Capability{subject: "job:" + name, scopes: scopes}
}

// Credentials is the single shared admin login.
type Credentials struct {
	Username     string
	PasswordHash string
}

// Check compares in constant time. An empty hash disables login.
func (c Credentials) Check(username, password string) bool {
	if c.PasswordHash == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(c.Username)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	return userOK && passOK
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", apperr.Required("password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Revoker remembers logged-out token ids until they would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

const issuer = "weekly-orders"

type Sessions struct {
	secret  []byte
	ttl     time.Duration
	revoked Revoker
	now     func() time.Time
}

// NewSessions signs with HS256. revoked may be nil, in which case logout only clears the cookie.
func NewSessions(secret []byte, ttl time.Duration, revoked Revoker) *Sessions {
	return &Sessions{secret: secret, ttl: ttl, revoked: revoked, now: time.Now}
}

func (s *Sessions) Issue(subject string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

func (s *Sessions) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUnauthorized, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: incomplete session", apperr.ErrUnauthorized)
	}
	return claims, nil
}

// Verify turns a session token into an admin capability.
func (s *Sessions) Verify(ctx context.Context, token string) (Capability, error) {
	claims, err := s.parse(token)
	if err != nil {
		return Capability{}, err
	}
	if s.revoked != nil {
		gone, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Capability{}, fmt.Errorf("check revocation: %w", err)
		}
		if gone {
			return Capability{}, fmt.Errorf("%w: session revoked", apperr.ErrUnauthorized)
		}
	}
	return Capability{subject: claims.Subject, scopes: adminScopes}, nil
}

// Revoke invalidates token for the rest of its lifetime. Invalid or expired tokens are ignored.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil || s.revoked == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, ttl)
}
