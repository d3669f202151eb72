// Package auth guards the admin surface with a bearer credential: either
// the shared admin secret itself or an HS256 JWT signed with it.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/equihome/launchpad/internal/pkg/httputil"
	"github.com/equihome/launchpad/internal/pkg/logger"
)

const issuer = "launchpad"

var (
	ErrNotConfigured = errors.New("admin secret not configured")
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
)

// Admin identifies the caller of an admin route.
type Admin struct {
	// Email is empty when the raw shared secret was presented.
	Email  string
	Method string
}

// Claims are the JWT claims accepted on admin routes.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// WithAdmin stores a on the context.
func WithAdmin(ctx context.Context, a Admin) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// AdminFromContext returns the admin set by RequireAuth.
func AdminFromContext(ctx context.Context) (Admin, bool) {
	a, ok := ctx.Value(ctxKey{}).(Admin)
	return a, ok
}

// Manager verifies admin credentials.
type Manager struct {
	secret []byte
	now    func() time.Time
}

// NewManager creates a manager for the shared secret. An empty secret
// rejects every request.
func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret), now: time.Now}
}

// Configured reports whether a secret is set.
func (m *Manager) Configured() bool {
	return len(m.secret) > 0
}

// IssueToken signs an admin JWT for email valid for ttl.
func (m *Manager) IssueToken(email string, ttl time.Duration) (string, error) {
	if !m.Configured() {
		return "", ErrNotConfigured
	}
	now := m.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Authenticate checks an Authorization header value.
func (m *Manager) Authenticate(header string) (Admin, error) {
	if !m.Configured() {
		return Admin{}, ErrNotConfigured
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return Admin{}, ErrMissingToken
	}

	if subtle.ConstantTimeCompare([]byte(token), m.secret) == 1 {
		return Admin{Method: "secret"}, nil
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return Admin{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email := claims.Email
	if email == "" {
		email = claims.Subject
	}
	return Admin{Email: strings.ToLower(email), Method: "jwt"}, nil
}

// RequireAuth rejects requests without a valid admin credential with 401.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, err := m.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			logger.Warn("admin auth rejected", "path", r.URL.Path, "error", err)
			httputil.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), admin)))
	})
}
