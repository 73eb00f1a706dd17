// Package identity authenticates API requests with HMAC-signed bearer
// tokens and carries the caller's subject through the request context.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
)

var ErrUnauthenticated = errors.New("request is not authenticated")

// Identity is the authenticated caller.
type Identity struct {
	Subject string
}

type contextKey struct{}

// FromContext returns the authenticated identity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// WithIdentity attaches an identity to the context. Exposed for tests and
// in-process callers that bypass HTTP.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// RejectFunc writes the error response when authentication fails.
type RejectFunc func(http.ResponseWriter, *http.Request, error)

// Middleware verifies the bearer token on every request and stores the
// resulting identity in the context. An empty secret disables verification
// and assigns a fixed development subject.
func Middleware(secret string, reject RejectFunc) func(http.Handler) http.Handler {
	trimmedSecret := strings.TrimSpace(secret)
	if trimmedSecret == "" {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := WithIdentity(r.Context(), Identity{Subject: "dev"})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(trimmedSecret, r.Header.Get(headerAuthorization))
			if err != nil {
				reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func authenticate(secret, header string) (Identity, error) {
	provided := strings.TrimSpace(header)
	if !strings.HasPrefix(provided, bearerPrefix) {
		return Identity{}, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	raw := strings.TrimSpace(strings.TrimPrefix(provided, bearerPrefix))

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		raw,
		&claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return Identity{Subject: claims.Subject}, nil
}

// MintToken signs a short-lived HS256 token for the subject. Used by tests
// and local tooling.
func MintToken(secret, subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("mint token: secret is required")
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("mint token: subject is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return signed, nil
}
