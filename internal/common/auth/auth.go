// Package auth resolves bearer tokens to actors and decides who may act as an
// admin.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"accelerator-admin/internal/common/errors"
)

// Actor is the authenticated caller of an admin operation.
type Actor struct {
	ID    string
	Email string
	Roles []string
}

// HasRole reports whether the token carried role, case-insensitively.
func (a *Actor) HasRole(role string) bool {
	if a == nil || role == "" {
		return false
	}
	for _, r := range a.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IdentityResolver turns a raw bearer token into an Actor. Rejected tokens
// return an Unauthenticated error.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*Actor, error)
}

type actorKey struct{}

// WithActor stores the actor on ctx.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored by WithActor, or nil.
func ActorFrom(ctx context.Context) *Actor {
	a, _ := ctx.Value(actorKey{}).(*Actor)
	return a
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens locally with a shared secret.
type JWTVerifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTVerifier{secret: []byte(secret), opts: opts}
}

func (v *JWTVerifier) Resolve(ctx context.Context, token string) (*Actor, error) {
	if len(v.secret) == 0 {
		return nil, errors.NewUnauthenticatedError("token verification is not configured")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		return nil, errors.NewUnauthenticatedError("invalid token: " + err.Error())
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.NewUnauthenticatedError("token has no subject")
	}

	roles := append([]string(nil), claims.Roles...)
	if claims.Role != "" {
		roles = append(roles, claims.Role)
	}
	return &Actor{ID: claims.Subject, Email: claims.Email, Roles: roles}, nil
}
