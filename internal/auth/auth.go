// Package auth is the narrow seam to the identity collaborator. The
// engine only needs a verified user id and role per request; issuing
// and validating credentials is someone else's job.
package auth

import (
	"context"
	"strings"

	"shopfront/internal/model"
)

// Role is the coarse authorisation level of a caller.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID string
	Role   Role
}

// Admin reports whether the identity may perform administrative
// operations.
func (i Identity) Admin() bool {
	return i.Role == RoleAdmin
}

// Resolver turns a request credential into a verified identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// keyResolver is the default resolver: the configured admin API key
// grants the admin role, and upstream-issued user tokens of the form
// "user-<id>" identify customers. Anything else is rejected.
type keyResolver struct {
	adminKey string
}

// NewKeyResolver creates the default token resolver.
func NewKeyResolver(adminKey string) Resolver {
	return &keyResolver{adminKey: adminKey}
}

// Resolve validates the token.
func (r *keyResolver) Resolve(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, model.ErrUnauthorised
	}
	if token == r.adminKey {
		return &Identity{UserID: "admin", Role: RoleAdmin}, nil
	}
	if userID, ok := strings.CutPrefix(token, "user-"); ok && userID != "" {
		return &Identity{UserID: userID, Role: RoleUser}, nil
	}
	return nil, model.ErrUnauthorised
}

type contextKey struct{}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// FromContext retrieves the identity set by the auth middleware.
func FromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(*Identity)
	return identity, ok
}
