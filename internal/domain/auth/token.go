package auth

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
)

// ErrTokenNotFound is returned when no active token matches a hash.
var ErrTokenNotFound = errors.New("token not found")

// ScopeAdmin marks tokens allowed to call administrative routes.
const ScopeAdmin = "admin"

// Identity is the authenticated principal resolved from a session token.
type Identity struct {
	UserID string
	Scopes []string
}

// IsAdmin reports whether the identity carries the admin scope.
func (id *Identity) IsAdmin() bool {
	return slices.Contains(id.Scopes, ScopeAdmin)
}

// TokenInfo is a stored session token record.
type TokenInfo struct {
	ID        string
	TokenHash string
	UserID    string
	Scopes    []string
}

// Repository provides lookup of session tokens by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*TokenInfo, error)
}
