package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// User is the buy-side view of an account. The identity service
// authenticates users; this repository only supplies profile data the
// checkout flow needs (email for the provider, name for notifications).
type User struct {
	ID       string
	Email    string
	FullName string
}

// Repository defines read operations for user accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
