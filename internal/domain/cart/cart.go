package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrItemNotFound is returned when updating a line that is not in the cart.
var ErrItemNotFound = errors.New("item not in cart")

// Item is a single line in a cart: a product reference and a quantity.
type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart holds a user's pending purchases. Carts are created lazily on first
// interaction and cleared rather than deleted.
type Cart struct {
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines persistence operations for carts. Get returns an empty
// cart (never an error) when the user has no stored cart yet.
type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	// RemoveItems deletes every line whose product id is in productIDs.
	// Missing lines are ignored.
	RemoveItems(ctx context.Context, userID string, productIDs []string) error
	Clear(ctx context.Context, userID string) error
}
