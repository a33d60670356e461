package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/gigstastore/marketplace/internal/domain/cart"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the order state machine. Orders are created pending and move to
// completed via webhook reconciliation; expired is applied by the janitor to
// abandoned checkouts.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Order records a single seller's share of a checkout. Items are a snapshot
// taken at creation time; later product changes do not alter the order.
type Order struct {
	ID       string
	UserID   string
	SellerID string
	Items    []cart.Item

	TotalAmount       decimal.Decimal
	PlatformFeeAmount decimal.Decimal
	SellerAmount      decimal.Decimal

	IsRecurring bool
	Status      Status

	// CheckoutSessionID is the provider's session identifier, written back
	// after the provider acknowledges session creation. It is the webhook
	// reconciler's lookup key.
	CheckoutSessionID string
	// PaymentIntentID is populated only on completion.
	PaymentIntentID  string
	ConnectAccountID string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetBySessionID resolves an order from the provider's checkout session
	// identifier. Returns ErrNotFound when no order carries the session id.
	GetBySessionID(ctx context.Context, sessionID string) (*Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	// SetSessionID writes the provider session id onto an existing order.
	SetSessionID(ctx context.Context, id, sessionID string) error
	// Complete transitions the order to completed, recording the payment
	// intent and completion time.
	Complete(ctx context.Context, id, paymentIntentID string, completedAt time.Time) error
	// ExpirePending marks pending orders created before the cutoff as
	// expired and returns how many rows changed.
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}
