package seller

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested seller does not exist.
var ErrNotFound = errors.New("seller not found")

// PayoutStatus tracks how far a seller has progressed through payment
// provider onboarding.
type PayoutStatus string

const (
	// PayoutNotApplied means the seller has never started onboarding.
	PayoutNotApplied PayoutStatus = "not_applied"
	// PayoutPending means a connected account exists but the provider has
	// not yet enabled charges and payouts.
	PayoutPending PayoutStatus = "pending"
	// PayoutActive means the connected account can take charges and
	// receive payouts; only active sellers participate in checkout.
	PayoutActive PayoutStatus = "active"
)

// Seller is the sell-side view of a user account.
type Seller struct {
	ID          string
	DisplayName string
	Email       string

	// ConnectAccountID is the seller's account on the payment provider.
	// Empty until the seller starts onboarding.
	ConnectAccountID string
	PayoutStatus     PayoutStatus
}

// Onboarded reports whether the seller can receive split payments.
func (s *Seller) Onboarded() bool {
	return s.ConnectAccountID != "" && s.PayoutStatus == PayoutActive
}

// Repository defines persistence operations for sellers.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Seller, error)
	GetByIDs(ctx context.Context, ids []string) ([]Seller, error)
	// GetByConnectAccount resolves a seller from the payment provider's
	// connected account identifier, as delivered in webhook events.
	GetByConnectAccount(ctx context.Context, accountID string) (*Seller, error)
	UpdatePayoutStatus(ctx context.Context, id string, status PayoutStatus) error
	// ResetBilling clears the seller's connected account reference and
	// reverts payout status to not_applied.
	ResetBilling(ctx context.Context, id string) error
}
