package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

// Session modes on the payment provider.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// SessionLineItem references a pre-registered catalog price on the provider.
type SessionLineItem struct {
	PriceID  string
	Quantity int
}

// CreateSessionParams carries everything the provider needs to open a
// hosted payment collection flow routed to a seller's connected account.
//
// Fee encoding differs by mode: one-time payments carry a fixed
// application fee in minor units, subscriptions carry a percentage. Exactly
// one of ApplicationFeeMinor / ApplicationFeePercent is honored, selected
// by Mode.
type CreateSessionParams struct {
	ConnectAccountID string
	Mode             string
	LineItems        []SessionLineItem
	CustomerEmail    string
	// SuccessURL and CancelURL are where the hosted flow sends the buyer
	// after payment or abandonment.
	SuccessURL string
	CancelURL  string
	// Metadata is echoed back by the provider; the orchestrator stores the
	// internal order id here so webhooks can always be correlated.
	Metadata map[string]string

	ApplicationFeeMinor   int64
	ApplicationFeePercent decimal.Decimal
}

// ProviderSession is the decoded response for a provider checkout session.
type ProviderSession struct {
	ID              string
	URL             string
	PaymentIntentID string
	Status          string
}

// PaymentProvider is the slice of the payment provider API the checkout
// core consumes. Implementations decode provider payloads once at the API
// boundary; core logic never inspects raw provider responses.
type PaymentProvider interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*ProviderSession, error)
	// GetSession retrieves the authoritative session state, scoped to the
	// connected account the session was created on.
	GetSession(ctx context.Context, sessionID, connectAccountID string) (*ProviderSession, error)
}
