package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for checkout validation.
var (
	// ErrEmptyCart is returned when grouping yields no checkoutable groups.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrOrderNotFound is returned when a webhook references a session this
	// system never created, or one whose order write is not yet durable.
	// Callers should treat it as retryable or ignorable, not fatal.
	ErrOrderNotFound = errors.New("order not found for session")
)

// ConfigurationError indicates a product cannot be checked out because it
// lacks a usable catalog price reference on the payment provider.
type ConfigurationError struct {
	ProductID    string
	ProductTitle string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("product %q is missing billing price configuration", e.ProductTitle)
}

// SellerNotOnboardedError indicates a seller has no active connected
// account and cannot receive split payments.
type SellerNotOnboardedError struct {
	SellerID string
}

func (e *SellerNotOnboardedError) Error() string {
	return fmt.Sprintf("seller %s has not completed payment onboarding", e.SellerID)
}

// ProviderError wraps a failure from the payment provider API. The local
// order, if one was created, remains pending; callers decide whether to
// retry or surface the failure.
type ProviderError struct {
	Op string
	// CallerFault is true when the provider classified the request itself
	// as invalid (4xx), false for provider-side outages (5xx, transport).
	CallerFault bool
	Err         error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
