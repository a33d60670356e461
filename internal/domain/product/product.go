package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Status enumerates the lifecycle states of a catalog listing.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Product represents a catalog listing owned by a seller. The checkout core
// treats it as read-only reference data.
type Product struct {
	ID          string
	SellerID    string
	Title       string
	Description string
	Price       decimal.Decimal
	Category    string
	Status      Status
	IsRecurring bool

	// BillingProductID and BillingPriceID reference the pre-registered
	// product and price objects on the payment provider's catalog. A product
	// without a BillingPriceID cannot be checked out.
	BillingProductID string
	BillingPriceID   string
}

// Checkoutable reports whether the product can participate in checkout.
func (p *Product) Checkoutable() bool {
	return p.Status == StatusPublished && p.BillingPriceID != ""
}

// Repository defines persistence operations for the product catalog. The
// checkout core only reads; SetBillingRefs exists for the billing sync flow
// that registers products on the payment provider's catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Product, error)
	SetBillingRefs(ctx context.Context, id, billingProductID, billingPriceID string) error
}
