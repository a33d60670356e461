// Package billing keeps the payment provider's catalog in step with local
// products and exposes provider-side account administration.
package billing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// CatalogRef identifies a product and price pair on the provider's catalog.
type CatalogRef struct {
	ProductID string
	PriceID   string
}

// Invoice is a decoded provider invoice for a subscription.
type Invoice struct {
	ID          string
	Number      string
	AmountMinor int64
	Currency    string
	Status      string
	CreatedAt   time.Time
}

// Provider is the provider API surface billing consumes.
type Provider interface {
	CreateCatalogProduct(ctx context.Context, connectAccountID, title, description, category string, priceMinor int64, recurring bool, interval string) (*CatalogRef, error)
	UpdateCatalogProduct(ctx context.Context, connectAccountID, providerProductID, title, description string) error
	// RotatePrice archives the old price and registers a new one, returning
	// the new price id.
	RotatePrice(ctx context.Context, connectAccountID, providerProductID, oldPriceID string, priceMinor int64, recurring bool, interval string) (string, error)
	ArchiveCatalogProduct(ctx context.Context, connectAccountID, providerProductID string) error
	ListInvoices(ctx context.Context, connectAccountID string, limit int) ([]Invoice, error)
	DeleteAccount(ctx context.Context, connectAccountID string) error
}

// ErrNoInterval is returned when a recurring catalog entry lacks a billing
// interval.
var ErrNoInterval = errors.New("interval is required for recurring products")

// Service wraps Provider with local validation.
type Service struct {
	provider Provider
}

// NewService creates a billing Service.
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// RegisterProduct creates the provider-side product and price for a local
// listing and returns the catalog references to persist on it.
func (s *Service) RegisterProduct(ctx context.Context, connectAccountID, title, description, category string, price decimal.Decimal, recurring bool, interval string) (*CatalogRef, error) {
	if recurring && interval == "" {
		return nil, ErrNoInterval
	}
	if !recurring {
		interval = ""
	}
	priceMinor := price.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
	ref, err := s.provider.CreateCatalogProduct(ctx, connectAccountID, title, description, category, priceMinor, recurring, interval)
	if err != nil {
		return nil, errors.Wrap(err, "create catalog product")
	}
	return ref, nil
}

// UpdateProduct pushes title/description changes, and when updatePrice is
// set rotates the price, returning the current price id either way.
func (s *Service) UpdateProduct(ctx context.Context, connectAccountID string, ref CatalogRef, title, description string, price decimal.Decimal, recurring bool, interval string, updatePrice bool) (string, error) {
	if err := s.provider.UpdateCatalogProduct(ctx, connectAccountID, ref.ProductID, title, description); err != nil {
		return "", errors.Wrap(err, "update catalog product")
	}
	if !updatePrice {
		return ref.PriceID, nil
	}
	priceMinor := price.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
	newPriceID, err := s.provider.RotatePrice(ctx, connectAccountID, ref.ProductID, ref.PriceID, priceMinor, recurring, interval)
	if err != nil {
		return "", errors.Wrap(err, "rotate price")
	}
	return newPriceID, nil
}

// ArchiveProduct deactivates the provider-side product.
func (s *Service) ArchiveProduct(ctx context.Context, connectAccountID, providerProductID string) error {
	return s.provider.ArchiveCatalogProduct(ctx, connectAccountID, providerProductID)
}

// ListInvoices returns recent invoices for a seller's connected account.
func (s *Service) ListInvoices(ctx context.Context, connectAccountID string, limit int) ([]Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.provider.ListInvoices(ctx, connectAccountID, limit)
}

// DeleteAccount removes the connected account at the provider. Used by the
// admin reset flow.
func (s *Service) DeleteAccount(ctx context.Context, connectAccountID string) error {
	return s.provider.DeleteAccount(ctx, connectAccountID)
}
