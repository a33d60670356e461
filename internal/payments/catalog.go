package payments

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gigstastore/marketplace/internal/domain/billing"
)

// catalogProductDTO is the wire shape of a provider catalog product.
type catalogProductDTO struct {
	ID string `json:"id"`
}

// priceDTO is the wire shape of a provider price.
type priceDTO struct {
	ID string `json:"id"`
}

// CreateCatalogProduct registers a product and its price on the seller's
// connected account. Recurring prices carry a billing interval.
func (c *Client) CreateCatalogProduct(ctx context.Context, connectAccountID, title, description, category string, priceMinor int64, recurring bool, interval string) (*billing.CatalogRef, error) {
	form := url.Values{}
	form.Set("name", title)
	form.Set("description", description)
	form.Set("metadata[category]", category)
	form.Set("metadata[is_recurring]", strconv.FormatBool(recurring))

	var productDTO catalogProductDTO
	if err := c.do(ctx, "create catalog product", http.MethodPost, "/v1/products", connectAccountID, form, &productDTO); err != nil {
		return nil, err
	}

	priceID, err := c.createPrice(ctx, connectAccountID, productDTO.ID, priceMinor, recurring, interval)
	if err != nil {
		return nil, err
	}

	return &billing.CatalogRef{ProductID: productDTO.ID, PriceID: priceID}, nil
}

func (c *Client) createPrice(ctx context.Context, connectAccountID, providerProductID string, priceMinor int64, recurring bool, interval string) (string, error) {
	form := url.Values{}
	form.Set("unit_amount", strconv.FormatInt(priceMinor, 10))
	form.Set("currency", c.cfg.Currency)
	form.Set("product", providerProductID)
	if recurring && interval != "" {
		form.Set("recurring[interval]", interval)
	}

	var dto priceDTO
	if err := c.do(ctx, "create price", http.MethodPost, "/v1/prices", connectAccountID, form, &dto); err != nil {
		return "", err
	}
	return dto.ID, nil
}

// UpdateCatalogProduct pushes name/description changes. Price changes go
// through RotatePrice since provider prices are immutable.
func (c *Client) UpdateCatalogProduct(ctx context.Context, connectAccountID, providerProductID, title, description string) error {
	form := url.Values{}
	form.Set("name", title)
	form.Set("description", description)
	path := "/v1/products/" + url.PathEscape(providerProductID)
	return c.do(ctx, "update catalog product", http.MethodPost, path, connectAccountID, form, nil)
}

// RotatePrice archives the old price and creates a replacement.
func (c *Client) RotatePrice(ctx context.Context, connectAccountID, providerProductID, oldPriceID string, priceMinor int64, recurring bool, interval string) (string, error) {
	form := url.Values{}
	form.Set("active", "false")
	path := "/v1/prices/" + url.PathEscape(oldPriceID)
	if err := c.do(ctx, "archive price", http.MethodPost, path, connectAccountID, form, nil); err != nil {
		return "", err
	}
	return c.createPrice(ctx, connectAccountID, providerProductID, priceMinor, recurring, interval)
}

// ArchiveCatalogProduct deactivates the provider-side product.
func (c *Client) ArchiveCatalogProduct(ctx context.Context, connectAccountID, providerProductID string) error {
	form := url.Values{}
	form.Set("active", "false")
	path := "/v1/products/" + url.PathEscape(providerProductID)
	return c.do(ctx, "archive catalog product", http.MethodPost, path, connectAccountID, form, nil)
}

// invoiceDTO is the wire shape of a provider invoice.
type invoiceDTO struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	AmountDue int64  `json:"amount_due"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Created   int64  `json:"created"`
}

type invoiceListDTO struct {
	Data []invoiceDTO `json:"data"`
}

// ListInvoices returns recent invoices on a connected account.
func (c *Client) ListInvoices(ctx context.Context, connectAccountID string, limit int) ([]billing.Invoice, error) {
	var dto invoiceListDTO
	path := "/v1/invoices?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, "list invoices", http.MethodGet, path, connectAccountID, nil, &dto); err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(dto.Data))
	for i, inv := range dto.Data {
		invoices[i] = billing.Invoice{
			ID:          inv.ID,
			Number:      inv.Number,
			AmountMinor: inv.AmountDue,
			Currency:    inv.Currency,
			Status:      inv.Status,
			CreatedAt:   time.Unix(inv.Created, 0).UTC(),
		}
	}
	return invoices, nil
}
