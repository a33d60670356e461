package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/gigstastore/marketplace/internal/domain/product"
)

const productColumns = `id, seller_id, title, description, price, category,
	status, is_recurring, COALESCE(billing_product_id, ''), COALESCE(billing_price_id, '')`

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository using the given database.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row pgx.Row) (*product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Title, &p.Description, &p.Price, &p.Category,
		&p.Status, &p.IsRecurring, &p.BillingProductID, &p.BillingPriceID,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns a single product. Returns product.ErrNotFound when no
// matching row exists.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return p, nil
}

// GetByIDs returns every product whose id is in ids, in one query. Missing
// ids are simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// SetBillingRefs records the provider catalog product and price for a
// listing after billing sync.
func (r *ProductRepository) SetBillingRefs(ctx context.Context, id, billingProductID, billingPriceID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET billing_product_id = $2, billing_price_id = $3,
			updated_at = now() WHERE id = $1`,
		id, billingProductID, billingPriceID)
	if err != nil {
		return errors.Wrapf(err, "set billing refs on product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// ListBySeller returns a seller's products ordered by creation time.
func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID string) ([]product.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE seller_id = $1 ORDER BY created_at DESC`,
		sellerID)
	if err != nil {
		return nil, errors.Wrap(err, "query seller products")
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
