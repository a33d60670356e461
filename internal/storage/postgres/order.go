package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/gigstastore/marketplace/internal/domain/order"
)

const orderColumns = `id, user_id, seller_id, items, total_amount,
	platform_fee_amount, seller_amount, is_recurring, status,
	COALESCE(checkout_session_id, ''), COALESCE(payment_intent_id, ''),
	connect_account_id, created_at, updated_at, completed_at`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository using the given database.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a new order. The item snapshot is serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO orders (id, user_id, seller_id, items, total_amount,
			platform_fee_amount, seller_amount, is_recurring, status,
			connect_account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.UserID, o.SellerID, itemsJSON, o.TotalAmount,
		o.PlatformFeeAmount, o.SellerAmount, o.IsRecurring, o.Status,
		o.ConnectAccountID, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	var itemsJSON []byte
	err := row.Scan(
		&o.ID, &o.UserID, &o.SellerID, &itemsJSON, &o.TotalAmount,
		&o.PlatformFeeAmount, &o.SellerAmount, &o.IsRecurring, &o.Status,
		&o.CheckoutSessionID, &o.PaymentIntentID,
		&o.ConnectAccountID, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshal order items")
	}
	return &o, nil
}

// GetByID returns an order by its internal id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return o, nil
}

// GetBySessionID resolves an order from the provider's session identifier.
func (r *OrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE checkout_session_id = $1`, sessionID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order by session %q", sessionID)
	}
	return o, nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]order.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "query user orders")
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// SetSessionID writes the provider session id onto an existing order.
func (r *OrderRepository) SetSessionID(ctx context.Context, id, sessionID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET checkout_session_id = $2, updated_at = now() WHERE id = $1`,
		id, sessionID)
	if err != nil {
		return errors.Wrapf(err, "set session on order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Complete transitions an order to completed. The status guard in the WHERE
// clause makes the write idempotent even under concurrent duplicate
// webhooks: a second completion matches zero rows and is reported as done.
func (r *OrderRepository) Complete(ctx context.Context, id, paymentIntentID string, completedAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2, payment_intent_id = $3,
			completed_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5`,
		id, order.StatusCompleted, paymentIntentID, completedAt, order.StatusPending)
	if err != nil {
		return errors.Wrapf(err, "complete order %q", id)
	}
	return nil
}

// ExpirePending marks pending orders created before cutoff as expired.
func (r *OrderRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = now()
		WHERE status = $2 AND created_at < $3`,
		order.StatusExpired, order.StatusPending, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "expire pending orders")
	}
	return tag.RowsAffected(), nil
}
