package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigstastore/marketplace/internal/domain/cart"
	"github.com/gigstastore/marketplace/internal/domain/order"
)

var orderCols = []string{
	"id", "user_id", "seller_id", "items", "total_amount",
	"platform_fee_amount", "seller_amount", "is_recurring", "status",
	"checkout_session_id", "payment_intent_id",
	"connect_account_id", "created_at", "updated_at", "completed_at",
}

func orderRow(o *order.Order, items string) *pgxmock.Rows {
	return pgxmock.NewRows(orderCols).AddRow(
		o.ID, o.UserID, o.SellerID, []byte(items), o.TotalAmount,
		o.PlatformFeeAmount, o.SellerAmount, o.IsRecurring, o.Status,
		o.CheckoutSessionID, o.PaymentIntentID,
		o.ConnectAccountID, o.CreatedAt, o.UpdatedAt, o.CompletedAt,
	)
}

func testOrder() *order.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &order.Order{
		ID:                "o1",
		UserID:            "u1",
		SellerID:          "s1",
		Items:             []cart.Item{{ProductID: "p1", Quantity: 2}},
		TotalAmount:       decimal.RequireFromString("69.00"),
		PlatformFeeAmount: decimal.RequireFromString("6.90"),
		SellerAmount:      decimal.RequireFromString("62.10"),
		Status:            order.StatusPending,
		ConnectAccountID:  "acct_1",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestOrderRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o := testOrder()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.UserID, o.SellerID, []byte(`[{"product_id":"p1","quantity":2}]`),
			o.TotalAmount, o.PlatformFeeAmount, o.SellerAmount, o.IsRecurring,
			o.Status, o.ConnectAccountID, o.CreatedAt, o.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewOrderRepository(mock)
	require.NoError(t, repo.Create(context.Background(), o))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o := testOrder()
	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs("o1").
		WillReturnRows(orderRow(o, `[{"product_id":"p1","quantity":2}]`))

	repo := NewOrderRepository(mock)
	got, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)

	assert.Equal(t, "o1", got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, o.TotalAmount.Equal(got.TotalAmount))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(orderCols))

	repo := NewOrderRepository(mock)
	_, err = repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_GetBySessionID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o := testOrder()
	o.CheckoutSessionID = "cs_1"
	mock.ExpectQuery("SELECT .+ FROM orders WHERE checkout_session_id").
		WithArgs("cs_1").
		WillReturnRows(orderRow(o, `[{"product_id":"p1","quantity":2}]`))

	repo := NewOrderRepository(mock)
	got, err := repo.GetBySessionID(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", got.CheckoutSessionID)
}

func TestOrderRepository_SetSessionID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE orders SET checkout_session_id").
		WithArgs("missing", "cs_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewOrderRepository(mock)
	err = repo.SetSessionID(context.Background(), "missing", "cs_1")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_Complete_GuardsPendingStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	completedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("o1", order.StatusCompleted, "pi_1", completedAt, order.StatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	// Zero rows is not an error: a concurrent duplicate already completed it.
	repo := NewOrderRepository(mock)
	require.NoError(t, repo.Complete(context.Background(), "o1", "pi_1", completedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ExpirePending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(order.StatusExpired, order.StatusPending, cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	repo := NewOrderRepository(mock)
	n, err := repo.ExpirePending(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
