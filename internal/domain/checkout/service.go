package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigstastore/marketplace/internal/domain/cart"
	"github.com/gigstastore/marketplace/internal/domain/order"
	"github.com/gigstastore/marketplace/internal/domain/user"
)

// SessionResult is the per-group outcome of checkout session creation. URL
// is where the buyer completes payment for the group.
type SessionResult struct {
	SessionID   string
	URL         string
	OrderID     string
	SellerName  string
	TotalAmount decimal.Decimal
	PlatformFee decimal.Decimal
	IsRecurring bool
}

// Service orchestrates checkout: it groups the cart, computes fee splits,
// persists pending orders, and opens provider sessions.
type Service struct {
	grouper  *Grouper
	users    user.Repository
	orders   order.Repository
	payments PaymentProvider
	feeRate  decimal.Decimal
}

// NewService creates a checkout Service. feeRate is the platform's cut as a
// fraction in [0,1].
func NewService(
	grouper *Grouper,
	users user.Repository,
	orders order.Repository,
	payments PaymentProvider,
	feeRate decimal.Decimal,
) *Service {
	return &Service{
		grouper:  grouper,
		users:    users,
		orders:   orders,
		payments: payments,
		feeRate:  feeRate,
	}
}

// Preview returns the grouped cart without creating orders or sessions.
func (s *Service) Preview(ctx context.Context, userID string) ([]Group, error) {
	return s.grouper.GroupForCheckout(ctx, userID)
}

// CreateSessions groups the user's cart and opens one provider session per
// group, sequentially. Earlier groups' orders and sessions are durable by
// the time a later group fails; partial success is deliberate and the
// caller receives only the error of the failing group.
func (s *Service) CreateSessions(ctx context.Context, userID, successURL, cancelURL string) ([]SessionResult, error) {
	groups, err := s.grouper.GroupForCheckout(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "group cart")
	}
	if len(groups) == 0 {
		return nil, ErrEmptyCart
	}

	results := make([]SessionResult, 0, len(groups))
	for _, grp := range groups {
		res, err := s.CreateSessionForGroup(ctx, userID, grp, successURL, cancelURL)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// CreateSessionForGroup opens a provider session for a single group.
//
// The pending order is persisted before the provider call so a provider
// failure can never leave an external session without a local record; the
// provider's session id is written back onto the existing order once
// acknowledged. A provider failure leaves the order pending, not rolled
// back. Calling this twice for the same group creates two independent
// orders and sessions; retry-as-new-session is the intended semantic.
func (s *Service) CreateSessionForGroup(ctx context.Context, userID string, grp Group, successURL, cancelURL string) (*SessionResult, error) {
	if grp.ConnectAccountID == "" {
		return nil, &SellerNotOnboardedError{SellerID: grp.SellerID}
	}

	buyer, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get buyer")
	}

	// Re-validate eligibility at session time: the grouper's snapshot may
	// predate a catalog change.
	lineItems := make([]SessionLineItem, 0, len(grp.Lines))
	items := make([]cart.Item, 0, len(grp.Lines))
	total := decimal.Zero
	for _, line := range grp.Lines {
		if line.Product.BillingPriceID == "" {
			return nil, &ConfigurationError{
				ProductID:    line.Product.ID,
				ProductTitle: line.Product.Title,
			}
		}
		lineItems = append(lineItems, SessionLineItem{
			PriceID:  line.Product.BillingPriceID,
			Quantity: line.Quantity,
		})
		items = append(items, cart.Item{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
		})
		total = total.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	total = total.Round(2)

	platformFee, sellerAmount := CalculateFee(total, s.feeRate)

	now := time.Now().UTC()
	o := &order.Order{
		ID:                uuid.New().String(),
		UserID:            userID,
		SellerID:          grp.SellerID,
		Items:             items,
		TotalAmount:       total,
		PlatformFeeAmount: platformFee,
		SellerAmount:      sellerAmount,
		IsRecurring:       grp.IsRecurring,
		Status:            order.StatusPending,
		ConnectAccountID:  grp.ConnectAccountID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	params := CreateSessionParams{
		ConnectAccountID: grp.ConnectAccountID,
		Mode:             ModePayment,
		LineItems:        lineItems,
		CustomerEmail:    buyer.Email,
		SuccessURL:       successURL,
		CancelURL:        cancelURL,
		Metadata: map[string]string{
			"order_id":  o.ID,
			"user_id":   userID,
			"seller_id": grp.SellerID,
		},
	}
	if grp.IsRecurring {
		params.Mode = ModeSubscription
		params.ApplicationFeePercent = s.feeRate.Mul(decimal.NewFromInt(100))
	} else {
		params.ApplicationFeeMinor = MinorUnits(platformFee)
	}

	session, err := s.payments.CreateSession(ctx, params)
	if err != nil {
		// The pending order stays behind on purpose; it is the audit trail
		// for the failed attempt.
		return nil, err
	}

	if err := s.orders.SetSessionID(ctx, o.ID, session.ID); err != nil {
		return nil, errors.Wrap(err, "attach session to order")
	}

	return &SessionResult{
		SessionID:   session.ID,
		URL:         session.URL,
		OrderID:     o.ID,
		SellerName:  grp.SellerName,
		TotalAmount: total,
		PlatformFee: platformFee,
		IsRecurring: grp.IsRecurring,
	}, nil
}

// GetOrder returns an order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListOrders returns a user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string, limit, offset int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListByUser(ctx, userID, limit, offset)
}
