package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gigstastore/marketplace/internal/domain/cart"
	"github.com/gigstastore/marketplace/internal/domain/order"
	"github.com/gigstastore/marketplace/internal/domain/seller"
)

// Notifier dispatches buyer-facing notifications. Implementations must be
// safe to call fire-and-forget; the reconciler swallows their errors.
type Notifier interface {
	OrderCompleted(ctx context.Context, o *order.Order) error
}

// EventPublisher emits domain events for downstream consumers. Like the
// Notifier, failures never abort reconciliation.
type EventPublisher interface {
	OrderCompleted(ctx context.Context, o *order.Order) error
	SellerActivated(ctx context.Context, sellerID string) error
}

// Reconciler applies asynchronous payment provider events to local state.
type Reconciler struct {
	orders   order.Repository
	carts    cart.Repository
	sellers  seller.Repository
	payments PaymentProvider
	notifier Notifier
	events   EventPublisher
}

// NewReconciler creates a Reconciler. notifier and events may be nil when
// the corresponding side effects are disabled.
func NewReconciler(
	orders order.Repository,
	carts cart.Repository,
	sellers seller.Repository,
	payments PaymentProvider,
	notifier Notifier,
	events EventPublisher,
) *Reconciler {
	return &Reconciler{
		orders:   orders,
		carts:    carts,
		sellers:  sellers,
		payments: payments,
		notifier: notifier,
		events:   events,
	}
}

// HandleCheckoutCompleted processes a checkout.session.completed event.
//
// The provider delivers webhooks at least once, so this must be idempotent:
// an order already completed is returned unchanged with no further side
// effects. Financial fields come from the authoritative session fetched
// from the provider (scoped to the connected account), never from the
// webhook payload itself.
func (r *Reconciler) HandleCheckoutCompleted(ctx context.Context, sessionID, connectAccountID string) (*order.Order, error) {
	o, err := r.orders.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "lookup order by session")
	}

	if o.Status == order.StatusCompleted {
		return o, nil
	}

	session, err := r.payments.GetSession(ctx, sessionID, connectAccountID)
	if err != nil {
		return nil, err
	}

	completedAt := time.Now().UTC()
	if err := r.orders.Complete(ctx, o.ID, session.PaymentIntentID, completedAt); err != nil {
		return nil, errors.Wrap(err, "complete order")
	}
	o.Status = order.StatusCompleted
	o.PaymentIntentID = session.PaymentIntentID
	o.CompletedAt = &completedAt
	o.UpdatedAt = completedAt

	// Drop only this order's products from the live cart; a multi-group
	// checkout keeps still-pending groups' items around for retry.
	productIDs := make([]string, len(o.Items))
	for i, it := range o.Items {
		productIDs[i] = it.ProductID
	}
	if err := r.carts.RemoveItems(ctx, o.UserID, productIDs); err != nil {
		zctx.From(ctx).Warn("Failed to clear completed items from cart",
			zap.String("order_id", o.ID), zap.Error(err))
	}

	if r.notifier != nil {
		if err := r.notifier.OrderCompleted(ctx, o); err != nil {
			zctx.From(ctx).Warn("Order confirmation email failed",
				zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	if r.events != nil {
		if err := r.events.OrderCompleted(ctx, o); err != nil {
			zctx.From(ctx).Warn("Order completed event publish failed",
				zap.String("order_id", o.ID), zap.Error(err))
		}
	}

	return o, nil
}

// HandleAccountUpdated processes an account.updated event for a seller's
// connected account. The seller becomes active only when the provider has
// enabled both charges and payouts; an active seller whose capabilities
// drop reverts to pending. No write happens when the computed target status
// equals the stored status.
func (r *Reconciler) HandleAccountUpdated(ctx context.Context, connectAccountID string, chargesEnabled, payoutsEnabled bool) error {
	s, err := r.sellers.GetByConnectAccount(ctx, connectAccountID)
	if err != nil {
		if errors.Is(err, seller.ErrNotFound) {
			zctx.From(ctx).Warn("No seller for connected account, skipping",
				zap.String("connect_account_id", connectAccountID))
			return nil
		}
		return errors.Wrap(err, "lookup seller by connect account")
	}

	target := s.PayoutStatus
	switch {
	case chargesEnabled && payoutsEnabled:
		target = seller.PayoutActive
	case s.PayoutStatus == seller.PayoutActive:
		target = seller.PayoutPending
	}

	if target == s.PayoutStatus {
		return nil
	}

	if err := r.sellers.UpdatePayoutStatus(ctx, s.ID, target); err != nil {
		return errors.Wrap(err, "update payout status")
	}

	zctx.From(ctx).Info("Seller payout status updated",
		zap.String("seller_id", s.ID),
		zap.String("from", string(s.PayoutStatus)),
		zap.String("to", string(target)))

	if target == seller.PayoutActive && r.events != nil {
		if err := r.events.SellerActivated(ctx, s.ID); err != nil {
			zctx.From(ctx).Warn("Seller activated event publish failed",
				zap.String("seller_id", s.ID), zap.Error(err))
		}
	}
	return nil
}
