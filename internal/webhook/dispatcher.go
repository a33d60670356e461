// Package webhook decouples provider webhook acknowledgement from the
// reconciliation work the events trigger. The HTTP handler verifies and
// enqueues; workers apply the effects.
package webhook

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gigstastore/marketplace/internal/domain/checkout"
	"github.com/gigstastore/marketplace/internal/payments"
)

// ErrQueueFull is returned when the dispatch queue cannot accept an event.
// Callers should respond 503 so the provider redelivers.
var ErrQueueFull = errors.New("webhook queue full")

// Task is one verified webhook event awaiting processing, paired with the
// connected account it was delivered for.
type Task struct {
	Event            *payments.Event
	ConnectAccountID string
}

// Dispatcher fans verified webhook events out to a pool of workers.
type Dispatcher struct {
	reconciler *checkout.Reconciler
	queue      chan Task
	workers    int
}

// NewDispatcher creates a Dispatcher with the given queue depth and worker
// count. Both fall back to sane defaults when non-positive.
func NewDispatcher(reconciler *checkout.Reconciler, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{
		reconciler: reconciler,
		queue:      make(chan Task, queueSize),
		workers:    workers,
	}
}

// Enqueue hands a verified event to the worker pool without blocking. The
// event was already acknowledged to the provider when this returns nil.
func (d *Dispatcher) Enqueue(t Task) error {
	select {
	case d.queue <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes queued events until ctx is cancelled, then drains whatever
// is already queued before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					d.drain(context.WithoutCancel(ctx))
					return nil
				case t := <-d.queue:
					d.process(ctx, t)
				}
			}
		})
	}
	return g.Wait()
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case t := <-d.queue:
			d.process(ctx, t)
		default:
			return
		}
	}
}

// process applies one event. Errors are logged, not returned: the provider
// already got its 200 and will not redeliver, so a failed event is an
// operator concern rather than a retry signal.
func (d *Dispatcher) process(ctx context.Context, t Task) {
	lg := zctx.From(ctx).With(
		zap.String("event_id", t.Event.ID),
		zap.String("event_type", t.Event.Type))

	switch t.Event.Type {
	case payments.EventCheckoutSessionCompleted:
		obj, err := t.Event.CheckoutSession()
		if err != nil {
			lg.Error("Malformed checkout session event", zap.Error(err))
			return
		}
		o, err := d.reconciler.HandleCheckoutCompleted(ctx, obj.ID, t.ConnectAccountID)
		if err != nil {
			lg.Error("Checkout reconciliation failed",
				zap.String("session_id", obj.ID), zap.Error(err))
			return
		}
		lg.Info("Checkout session reconciled",
			zap.String("session_id", obj.ID),
			zap.String("order_id", o.ID))

	case payments.EventAccountUpdated:
		obj, err := t.Event.AccountUpdated()
		if err != nil {
			lg.Error("Malformed account event", zap.Error(err))
			return
		}
		if err := d.reconciler.HandleAccountUpdated(ctx, obj.ID, obj.ChargesEnabled, obj.PayoutsEnabled); err != nil {
			lg.Error("Account reconciliation failed",
				zap.String("connect_account_id", obj.ID), zap.Error(err))
		}

	default:
		lg.Debug("Ignoring unhandled event type")
	}
}
