package app

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gigstastore/marketplace/internal/domain/order"
)

// runJanitor periodically expires pending orders older than the configured
// TTL. Orders abandoned at the provider's payment page never receive a
// completion webhook, so without this sweep they would stay pending forever.
func runJanitor(ctx context.Context, orders order.Repository, cfg JanitorConfig) {
	lg := zctx.From(ctx)
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-cfg.PendingOrderTTL)
			n, err := orders.ExpirePending(ctx, cutoff)
			if err != nil {
				lg.Error("Pending order sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("Expired stale pending orders", zap.Int64("count", n))
			}
		}
	}
}
