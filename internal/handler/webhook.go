package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gigstastore/marketplace/internal/payments"
	"github.com/gigstastore/marketplace/internal/webhook"
)

// maxWebhookBody caps webhook payload size.
const maxWebhookBody = 1 << 20

// PaymentsWebhook receives signed provider events. Signature verification is
// synchronous and any failure is a 400 before business logic runs; verified
// events are queued and acknowledged immediately, with reconciliation
// happening on the dispatcher's workers.
func (h *Handler) PaymentsWebhook(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	sig := r.Header.Get("Provider-Signature")
	if err := payments.VerifySignature(payload, sig, h.webhookSecret, h.webhookTolerance, time.Now()); err != nil {
		lg.Warn("Webhook signature rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	ev, err := payments.ParseEvent(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	switch ev.Type {
	case payments.EventCheckoutSessionCompleted, payments.EventAccountUpdated:
		task := webhook.Task{Event: ev, ConnectAccountID: ev.Account}
		if err := h.dispatcher.Enqueue(task); err != nil {
			if errors.Is(err, webhook.ErrQueueFull) {
				// 503 makes the provider redeliver later.
				writeError(w, http.StatusServiceUnavailable, "busy")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	default:
		lg.Debug("Acknowledging unhandled webhook event",
			zap.String("event_type", ev.Type))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
