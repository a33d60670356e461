// Package handler exposes the marketplace API over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gigstastore/marketplace/internal/domain/auth"
	"github.com/gigstastore/marketplace/internal/domain/billing"
	"github.com/gigstastore/marketplace/internal/domain/cart"
	"github.com/gigstastore/marketplace/internal/domain/checkout"
	"github.com/gigstastore/marketplace/internal/domain/order"
	"github.com/gigstastore/marketplace/internal/domain/product"
	"github.com/gigstastore/marketplace/internal/domain/seller"
	"github.com/gigstastore/marketplace/internal/webhook"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// WebhookSecret signs provider webhook payloads.
	WebhookSecret string
	// WebhookTolerance bounds signed webhook age; zero uses the default.
	WebhookTolerance time.Duration
	// TokenPepper keys the HMAC over session tokens.
	TokenPepper []byte
}

// Handler wires domain services to HTTP routes.
type Handler struct {
	carts      *cart.Service
	checkouts  *checkout.Service
	billing    *billing.Service
	products   product.Repository
	sellers    seller.Repository
	tokens     auth.Repository
	dispatcher *webhook.Dispatcher

	validate         *validator.Validate
	webhookSecret    string
	webhookTolerance time.Duration
	tokenPepper      []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	carts *cart.Service,
	checkouts *checkout.Service,
	billingSvc *billing.Service,
	products product.Repository,
	sellers seller.Repository,
	tokens auth.Repository,
	dispatcher *webhook.Dispatcher,
) *Handler {
	return &Handler{
		carts:            carts,
		checkouts:        checkouts,
		billing:          billingSvc,
		products:         products,
		sellers:          sellers,
		tokens:           tokens,
		dispatcher:       dispatcher,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		webhookSecret:    cfg.WebhookSecret,
		webhookTolerance: cfg.WebhookTolerance,
		tokenPepper:      cfg.TokenPepper,
	}
}

// Routes mounts every API route onto the router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{productID}", h.UpdateCartItem)
			r.Delete("/items/{productID}", h.RemoveCartItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/preview", h.PreviewCheckout)
			r.Post("/sessions", h.CreateCheckoutSessions)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Get("/{orderID}", h.GetOrder)
		})

		r.Route("/seller", func(r chi.Router) {
			r.Get("/invoices", h.ListSellerInvoices)
			r.Post("/products/{productID}/billing", h.SyncProductBilling)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Delete("/sellers/{sellerID}/billing", h.ResetSellerBilling)
		})
	})

	// Webhooks are signed by the provider, not session-authenticated.
	r.Post("/webhooks/payments", h.PaymentsWebhook)
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// decodeBody decodes and validates a JSON request body.
func (h *Handler) decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// mapDomainError translates domain errors to HTTP responses. Unknown errors
// become a logged 500.
func mapDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, cart.ErrProductNotAvailable),
		errors.Is(err, billing.ErrNoInterval):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, seller.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var cfgErr *checkout.ConfigurationError
	if errors.As(err, &cfgErr) {
		writeError(w, http.StatusUnprocessableEntity, cfgErr.Error())
		return
	}
	var onbErr *checkout.SellerNotOnboardedError
	if errors.As(err, &onbErr) {
		writeError(w, http.StatusUnprocessableEntity, onbErr.Error())
		return
	}
	var provErr *checkout.ProviderError
	if errors.As(err, &provErr) {
		if provErr.CallerFault {
			writeError(w, http.StatusBadRequest, provErr.Error())
		} else {
			writeError(w, http.StatusBadGateway, "payment provider unavailable")
		}
		return
	}

	zctx.From(r.Context()).Error("Unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
