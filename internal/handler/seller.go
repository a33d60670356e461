package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gigstastore/marketplace/internal/domain/billing"
	"github.com/gigstastore/marketplace/internal/domain/product"
)

func billingRef(p *product.Product) billing.CatalogRef {
	return billing.CatalogRef{ProductID: p.BillingProductID, PriceID: p.BillingPriceID}
}

type invoiceResponse struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListSellerInvoices returns recent provider invoices for the caller's
// connected account.
func (h *Handler) ListSellerInvoices(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	s, err := h.sellers.GetByID(r.Context(), id.UserID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	if s.ConnectAccountID == "" {
		writeError(w, http.StatusUnprocessableEntity, "seller has no billing account")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	invoices, err := h.billing.ListInvoices(r.Context(), s.ConnectAccountID, limit)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}

	resp := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		resp = append(resp, invoiceResponse{
			ID:          inv.ID,
			Number:      inv.Number,
			AmountMinor: inv.AmountMinor,
			Currency:    inv.Currency,
			Status:      inv.Status,
			CreatedAt:   inv.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type syncBillingRequest struct {
	// Interval is the subscription billing interval (e.g. "month"); required
	// for recurring products.
	Interval string `json:"interval" validate:"omitempty,oneof=day week month year"`
	// RotatePrice forces a new provider price even when one exists.
	RotatePrice bool `json:"rotate_price"`
}

type syncBillingResponse struct {
	BillingProductID string `json:"billing_product_id"`
	BillingPriceID   string `json:"billing_price_id"`
}

// SyncProductBilling registers or updates a product on the payment
// provider's catalog so it becomes checkoutable. Only the owning seller may
// sync a product.
func (h *Handler) SyncProductBilling(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	productID := chi.URLParam(r, "productID")

	var req syncBillingRequest
	if err := h.decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	if p.SellerID != id.UserID && !id.IsAdmin() {
		writeError(w, http.StatusForbidden, "not your product")
		return
	}

	s, err := h.sellers.GetByID(r.Context(), p.SellerID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	if s.ConnectAccountID == "" {
		writeError(w, http.StatusUnprocessableEntity, "seller has no billing account")
		return
	}

	var resp syncBillingResponse
	if p.BillingProductID == "" {
		ref, err := h.billing.RegisterProduct(r.Context(), s.ConnectAccountID,
			p.Title, p.Description, p.Category, p.Price, p.IsRecurring, req.Interval)
		if err != nil {
			mapDomainError(w, r, err)
			return
		}
		resp = syncBillingResponse{BillingProductID: ref.ProductID, BillingPriceID: ref.PriceID}
	} else {
		priceID, err := h.billing.UpdateProduct(r.Context(), s.ConnectAccountID,
			billingRef(p), p.Title, p.Description, p.Price, p.IsRecurring, req.Interval, req.RotatePrice)
		if err != nil {
			mapDomainError(w, r, err)
			return
		}
		resp = syncBillingResponse{BillingProductID: p.BillingProductID, BillingPriceID: priceID}
	}

	if err := h.products.SetBillingRefs(r.Context(), p.ID, resp.BillingProductID, resp.BillingPriceID); err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetSellerBilling deletes a seller's connected account at the provider
// and reverts local payout state. Admin only.
func (h *Handler) ResetSellerBilling(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerID")

	s, err := h.sellers.GetByID(r.Context(), sellerID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}

	if s.ConnectAccountID != "" {
		if err := h.billing.DeleteAccount(r.Context(), s.ConnectAccountID); err != nil {
			mapDomainError(w, r, err)
			return
		}
	}

	if err := h.sellers.ResetBilling(r.Context(), sellerID); err != nil {
		mapDomainError(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("Seller billing reset",
		zap.String("seller_id", sellerID),
		zap.String("connect_account_id", s.ConnectAccountID))
	w.WriteHeader(http.StatusNoContent)
}
