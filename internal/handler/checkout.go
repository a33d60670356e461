package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gigstastore/marketplace/internal/domain/order"
)

type previewLineResponse struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type previewGroupResponse struct {
	SellerID   string                `json:"seller_id"`
	SellerName string                `json:"seller_name"`
	Recurring  bool                  `json:"recurring"`
	Items      []previewLineResponse `json:"items"`
	Total      string                `json:"total"`
}

type previewResponse struct {
	Groups     []previewGroupResponse `json:"groups"`
	GrandTotal string                 `json:"grand_total"`
}

// PreviewCheckout returns the grouped cart without creating anything.
func (h *Handler) PreviewCheckout(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	groups, err := h.checkouts.Preview(r.Context(), id.UserID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}

	resp := previewResponse{Groups: make([]previewGroupResponse, 0, len(groups))}
	grand := decimal.Zero
	for _, grp := range groups {
		g := previewGroupResponse{
			SellerID:   grp.SellerID,
			SellerName: grp.SellerName,
			Recurring:  grp.IsRecurring,
			Items:      make([]previewLineResponse, 0, len(grp.Lines)),
			Total:      grp.Total.StringFixed(2),
		}
		for _, line := range grp.Lines {
			g.Items = append(g.Items, previewLineResponse{
				ProductID: line.Product.ID,
				Title:     line.Product.Title,
				UnitPrice: line.Product.Price.StringFixed(2),
				Quantity:  line.Quantity,
				Subtotal:  line.Subtotal.StringFixed(2),
			})
		}
		resp.Groups = append(resp.Groups, g)
		grand = grand.Add(grp.Total)
	}
	resp.GrandTotal = grand.Round(2).StringFixed(2)

	writeJSON(w, http.StatusOK, resp)
}

type createSessionsRequest struct {
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

type sessionResponse struct {
	SessionID   string `json:"session_id"`
	URL         string `json:"url"`
	OrderID     string `json:"order_id"`
	SellerName  string `json:"seller_name"`
	TotalAmount string `json:"total_amount"`
	PlatformFee string `json:"platform_fee"`
	Recurring   bool   `json:"recurring"`
}

type createSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

// CreateCheckoutSessions opens one provider session per cart group.
func (h *Handler) CreateCheckoutSessions(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req createSessionsRequest
	if err := h.decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.checkouts.CreateSessions(r.Context(), id.UserID, req.SuccessURL, req.CancelURL)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}

	resp := createSessionsResponse{Sessions: make([]sessionResponse, 0, len(results))}
	for _, res := range results {
		resp.Sessions = append(resp.Sessions, sessionResponse{
			SessionID:   res.SessionID,
			URL:         res.URL,
			OrderID:     res.OrderID,
			SellerName:  res.SellerName,
			TotalAmount: res.TotalAmount.StringFixed(2),
			PlatformFee: res.PlatformFee.StringFixed(2),
			Recurring:   res.IsRecurring,
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	SellerID     string              `json:"seller_id"`
	Items        []orderItemResponse `json:"items"`
	TotalAmount  string              `json:"total_amount"`
	PlatformFee  string              `json:"platform_fee"`
	SellerAmount string              `json:"seller_amount"`
	Recurring    bool                `json:"recurring"`
	Status       string              `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

func orderToResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return orderResponse{
		ID:           o.ID,
		SellerID:     o.SellerID,
		Items:        items,
		TotalAmount:  o.TotalAmount.StringFixed(2),
		PlatformFee:  o.PlatformFeeAmount.StringFixed(2),
		SellerAmount: o.SellerAmount.StringFixed(2),
		Recurring:    o.IsRecurring,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		CompletedAt:  o.CompletedAt,
	}
}

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.checkouts.ListOrders(r.Context(), id.UserID, limit, offset)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, orderToResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOrder returns a single order. Only the owner or an admin may read it;
// anyone else gets 403 when the order exists and 404 when it does not.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	orderID := chi.URLParam(r, "orderID")

	o, err := h.checkouts.GetOrder(r.Context(), orderID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	if o.UserID != id.UserID && !id.IsAdmin() {
		writeError(w, http.StatusForbidden, "not your order")
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(o))
}
