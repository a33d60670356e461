package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gigstastore/marketplace/internal/domain/cart"
)

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartLineResponse struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	Recurring bool   `json:"recurring"`
}

type cartResponse struct {
	Items      []cartLineResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	TotalPrice string             `json:"total_price"`
}

func cartViewToResponse(v *cart.View) cartResponse {
	resp := cartResponse{
		Items:      make([]cartLineResponse, 0, len(v.Lines)),
		TotalItems: v.TotalItems,
		TotalPrice: v.TotalPrice.StringFixed(2),
	}
	for _, line := range v.Lines {
		resp.Items = append(resp.Items, cartLineResponse{
			ProductID: line.Product.ID,
			Title:     line.Product.Title,
			UnitPrice: line.Product.Price.StringFixed(2),
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal.StringFixed(2),
			Recurring: line.Product.IsRecurring,
		})
	}
	return resp
}

// GetCart returns the cart resolved against the live catalog.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	view, err := h.carts.Resolve(r.Context(), id.UserID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartViewToResponse(view))
}

// AddCartItem adds a product line, merging quantity with an existing line.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req addItemRequest
	if err := h.decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.carts.AddItem(r.Context(), id.UserID, req.ProductID, req.Quantity); err != nil {
		mapDomainError(w, r, err)
		return
	}
	h.respondWithCart(w, r, id.UserID)
}

// UpdateCartItem sets a line's quantity; zero or negative removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	productID := chi.URLParam(r, "productID")

	var req updateItemRequest
	if err := h.decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.carts.UpdateQuantity(r.Context(), id.UserID, productID, req.Quantity); err != nil {
		mapDomainError(w, r, err)
		return
	}
	h.respondWithCart(w, r, id.UserID)
}

// RemoveCartItem drops a line from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	productID := chi.URLParam(r, "productID")

	if _, err := h.carts.RemoveItem(r.Context(), id.UserID, productID); err != nil {
		mapDomainError(w, r, err)
		return
	}
	h.respondWithCart(w, r, id.UserID)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	if err := h.carts.Clear(r.Context(), id.UserID); err != nil {
		mapDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondWithCart(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.carts.Resolve(r.Context(), userID)
	if err != nil {
		mapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartViewToResponse(view))
}
