package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/gigstastore/marketplace/internal/domain/cart"
	"github.com/gigstastore/marketplace/internal/domain/product"
	"github.com/gigstastore/marketplace/internal/domain/seller"
)

// GroupLine is a single cart line inside a checkout group, with its product
// resolved and its own rounded subtotal.
type GroupLine struct {
	Product  product.Product
	Quantity int
	Subtotal decimal.Decimal
}

// Group is a checkout-time partition of cart items sharing a seller and a
// payment mode. Groups are derived fresh on every request, never persisted,
// so they always reflect current product availability and seller status.
type Group struct {
	SellerID         string
	SellerName       string
	ConnectAccountID string
	IsRecurring      bool
	Lines            []GroupLine
	Total            decimal.Decimal
}

// Grouper partitions a user's cart into per-(seller, payment-mode) groups.
type Grouper struct {
	carts    cart.Repository
	products product.Repository
	sellers  seller.Repository
}

// NewGrouper creates a Grouper with the required lookups.
func NewGrouper(carts cart.Repository, products product.Repository, sellers seller.Repository) *Grouper {
	return &Grouper{
		carts:    carts,
		products: products,
		sellers:  sellers,
	}
}

// GroupForCheckout reads the user's cart and partitions it by seller and
// payment mode. Lines whose product no longer exists, is not published, or
// whose seller is not onboarded for payouts are silently dropped — a stale
// cart should shrink the checkout, not fail it. The cart itself is not
// mutated, and group order carries no guarantee.
func (g *Grouper) GroupForCheckout(ctx context.Context, userID string) ([]Group, error) {
	c, err := g.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if len(c.Items) == 0 {
		return nil, nil
	}

	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	fetched, err := g.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productsByID := make(map[string]product.Product, len(fetched))
	sellerIDs := make([]string, 0, len(fetched))
	seen := make(map[string]struct{}, len(fetched))
	for _, p := range fetched {
		productsByID[p.ID] = p
		if _, ok := seen[p.SellerID]; !ok {
			seen[p.SellerID] = struct{}{}
			sellerIDs = append(sellerIDs, p.SellerID)
		}
	}

	fetchedSellers, err := g.sellers.GetByIDs(ctx, sellerIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get sellers")
	}
	sellersByID := make(map[string]seller.Seller, len(fetchedSellers))
	for _, s := range fetchedSellers {
		sellersByID[s.ID] = s
	}

	type groupKey struct {
		sellerID  string
		recurring bool
	}
	groups := make(map[groupKey]*Group)
	var order []groupKey

	for _, it := range c.Items {
		p, ok := productsByID[it.ProductID]
		if !ok || p.Status != product.StatusPublished {
			continue
		}
		s, ok := sellersByID[p.SellerID]
		if !ok || !s.Onboarded() {
			continue
		}

		key := groupKey{sellerID: p.SellerID, recurring: p.IsRecurring}
		grp, ok := groups[key]
		if !ok {
			grp = &Group{
				SellerID:         s.ID,
				SellerName:       s.DisplayName,
				ConnectAccountID: s.ConnectAccountID,
				IsRecurring:      p.IsRecurring,
				Total:            decimal.Zero,
			}
			groups[key] = grp
			order = append(order, key)
		}

		subtotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		grp.Lines = append(grp.Lines, GroupLine{
			Product:  p,
			Quantity: it.Quantity,
			Subtotal: subtotal,
		})
		grp.Total = grp.Total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	result := make([]Group, 0, len(order))
	for _, key := range order {
		grp := groups[key]
		grp.Total = grp.Total.Round(2)
		result = append(result, *grp)
	}
	return result, nil
}
