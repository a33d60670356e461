package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/gigstastore/marketplace/internal/domain/product"
)

// Sentinel errors for cart mutations.
var (
	ErrInvalidQuantity     = errors.New("quantity must be greater than 0")
	ErrProductNotAvailable = errors.New("product is not available for purchase")
)

// Service encapsulates cart read/write business logic.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// AddItem adds a product to the user's cart, or increases the quantity when
// the product is already present. Only published products may be added.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}
	if p.Status != product.StatusPublished {
		return nil, ErrProductNotAvailable
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity})
	}

	c.UpdatedAt = time.Now().UTC()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// UpdateQuantity sets the quantity of an existing cart line. A quantity of
// zero or below removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotFound
	}

	c.UpdatedAt = time.Now().UTC()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// RemoveItem deletes a product's line from the cart entirely. Removing a
// product that is not in the cart is a no-op.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept

	c.UpdatedAt = time.Now().UTC()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Clear removes every line from the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

// Line pairs a cart item with its resolved product for display.
type Line struct {
	Product  product.Product
	Quantity int
	Subtotal decimal.Decimal
}

// View is a cart resolved against the current catalog. Lines whose product
// is missing or unpublished are excluded from the view and its totals; the
// stored cart is left untouched.
type View struct {
	UserID     string
	Lines      []Line
	TotalItems int
	TotalPrice decimal.Decimal
}

// Resolve loads the user's cart and joins it with live product data.
func (s *Service) Resolve(ctx context.Context, userID string) (*View, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	view := &View{UserID: userID, TotalPrice: decimal.Zero}
	for _, it := range c.Items {
		p, ok := byID[it.ProductID]
		if !ok || p.Status != product.StatusPublished {
			continue
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		view.Lines = append(view.Lines, Line{
			Product:  p,
			Quantity: it.Quantity,
			Subtotal: subtotal,
		})
		view.TotalItems += it.Quantity
		view.TotalPrice = view.TotalPrice.Add(subtotal)
	}
	view.TotalPrice = view.TotalPrice.Round(2)

	return view, nil
}
