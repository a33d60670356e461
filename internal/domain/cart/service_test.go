package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigstastore/marketplace/internal/domain/product"
)

// --- Mock implementations ---

type mockCartRepo struct {
	byUser map[string]*Cart
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{byUser: make(map[string]*Cart)}
}

func (m *mockCartRepo) Get(_ context.Context, userID string) (*Cart, error) {
	if c, ok := m.byUser[userID]; ok {
		return c, nil
	}
	return &Cart{UserID: userID}, nil
}

func (m *mockCartRepo) Save(_ context.Context, c *Cart) error {
	m.byUser[c.UserID] = c
	return nil
}

func (m *mockCartRepo) RemoveItems(_ context.Context, userID string, productIDs []string) error {
	c, ok := m.byUser[userID]
	if !ok {
		return nil
	}
	drop := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if _, gone := drop[it.ProductID]; !gone {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, userID string) error {
	delete(m.byUser, userID)
	return nil
}

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) ListBySeller(_ context.Context, _ string) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) SetBillingRefs(_ context.Context, _, _, _ string) error {
	return nil
}

// --- Helpers ---

func newTestProduct(id string, price string, status product.Status) product.Product {
	return product.Product{
		ID:       id,
		SellerID: "s1",
		Title:    "Product " + id,
		Price:    decimal.RequireFromString(price),
		Category: "test",
		Status:   status,
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

// --- Tests ---

func TestAddItem(t *testing.T) {
	repo := newMockCartRepo()
	svc := NewService(repo, newProductRepo(newTestProduct("p1", "10.00", product.StatusPublished)))

	c, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestAddItem_MergesQuantity(t *testing.T) {
	repo := newMockCartRepo()
	svc := NewService(repo, newProductRepo(newTestProduct("p1", "10.00", product.StatusPublished)))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)
	c, err := svc.AddItem(context.Background(), "u1", "p1", 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := NewService(newMockCartRepo(), newProductRepo())

	_, err := svc.AddItem(context.Background(), "u1", "p1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItem_UnpublishedProduct(t *testing.T) {
	svc := NewService(newMockCartRepo(), newProductRepo(newTestProduct("p1", "10.00", product.StatusDraft)))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.ErrorIs(t, err, ErrProductNotAvailable)
}

func TestAddItem_MissingProduct(t *testing.T) {
	svc := NewService(newMockCartRepo(), newProductRepo())

	_, err := svc.AddItem(context.Background(), "u1", "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestUpdateQuantity(t *testing.T) {
	repo := newMockCartRepo()
	svc := NewService(repo, newProductRepo(newTestProduct("p1", "10.00", product.StatusPublished)))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(context.Background(), "u1", "p1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Items[0].Quantity)
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	repo := newMockCartRepo()
	svc := NewService(repo, newProductRepo(newTestProduct("p1", "10.00", product.StatusPublished)))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(context.Background(), "u1", "p1", 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestUpdateQuantity_MissingLine(t *testing.T) {
	svc := NewService(newMockCartRepo(), newProductRepo())

	_, err := svc.UpdateQuantity(context.Background(), "u1", "p1", 3)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	repo := newMockCartRepo()
	svc := NewService(repo, newProductRepo(newTestProduct("p1", "10.00", product.StatusPublished)))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.NoError(t, err)

	c, err := svc.RemoveItem(context.Background(), "u1", "not-in-cart")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}

func TestResolve_SkipsStaleLines(t *testing.T) {
	repo := newMockCartRepo()
	repo.byUser["u1"] = &Cart{UserID: "u1", Items: []Item{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "gone", Quantity: 5},
	}}
	products := newProductRepo(
		newTestProduct("p1", "10.00", product.StatusPublished),
		newTestProduct("p2", "4.50", product.StatusArchived),
	)
	svc := NewService(repo, products)

	view, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)

	// Archived and deleted products are excluded from view and totals, but
	// the stored cart keeps all three lines.
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "p1", view.Lines[0].Product.ID)
	assert.Equal(t, 2, view.TotalItems)
	assert.True(t, decimal.RequireFromString("20.00").Equal(view.TotalPrice))
	assert.Len(t, repo.byUser["u1"].Items, 3)
}

func TestResolve_EmptyCart(t *testing.T) {
	svc := NewService(newMockCartRepo(), newProductRepo())

	view, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Zero(t, view.TotalItems)
	assert.True(t, view.TotalPrice.IsZero())
}
