package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigstastore/marketplace/internal/domain/cart"
	"github.com/gigstastore/marketplace/internal/domain/order"
	"github.com/gigstastore/marketplace/internal/domain/product"
	"github.com/gigstastore/marketplace/internal/domain/seller"
	"github.com/gigstastore/marketplace/internal/domain/user"
)

// --- Mock implementations ---

type mockCartRepo struct {
	cart    *cart.Cart
	getErr  error
	removed [][]string
	cleared bool
}

func (m *mockCartRepo) Get(_ context.Context, userID string) (*cart.Cart, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.cart == nil {
		return &cart.Cart{UserID: userID}, nil
	}
	return m.cart, nil
}

func (m *mockCartRepo) Save(_ context.Context, c *cart.Cart) error {
	m.cart = c
	return nil
}

func (m *mockCartRepo) RemoveItems(_ context.Context, _ string, productIDs []string) error {
	m.removed = append(m.removed, productIDs)
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, _ string) error {
	m.cleared = true
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

func (m *mockProductRepo) ListBySeller(_ context.Context, sellerID string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if p.SellerID == sellerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) SetBillingRefs(_ context.Context, id, productID, priceID string) error {
	p, ok := m.byID[id]
	if !ok {
		return product.ErrNotFound
	}
	p.BillingProductID = productID
	p.BillingPriceID = priceID
	return nil
}

type mockSellerRepo struct {
	byID          map[string]*seller.Seller
	statusUpdates map[string]seller.PayoutStatus
}

func (m *mockSellerRepo) GetByID(_ context.Context, id string) (*seller.Seller, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, seller.ErrNotFound
	}
	return s, nil
}

func (m *mockSellerRepo) GetByIDs(_ context.Context, ids []string) ([]seller.Seller, error) {
	var out []seller.Seller
	for _, id := range ids {
		if s, ok := m.byID[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSellerRepo) GetByConnectAccount(_ context.Context, accountID string) (*seller.Seller, error) {
	for _, s := range m.byID {
		if s.ConnectAccountID == accountID {
			return s, nil
		}
	}
	return nil, seller.ErrNotFound
}

func (m *mockSellerRepo) UpdatePayoutStatus(_ context.Context, id string, status seller.PayoutStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]seller.PayoutStatus)
	}
	m.statusUpdates[id] = status
	if s, ok := m.byID[id]; ok {
		s.PayoutStatus = status
	}
	return nil
}

func (m *mockSellerRepo) ResetBilling(_ context.Context, id string) error {
	s, ok := m.byID[id]
	if !ok {
		return seller.ErrNotFound
	}
	s.ConnectAccountID = ""
	s.PayoutStatus = seller.PayoutNotApplied
	return nil
}

type mockOrderRepo struct {
	created    []*order.Order
	bySession  map[string]*order.Order
	createErr  error
	sessionIDs map[string]string
	completed  []string
	lastLimit  int
	lastOffset int
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	for _, o := range m.created {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) GetBySessionID(_ context.Context, sessionID string) (*order.Order, error) {
	o, ok := m.bySession[sessionID]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]order.Order, error) {
	m.lastLimit, m.lastOffset = limit, offset
	var out []order.Order
	for _, o := range m.created {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) SetSessionID(_ context.Context, id, sessionID string) error {
	if m.sessionIDs == nil {
		m.sessionIDs = make(map[string]string)
	}
	m.sessionIDs[id] = sessionID
	for _, o := range m.created {
		if o.ID == id {
			o.CheckoutSessionID = sessionID
		}
	}
	return nil
}

func (m *mockOrderRepo) Complete(_ context.Context, id, _ string, _ time.Time) error {
	m.completed = append(m.completed, id)
	return nil
}

func (m *mockOrderRepo) ExpirePending(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type mockUserRepo struct {
	byID map[string]*user.User
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type mockProvider struct {
	createCalls []CreateSessionParams
	createErr   error
	session     *ProviderSession
	getSession  *ProviderSession
	getErr      error
}

func (m *mockProvider) CreateSession(_ context.Context, params CreateSessionParams) (*ProviderSession, error) {
	m.createCalls = append(m.createCalls, params)
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.session != nil {
		return m.session, nil
	}
	return &ProviderSession{ID: "cs_test", URL: "https://pay.example/cs_test"}, nil
}

func (m *mockProvider) GetSession(_ context.Context, sessionID, connectAccountID string) (*ProviderSession, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getSession != nil {
		return m.getSession, nil
	}
	return &ProviderSession{ID: sessionID, PaymentIntentID: "pi_test", Status: "complete"}, nil
}

type mockNotifier struct {
	orders []string
	err    error
}

func (m *mockNotifier) OrderCompleted(_ context.Context, o *order.Order) error {
	m.orders = append(m.orders, o.ID)
	return m.err
}

type mockPublisher struct {
	orderEvents  []string
	sellerEvents []string
}

func (m *mockPublisher) OrderCompleted(_ context.Context, o *order.Order) error {
	m.orderEvents = append(m.orderEvents, o.ID)
	return nil
}

func (m *mockPublisher) SellerActivated(_ context.Context, sellerID string) error {
	m.sellerEvents = append(m.sellerEvents, sellerID)
	return nil
}

// --- Helpers ---

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestProduct(id, sellerID, title string, price string, recurring bool) product.Product {
	return product.Product{
		ID:             id,
		SellerID:       sellerID,
		Title:          title,
		Price:          money(price),
		Category:       "test",
		Status:         product.StatusPublished,
		IsRecurring:    recurring,
		BillingPriceID: "price_" + id,
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func newSellerRepo(sellers ...seller.Seller) *mockSellerRepo {
	byID := make(map[string]*seller.Seller, len(sellers))
	for i := range sellers {
		byID[sellers[i].ID] = &sellers[i]
	}
	return &mockSellerRepo{byID: byID}
}

func activeSeller(id, name, account string) seller.Seller {
	return seller.Seller{
		ID:               id,
		DisplayName:      name,
		Email:            id + "@example.com",
		ConnectAccountID: account,
		PayoutStatus:     seller.PayoutActive,
	}
}

func cartWith(userID string, items ...cart.Item) *mockCartRepo {
	return &mockCartRepo{cart: &cart.Cart{UserID: userID, Items: items}}
}
