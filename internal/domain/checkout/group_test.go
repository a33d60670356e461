package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigstastore/marketplace/internal/domain/cart"
	"github.com/gigstastore/marketplace/internal/domain/product"
	"github.com/gigstastore/marketplace/internal/domain/seller"
)

func TestGroupForCheckout_EmptyCart(t *testing.T) {
	g := NewGrouper(&mockCartRepo{}, newProductRepo(), newSellerRepo())

	groups, err := g.GroupForCheckout(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroupForCheckout_SplitsBySellerAndMode(t *testing.T) {
	carts := cartWith("u1",
		cart.Item{ProductID: "p1", Quantity: 2},
		cart.Item{ProductID: "p2", Quantity: 1},
		cart.Item{ProductID: "p3", Quantity: 1},
	)
	products := newProductRepo(
		newTestProduct("p1", "s1", "Candles", "34.50", false),
		newTestProduct("p2", "s1", "Backup plan", "12.00", true),
		newTestProduct("p3", "s2", "Bowl", "120.00", false),
	)
	sellers := newSellerRepo(
		activeSeller("s1", "Kereru Crafts", "acct_1"),
		activeSeller("s2", "Tui Digital", "acct_2"),
	)
	g := NewGrouper(carts, products, sellers)

	groups, err := g.GroupForCheckout(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, groups, 3, "one-time and recurring lines of the same seller must not share a group")

	// Every cart line whose product survived lands in exactly one group.
	seen := make(map[string]int)
	for _, grp := range groups {
		for _, line := range grp.Lines {
			seen[line.Product.ID]++
			assert.Equal(t, grp.SellerID, line.Product.SellerID)
			assert.Equal(t, grp.IsRecurring, line.Product.IsRecurring)
		}
	}
	assert.Equal(t, map[string]int{"p1": 1, "p2": 1, "p3": 1}, seen)
}

func TestGroupForCheckout_Totals(t *testing.T) {
	carts := cartWith("u1",
		cart.Item{ProductID: "p1", Quantity: 3},
		cart.Item{ProductID: "p2", Quantity: 1},
	)
	products := newProductRepo(
		newTestProduct("p1", "s1", "Candles", "34.50", false),
		newTestProduct("p2", "s1", "Bowl", "120.00", false),
	)
	g := NewGrouper(carts, products, newSellerRepo(activeSeller("s1", "Kereru Crafts", "acct_1")))

	groups, err := g.GroupForCheckout(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, groups, 1)

	grp := groups[0]
	require.Len(t, grp.Lines, 2)
	assert.True(t, money("103.50").Equal(grp.Lines[0].Subtotal))
	assert.True(t, money("120.00").Equal(grp.Lines[1].Subtotal))
	assert.True(t, money("223.50").Equal(grp.Total))
	assert.Equal(t, "acct_1", grp.ConnectAccountID)
	assert.Equal(t, "Kereru Crafts", grp.SellerName)
}

func TestGroupForCheckout_DropsStaleLines(t *testing.T) {
	unpublished := newTestProduct("p2", "s1", "Draft thing", "5.00", false)
	unpublished.Status = product.StatusDraft

	carts := cartWith("u1",
		cart.Item{ProductID: "p1", Quantity: 1},
		cart.Item{ProductID: "p2", Quantity: 1},
		cart.Item{ProductID: "missing", Quantity: 4},
	)
	products := newProductRepo(
		newTestProduct("p1", "s1", "Candles", "34.50", false),
		unpublished,
	)
	g := NewGrouper(carts, products, newSellerRepo(activeSeller("s1", "Kereru Crafts", "acct_1")))

	groups, err := g.GroupForCheckout(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Lines, 1)
	assert.Equal(t, "p1", groups[0].Lines[0].Product.ID)
}

func TestGroupForCheckout_DropsNonOnboardedSellers(t *testing.T) {
	pending := seller.Seller{
		ID:               "s2",
		DisplayName:      "Pending Seller",
		ConnectAccountID: "acct_2",
		PayoutStatus:     seller.PayoutPending,
	}
	carts := cartWith("u1",
		cart.Item{ProductID: "p1", Quantity: 1},
		cart.Item{ProductID: "p2", Quantity: 1},
	)
	products := newProductRepo(
		newTestProduct("p1", "s1", "Candles", "34.50", false),
		newTestProduct("p2", "s2", "Bowl", "120.00", false),
	)
	g := NewGrouper(carts, products, newSellerRepo(activeSeller("s1", "Kereru Crafts", "acct_1"), pending))

	groups, err := g.GroupForCheckout(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "s1", groups[0].SellerID)
}

func TestGroupForCheckout_DoesNotMutateCart(t *testing.T) {
	carts := cartWith("u1",
		cart.Item{ProductID: "p1", Quantity: 1},
		cart.Item{ProductID: "missing", Quantity: 1},
	)
	products := newProductRepo(newTestProduct("p1", "s1", "Candles", "34.50", false))
	g := NewGrouper(carts, products, newSellerRepo(activeSeller("s1", "Kereru Crafts", "acct_1")))

	_, err := g.GroupForCheckout(context.Background(), "u1")
	require.NoError(t, err)

	assert.Len(t, carts.cart.Items, 2, "grouping must not shrink the stored cart")
	assert.Empty(t, carts.removed)
	assert.False(t, carts.cleared)
}
