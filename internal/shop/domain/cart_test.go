package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddItem_SnapshotCheck verifies the add-time check is a point-in-time
// snapshot: nothing is reserved, so two adds of 6 against stock 10 both
// pass.
func TestAddItem_SnapshotCheck(t *testing.T) {
	t.Parallel()

	cheese := NewExpirableShippable("Cheese", decimal.NewFromInt(100), 10, false, decimal.NewFromFloat(0.2))
	a := NewCustomer("A", decimal.NewFromInt(5000))
	b := NewCustomer("B", decimal.NewFromInt(5000))

	require.NoError(t, a.Cart().AddItem(cheese, 6))
	require.NoError(t, b.Cart().AddItem(cheese, 6))
	assert.Equal(t, 10, cheese.Stock())
}

// TestAddItem_InsufficientStock verifies the add fails against snapshot
// stock and appends nothing.
func TestAddItem_InsufficientStock(t *testing.T) {
	t.Parallel()

	tv := NewShippable("TV", decimal.NewFromInt(1500), 1, decimal.NewFromFloat(10.0))
	bob := NewCustomer("Bob", decimal.NewFromInt(5000))

	err := bob.Cart().AddItem(tv, 3)
	require.Error(t, err)
	assert.Equal(t, KindInsufficientStock, ErrKind(err))
	assert.Equal(t, "Not enough stock.", err.Error())
	assert.True(t, bob.Cart().IsEmpty())
}

// TestAddItem_RejectsNonPositiveQuantity verifies quantity must be a
// positive integer. This is a plain error, not a checkout failure kind.
func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	cheese := NewExpirableShippable("Cheese", decimal.NewFromInt(100), 10, false, decimal.NewFromFloat(0.2))
	cart := &Cart{}

	for _, qty := range []int{0, -1} {
		err := cart.AddItem(cheese, qty)
		require.Error(t, err)
		assert.Empty(t, ErrKind(err))
	}
	assert.True(t, cart.IsEmpty())
}

// TestCart_OrderAndDuplicates verifies insertion order is preserved and
// the same product added twice yields two separate lines.
func TestCart_OrderAndDuplicates(t *testing.T) {
	t.Parallel()

	cheese := NewExpirableShippable("Cheese", decimal.NewFromInt(100), 10, false, decimal.NewFromFloat(0.2))
	tv := NewShippable("TV", decimal.NewFromInt(1500), 1, decimal.NewFromFloat(10.0))
	cart := &Cart{}

	require.NoError(t, cart.AddItem(cheese, 2))
	require.NoError(t, cart.AddItem(tv, 1))
	require.NoError(t, cart.AddItem(cheese, 3))

	items := cart.Items()
	require.Len(t, items, 3)
	assert.Same(t, cheese, items[0].Product)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Same(t, tv, items[1].Product)
	assert.Same(t, cheese, items[2].Product)
	assert.Equal(t, 3, items[2].Quantity)
}

// TestCustomer_DeductBalance verifies the debit keeps full precision.
func TestCustomer_DeductBalance(t *testing.T) {
	t.Parallel()

	alice := NewCustomer("Alice", decimal.NewFromInt(100))
	alice.DeductBalance(decimal.NewFromFloat(10.4))
	assert.Equal(t, "89.6", alice.Balance().String())
	assert.Equal(t, "Alice", alice.Name())
}

// TestCustomer_OwnsOneCart verifies the cart reference is stable for the
// customer's lifetime.
func TestCustomer_OwnsOneCart(t *testing.T) {
	t.Parallel()

	alice := NewCustomer("Alice", decimal.NewFromInt(100))
	assert.Same(t, alice.Cart(), alice.Cart())
}
