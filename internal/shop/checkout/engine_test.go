package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/checkout-lab-go/internal/shop/domain"
)

type recordingSinks struct {
	notices  []ShipmentNotice
	receipts []Receipt
}

func (r *recordingSinks) ShipmentCreated(_ context.Context, notice ShipmentNotice) {
	r.notices = append(r.notices, notice)
}

func (r *recordingSinks) ReceiptIssued(_ context.Context, receipt Receipt) {
	r.receipts = append(r.receipts, receipt)
}

func newTestEngine() (*Engine, *recordingSinks) {
	sinks := &recordingSinks{}
	return &Engine{Shipments: sinks, Receipts: sinks}, sinks
}

func sampleCatalog() (cheese, biscuits, tv, scratchCard *domain.Product) {
	cheese = domain.NewExpirableShippable("Cheese", decimal.NewFromInt(100), 10, false, decimal.NewFromFloat(0.2))
	biscuits = domain.NewExpirableShippable("Biscuits", decimal.NewFromInt(150), 20, false, decimal.NewFromFloat(0.7))
	tv = domain.NewShippable("TV", decimal.NewFromInt(1500), 1, decimal.NewFromFloat(10.0))
	scratchCard = domain.NewSimple("Mobile Scratch Card", decimal.NewFromInt(5), 2)
	return
}

// TestCheckout_EndToEnd runs the canonical order: 2x Cheese, 1x Biscuits,
// 1x TV on a 5000 balance, and checks every number the pipeline produces.
func TestCheckout_EndToEnd(t *testing.T) {
	t.Parallel()

	cheese, biscuits, tv, _ := sampleCatalog()
	alice := domain.NewCustomer("Alice", decimal.NewFromInt(5000))
	require.NoError(t, alice.Cart().AddItem(cheese, 2))
	require.NoError(t, alice.Cart().AddItem(biscuits, 1))
	require.NoError(t, alice.Cart().AddItem(tv, 1))

	engine, sinks := newTestEngine()
	summary, err := engine.Checkout(context.Background(), alice)
	require.NoError(t, err)

	assert.Equal(t, "1850", summary.Subtotal.String())
	assert.Equal(t, "333", summary.ShippingFees.String())
	assert.Equal(t, "2183", summary.Total.String())

	assert.Equal(t, "2817", alice.Balance().String())
	assert.Equal(t, 8, cheese.Stock())
	assert.Equal(t, 19, biscuits.Stock())
	assert.Equal(t, 0, tv.Stock())

	require.NotNil(t, summary.Notice)
	assert.Equal(t, "11.1", summary.Notice.TotalWeightKg.String())
	require.Len(t, summary.Notice.Lines, 3)
	assert.Equal(t, ShipmentLine{Quantity: 2, Name: "Cheese", WeightGrams: 400}, summary.Notice.Lines[0])
	assert.Equal(t, ShipmentLine{Quantity: 1, Name: "Biscuits", WeightGrams: 700}, summary.Notice.Lines[1])
	assert.Equal(t, ShipmentLine{Quantity: 1, Name: "TV", WeightGrams: 10000}, summary.Notice.Lines[2])

	require.Len(t, summary.Receipt.Lines, 3)
	assert.Equal(t, ReceiptLine{Quantity: 2, Name: "Cheese", LineTotal: 200}, summary.Receipt.Lines[0])
	assert.Equal(t, ReceiptLine{Quantity: 1, Name: "Biscuits", LineTotal: 150}, summary.Receipt.Lines[1])
	assert.Equal(t, ReceiptLine{Quantity: 1, Name: "TV", LineTotal: 1500}, summary.Receipt.Lines[2])
	assert.Equal(t, int64(1850), summary.Receipt.Subtotal)
	assert.Equal(t, int64(333), summary.Receipt.ShippingFees)
	assert.Equal(t, int64(2183), summary.Receipt.Total)

	require.Len(t, sinks.notices, 1)
	require.Len(t, sinks.receipts, 1)
	assert.Equal(t, *summary.Notice, sinks.notices[0])
	assert.Equal(t, summary.Receipt, sinks.receipts[0])
}

// TestCheckout_EmptyCart verifies the terminal empty-cart check.
func TestCheckout_EmptyCart(t *testing.T) {
	t.Parallel()

	frank := domain.NewCustomer("Frank", decimal.NewFromInt(100))
	engine, sinks := newTestEngine()

	summary, err := engine.Checkout(context.Background(), frank)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Equal(t, domain.KindEmptyCart, domain.ErrKind(err))
	assert.Equal(t, "Cart is empty.", err.Error())
	assert.Equal(t, "100", frank.Balance().String())
	assert.Empty(t, sinks.notices)
	assert.Empty(t, sinks.receipts)
}

// TestCheckout_OutOfStockRace replays the defining scenario: B's checkout
// drains the cheese that A's cart still references, so A's re-validation
// must fail with no mutation of A's state.
func TestCheckout_OutOfStockRace(t *testing.T) {
	t.Parallel()

	cheese, _, _, _ := sampleCatalog()
	a := domain.NewCustomer("A", decimal.NewFromInt(5000))
	b := domain.NewCustomer("B", decimal.NewFromInt(5000))
	require.NoError(t, a.Cart().AddItem(cheese, 5))
	require.NoError(t, b.Cart().AddItem(cheese, 6))

	engine, _ := newTestEngine()
	_, err := engine.Checkout(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 4, cheese.Stock())

	summary, err := engine.Checkout(context.Background(), a)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Equal(t, domain.KindOutOfStock, domain.ErrKind(err))
	assert.Equal(t, "Product out of stock: Cheese", err.Error())

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "Cheese", derr.Product)

	assert.Equal(t, 4, cheese.Stock())
	assert.Equal(t, "5000", a.Balance().String())
}

// TestCheckout_DuplicateLinesOversell verifies stock validation sums
// duplicate cart lines for the same product: each line alone fits the
// stock, together they overdraw it, and the checkout must fail before
// any line commits.
func TestCheckout_DuplicateLinesOversell(t *testing.T) {
	t.Parallel()

	cheese, _, _, _ := sampleCatalog()
	dave := domain.NewCustomer("Dave", decimal.NewFromInt(100000))
	require.NoError(t, dave.Cart().AddItem(cheese, 6))
	require.NoError(t, dave.Cart().AddItem(cheese, 6))

	engine, sinks := newTestEngine()
	summary, err := engine.Checkout(context.Background(), dave)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Equal(t, domain.KindOutOfStock, domain.ErrKind(err))
	assert.Equal(t, "Product out of stock: Cheese", err.Error())

	assert.Equal(t, 10, cheese.Stock())
	assert.Equal(t, "100000", dave.Balance().String())
	assert.Empty(t, sinks.notices)
	assert.Empty(t, sinks.receipts)
}

// TestCheckout_DuplicateLinesExactFit verifies duplicate lines summing
// to exactly the available stock still commit, draining it to zero.
func TestCheckout_DuplicateLinesExactFit(t *testing.T) {
	t.Parallel()

	cheese, _, _, _ := sampleCatalog()
	customer := domain.NewCustomer("K", decimal.NewFromInt(100000))
	require.NoError(t, customer.Cart().AddItem(cheese, 4))
	require.NoError(t, customer.Cart().AddItem(cheese, 6))

	engine, _ := newTestEngine()
	summary, err := engine.Checkout(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, 0, cheese.Stock())
	require.Len(t, summary.Receipt.Lines, 2)
	assert.Equal(t, int64(400), summary.Receipt.Lines[0].LineTotal)
	assert.Equal(t, int64(600), summary.Receipt.Lines[1].LineTotal)
}

// TestCheckout_ExpiredProduct verifies an expired item fails the whole
// checkout by name, even when everything else is valid and affordable.
func TestCheckout_ExpiredProduct(t *testing.T) {
	t.Parallel()

	cheese, biscuits, _, _ := sampleCatalog()
	erin := domain.NewCustomer("Erin", decimal.NewFromInt(5000))
	require.NoError(t, erin.Cart().AddItem(biscuits, 1))
	require.NoError(t, erin.Cart().AddItem(cheese, 2))
	cheese.SetExpired(true)

	engine, sinks := newTestEngine()
	_, err := engine.Checkout(context.Background(), erin)
	require.Error(t, err)
	assert.Equal(t, domain.KindExpiredProduct, domain.ErrKind(err))
	assert.Equal(t, "Product expired: Cheese", err.Error())

	assert.Equal(t, 10, cheese.Stock())
	assert.Equal(t, 20, biscuits.Stock())
	assert.Equal(t, "5000", erin.Balance().String())
	assert.Empty(t, sinks.notices)
	assert.Empty(t, sinks.receipts)
}

// TestCheckout_InsufficientBalance verifies the affordability check runs
// after pricing and mutates nothing on failure.
func TestCheckout_InsufficientBalance(t *testing.T) {
	t.Parallel()

	_, _, tv, _ := sampleCatalog()
	poor := domain.NewCustomer("Poor", decimal.NewFromInt(100))
	require.NoError(t, poor.Cart().AddItem(tv, 1))

	engine, sinks := newTestEngine()
	_, err := engine.Checkout(context.Background(), poor)
	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientBalance, domain.ErrKind(err))
	assert.Equal(t, "Insufficient balance.", err.Error())

	assert.Equal(t, 1, tv.Stock())
	assert.Equal(t, "100", poor.Balance().String())
	assert.Empty(t, sinks.notices)
	assert.Empty(t, sinks.receipts)
}

// TestCheckout_ValidationFailsFast verifies the first offending item in
// cart order wins when several would fail.
func TestCheckout_ValidationFailsFast(t *testing.T) {
	t.Parallel()

	cheese, biscuits, _, _ := sampleCatalog()
	cheese.SetExpired(true)
	customer := domain.NewCustomer("C", decimal.NewFromInt(5000))
	require.NoError(t, customer.Cart().AddItem(biscuits, 20))
	require.NoError(t, customer.Cart().AddItem(cheese, 1))

	// Drain biscuits so the first line is out of stock and the second
	// expired; cart order decides which error surfaces.
	require.NoError(t, biscuits.ReduceStock(5))

	engine, _ := newTestEngine()
	_, err := engine.Checkout(context.Background(), customer)
	require.Error(t, err)
	assert.Equal(t, domain.KindOutOfStock, domain.ErrKind(err))
	assert.Equal(t, "Product out of stock: Biscuits", err.Error())
}

// TestCheckout_NonShippableOnly verifies non-shippable weight never
// reaches the shipping computation: no fees, no notice.
func TestCheckout_NonShippableOnly(t *testing.T) {
	t.Parallel()

	_, _, _, scratchCard := sampleCatalog()
	gina := domain.NewCustomer("Gina", decimal.NewFromInt(50))
	require.NoError(t, gina.Cart().AddItem(scratchCard, 2))

	engine, sinks := newTestEngine()
	summary, err := engine.Checkout(context.Background(), gina)
	require.NoError(t, err)

	assert.Equal(t, "10", summary.Subtotal.String())
	assert.True(t, summary.ShippingFees.IsZero())
	assert.Equal(t, "10", summary.Total.String())
	assert.Nil(t, summary.Notice)
	assert.Empty(t, sinks.notices)
	require.Len(t, sinks.receipts, 1)
	assert.Equal(t, "40", gina.Balance().String())
}

// TestCheckout_ShippingFeeFormula verifies fees are exactly shippable
// weight times the 30/kg rate, over shippable lines only.
func TestCheckout_ShippingFeeFormula(t *testing.T) {
	t.Parallel()

	box := domain.NewShippable("Box", decimal.NewFromInt(10), 100, decimal.NewFromFloat(1.5))
	card := domain.NewSimple("Card", decimal.NewFromInt(1), 100)
	customer := domain.NewCustomer("H", decimal.NewFromInt(10000))
	require.NoError(t, customer.Cart().AddItem(box, 3))
	require.NoError(t, customer.Cart().AddItem(card, 7))

	engine, _ := newTestEngine()
	summary, err := engine.Checkout(context.Background(), customer)
	require.NoError(t, err)

	// 3 * 1.5kg = 4.5kg; 4.5 * 30 = 135.
	assert.Equal(t, "135", summary.ShippingFees.String())
	require.NotNil(t, summary.Notice)
	assert.Equal(t, "4.5", summary.Notice.TotalWeightKg.String())
}

// TestCheckout_DisplayRounding verifies money truncates toward zero while
// grams round to nearest, and that stored balance keeps full precision.
func TestCheckout_DisplayRounding(t *testing.T) {
	t.Parallel()

	snack := domain.NewExpirableShippable("Snack", decimal.NewFromFloat(10.4), 5, false, decimal.NewFromFloat(0.2225))
	customer := domain.NewCustomer("I", decimal.NewFromInt(100))
	require.NoError(t, customer.Cart().AddItem(snack, 1))

	engine, _ := newTestEngine()
	summary, err := engine.Checkout(context.Background(), customer)
	require.NoError(t, err)

	// 0.2225kg -> 222.5g, rounds to 223.
	require.Len(t, summary.Notice.Lines, 1)
	assert.Equal(t, int64(223), summary.Notice.Lines[0].WeightGrams)

	// Receipt truncates 10.4 to 10, and 10.4 + 0.2225*30 = 17.075 to 17.
	assert.Equal(t, int64(10), summary.Receipt.Lines[0].LineTotal)
	assert.Equal(t, int64(10), summary.Receipt.Subtotal)
	assert.Equal(t, int64(6), summary.Receipt.ShippingFees)
	assert.Equal(t, int64(17), summary.Receipt.Total)

	// The debit keeps full precision: 100 - 17.075.
	assert.Equal(t, "82.925", customer.Balance().String())
}

// TestCheckout_NoSinks verifies the engine works without collaborators
// attached; the summary alone carries everything.
func TestCheckout_NoSinks(t *testing.T) {
	t.Parallel()

	cheese, _, _, _ := sampleCatalog()
	customer := domain.NewCustomer("J", decimal.NewFromInt(5000))
	require.NoError(t, customer.Cart().AddItem(cheese, 1))

	engine := &Engine{}
	summary, err := engine.Checkout(context.Background(), customer)
	require.NoError(t, err)
	require.NotNil(t, summary.Notice)
	assert.Equal(t, 9, cheese.Stock())
}
