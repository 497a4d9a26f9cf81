package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nazeru/checkout-lab-go/internal/shop/domain"
)

// ShippingRatePerKg is the flat shipping rate in currency units per
// kilogram of shippable weight.
var ShippingRatePerKg = decimal.NewFromInt(30)

// Summary is the full-precision outcome of a committed checkout. Notice is
// nil when nothing in the cart ships.
type Summary struct {
	Subtotal     decimal.Decimal
	ShippingFees decimal.Decimal
	Total        decimal.Decimal
	Notice       *ShipmentNotice
	Receipt      Receipt
}

// Engine runs the checkout pipeline: validate every cart line against live
// product state, price the cart, then commit stock and balance mutations
// and emit to the sinks. Validation is read-only, so a failure at any step
// leaves products and customer untouched; mutation starts only once every
// check has passed.
//
// The engine holds no locks. Checkouts share mutable product state and the
// caller must serialize them.
type Engine struct {
	Shipments ShipmentSink // optional
	Receipts  ReceiptSink  // optional
}

// Checkout processes the customer's cart. On failure it returns a
// domain.Error carrying the kind and mutates nothing.
func (e *Engine) Checkout(ctx context.Context, customer *domain.Customer) (*Summary, error) {
	cart := customer.Cart()
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart()
	}

	items := cart.Items()
	subtotal := decimal.Zero
	shippingWeight := decimal.Zero
	hasShippable := false
	shipLines := make([]ShipmentLine, 0, len(items))
	receiptLines := make([]ReceiptLine, 0, len(items))

	// Validation pass in cart order; fails fast and re-checks live stock.
	// The cart's add-time check was a snapshot and another checkout may
	// have drained the product since. Demand is accumulated per product
	// because the cart keeps duplicate lines separate, and the commit loop
	// must never hit a product the combined lines would overdraw.
	demand := make(map[*domain.Product]int, len(items))
	for _, item := range items {
		p := item.Product
		demand[p] += item.Quantity
		if demand[p] > p.Stock() {
			return nil, domain.ErrOutOfStock(p.Name())
		}
		if p.IsExpired() {
			return nil, domain.ErrExpiredProduct(p.Name())
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		lineTotal := p.Price().Mul(qty)
		subtotal = subtotal.Add(lineTotal)
		receiptLines = append(receiptLines, ReceiptLine{
			Quantity:  item.Quantity,
			Name:      p.Name(),
			LineTotal: truncateUnits(lineTotal),
		})
		if p.IsShippable() {
			lineWeight := p.WeightKg().Mul(qty)
			shippingWeight = shippingWeight.Add(lineWeight)
			hasShippable = true
			shipLines = append(shipLines, ShipmentLine{
				Quantity:    item.Quantity,
				Name:        p.Name(),
				WeightGrams: roundGrams(lineWeight),
			})
		}
	}

	shippingFees := shippingWeight.Mul(ShippingRatePerKg)
	total := subtotal.Add(shippingFees)
	if customer.Balance().LessThan(total) {
		return nil, domain.ErrInsufficientBalance()
	}

	// Commit phase. All checks passed; mutation is all-or-nothing because
	// nothing below can fail under serialized checkouts.
	for _, item := range items {
		if err := item.Product.ReduceStock(item.Quantity); err != nil {
			return nil, err
		}
	}
	customer.DeductBalance(total)

	summary := &Summary{
		Subtotal:     subtotal,
		ShippingFees: shippingFees,
		Total:        total,
		Receipt: Receipt{
			Lines:        receiptLines,
			Subtotal:     truncateUnits(subtotal),
			ShippingFees: truncateUnits(shippingFees),
			Total:        truncateUnits(total),
		},
	}
	if hasShippable {
		summary.Notice = &ShipmentNotice{Lines: shipLines, TotalWeightKg: shippingWeight}
		if e.Shipments != nil {
			e.Shipments.ShipmentCreated(ctx, *summary.Notice)
		}
	}
	if e.Receipts != nil {
		e.Receipts.ReceiptIssued(ctx, summary.Receipt)
	}
	return summary, nil
}

// truncateUnits drops fractional currency units without rounding.
func truncateUnits(d decimal.Decimal) int64 {
	return d.Truncate(0).IntPart()
}

// roundGrams converts kilograms to the nearest whole gram.
func roundGrams(kg decimal.Decimal) int64 {
	return kg.Mul(decimal.NewFromInt(1000)).Round(0).IntPart()
}
