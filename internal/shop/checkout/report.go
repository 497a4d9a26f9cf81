package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

// ShipmentLine is one shippable cart line. WeightGrams is the line weight
// (unit weight times quantity) rounded to the nearest gram.
type ShipmentLine struct {
	Quantity    int    `json:"quantity"`
	Name        string `json:"name"`
	WeightGrams int64  `json:"weight_grams"`
}

// ShipmentNotice covers every shippable line of a committed checkout, in
// cart order.
type ShipmentNotice struct {
	Lines         []ShipmentLine  `json:"lines"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
}

// ReceiptLine is one cart line of any kind. LineTotal is price*quantity
// truncated toward zero to whole currency units; the truncation is display
// only and never feeds back into balances.
type ReceiptLine struct {
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	LineTotal int64  `json:"line_total"`
}

// Receipt carries all lines in cart order plus the truncated totals.
type Receipt struct {
	Lines        []ReceiptLine `json:"lines"`
	Subtotal     int64         `json:"subtotal"`
	ShippingFees int64         `json:"shipping_fees"`
	Total        int64         `json:"total"`
}

// ShipmentSink and ReceiptSink are the pipeline's external collaborators.
// They render or forward already-computed data; the pipeline never depends
// on what they do with it.
type ShipmentSink interface {
	ShipmentCreated(ctx context.Context, notice ShipmentNotice)
}

type ReceiptSink interface {
	ReceiptIssued(ctx context.Context, receipt Receipt)
}
