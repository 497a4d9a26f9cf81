// Package report renders checkout results for humans. It implements the
// pipeline's sink interfaces; all numbers arrive pre-computed.
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/nazeru/checkout-lab-go/internal/shop/checkout"
)

// ConsolePrinter writes the shipment notice and receipt in the classic
// fixed-width console format.
type ConsolePrinter struct {
	Out io.Writer
}

func NewConsolePrinter(out io.Writer) *ConsolePrinter {
	return &ConsolePrinter{Out: out}
}

func (c *ConsolePrinter) ShipmentCreated(_ context.Context, notice checkout.ShipmentNotice) {
	fmt.Fprintln(c.Out, "** Shipment notice **")
	for _, line := range notice.Lines {
		fmt.Fprintf(c.Out, "%dx %s %dg\n", line.Quantity, line.Name, line.WeightGrams)
	}
	fmt.Fprintf(c.Out, "Total package weight %skg\n", notice.TotalWeightKg.StringFixed(1))
}

func (c *ConsolePrinter) ReceiptIssued(_ context.Context, receipt checkout.Receipt) {
	fmt.Fprintln(c.Out, "** Checkout receipt **")
	for _, line := range receipt.Lines {
		fmt.Fprintf(c.Out, "%dx %s %d\n", line.Quantity, line.Name, line.LineTotal)
	}
	fmt.Fprintln(c.Out, "----------------------")
	fmt.Fprintf(c.Out, "Subtotal %d\n", receipt.Subtotal)
	fmt.Fprintf(c.Out, "Shipping %d\n", receipt.ShippingFees)
	fmt.Fprintf(c.Out, "Amount %d\n", receipt.Total)
}
