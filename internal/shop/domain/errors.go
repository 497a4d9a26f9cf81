package domain

import (
	"errors"
	"fmt"
)

// Kind identifies a checkout failure class. The wire/log representation is
// the snake_case string value.
type Kind string

const (
	KindInsufficientStock   Kind = "insufficient_stock"
	KindEmptyCart           Kind = "empty_cart"
	KindOutOfStock          Kind = "out_of_stock"
	KindExpiredProduct      Kind = "expired_product"
	KindInsufficientBalance Kind = "insufficient_balance"
)

// Error is the single failure channel for cart and checkout operations.
// Product is set for per-item failures, empty otherwise.
type Error struct {
	Kind    Kind
	Product string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func ErrInsufficientStock() error {
	return &Error{Kind: KindInsufficientStock, Message: "Not enough stock."}
}

func ErrEmptyCart() error {
	return &Error{Kind: KindEmptyCart, Message: "Cart is empty."}
}

func ErrOutOfStock(product string) error {
	return &Error{Kind: KindOutOfStock, Product: product, Message: fmt.Sprintf("Product out of stock: %s", product)}
}

func ErrExpiredProduct(product string) error {
	return &Error{Kind: KindExpiredProduct, Product: product, Message: fmt.Sprintf("Product expired: %s", product)}
}

func ErrInsufficientBalance() error {
	return &Error{Kind: KindInsufficientBalance, Message: "Insufficient balance."}
}

// ErrKind extracts the failure kind from err, or "" when err is not a
// domain failure.
func ErrKind(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
