package domain

import "fmt"

// CartItem references a shared product; stock or expiry changes made after
// the add are visible through it, which is why checkout re-validates.
type CartItem struct {
	Product  *Product
	Quantity int
}

// Cart is an append-only, insertion-ordered item list. There is no
// remove or merge: adding the same product twice yields two lines.
type Cart struct {
	items []CartItem
}

// AddItem appends (product, quantity) after a point-in-time stock check.
// Nothing is reserved: the stock may still be taken by another checkout
// before this cart reaches its own.
func (c *Cart) AddItem(product *Product, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if quantity > product.Stock() {
		return ErrInsufficientStock()
	}
	c.items = append(c.items, CartItem{Product: product, Quantity: quantity})
	return nil
}

func (c *Cart) Items() []CartItem {
	return c.items
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}
