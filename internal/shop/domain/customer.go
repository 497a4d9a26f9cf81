package domain

import "github.com/shopspring/decimal"

// Customer owns exactly one cart for its lifetime. Balance decreases only
// through a successful checkout debit.
type Customer struct {
	name    string
	balance decimal.Decimal
	cart    Cart
}

func NewCustomer(name string, balance decimal.Decimal) *Customer {
	return &Customer{name: name, balance: balance}
}

func (c *Customer) Name() string {
	return c.name
}

func (c *Customer) Balance() decimal.Decimal {
	return c.balance
}

func (c *Customer) Cart() *Cart {
	return &c.cart
}

// DeductBalance debits amount. Affordability is the checkout pipeline's
// check; this only applies the already-validated debit.
func (c *Customer) DeductBalance(amount decimal.Decimal) {
	c.balance = c.balance.Sub(amount)
}
