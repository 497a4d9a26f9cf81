package domain

import "github.com/shopspring/decimal"

// ShippingInfo is present on products that physically ship.
type ShippingInfo struct {
	WeightKg decimal.Decimal
}

// Expiry is present on products that can go stale.
type Expiry struct {
	Expired bool
}

// Product is a catalog item. The two capability fields are orthogonal:
// a nil Expiry means the product never expires, a nil ShippingInfo means
// it never ships. Stock mutates only through ReduceStock.
type Product struct {
	name  string
	price decimal.Decimal
	stock int

	expiry   *Expiry
	shipping *ShippingInfo
}

// NewExpirableShippable builds a product that both expires and ships
// (cheese, biscuits).
func NewExpirableShippable(name string, price decimal.Decimal, stock int, expired bool, weightKg decimal.Decimal) *Product {
	return &Product{
		name:     name,
		price:    price,
		stock:    stock,
		expiry:   &Expiry{Expired: expired},
		shipping: &ShippingInfo{WeightKg: weightKg},
	}
}

// NewShippable builds a never-expiring product that ships (a TV).
func NewShippable(name string, price decimal.Decimal, stock int, weightKg decimal.Decimal) *Product {
	return &Product{
		name:     name,
		price:    price,
		stock:    stock,
		shipping: &ShippingInfo{WeightKg: weightKg},
	}
}

// NewExpirable builds a product that expires but does not ship.
func NewExpirable(name string, price decimal.Decimal, stock int, expired bool) *Product {
	return &Product{
		name:   name,
		price:  price,
		stock:  stock,
		expiry: &Expiry{Expired: expired},
	}
}

// NewSimple builds a product with neither capability (a scratch card).
func NewSimple(name string, price decimal.Decimal, stock int) *Product {
	return &Product{name: name, price: price, stock: stock}
}

func (p *Product) Name() string {
	return p.name
}

func (p *Product) Price() decimal.Decimal {
	return p.price
}

func (p *Product) Stock() int {
	return p.stock
}

func (p *Product) IsExpired() bool {
	return p.expiry != nil && p.expiry.Expired
}

// SetExpired flips the expiry state. No-op on never-expiring products.
func (p *Product) SetExpired(expired bool) {
	if p.expiry != nil {
		p.expiry.Expired = expired
	}
}

func (p *Product) IsShippable() bool {
	return p.shipping != nil
}

// WeightKg returns the unit weight. Zero for non-shippable products;
// callers must gate on IsShippable.
func (p *Product) WeightKg() decimal.Decimal {
	if p.shipping == nil {
		return decimal.Zero
	}
	return p.shipping.WeightKg
}

// ReduceStock decrements stock by amount. It refuses to go negative and
// fails with KindInsufficientStock instead of trusting the caller to have
// validated first.
func (p *Product) ReduceStock(amount int) error {
	if amount > p.stock {
		return ErrInsufficientStock()
	}
	p.stock -= amount
	return nil
}
