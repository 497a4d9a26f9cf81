// Package store is the in-memory catalog and customer registry behind the
// checkout service. Products and customers are shared mutable state; the
// store's lock is what serializes checkouts, since the domain itself holds
// no locks.
package store

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nazeru/checkout-lab-go/internal/shop/domain"
)

type Store struct {
	mu        sync.Mutex
	products  map[string]*domain.Product
	customers map[string]*domain.Customer
}

func New() *Store {
	return &Store{
		products:  make(map[string]*domain.Product),
		customers: make(map[string]*domain.Customer),
	}
}

func (s *Store) AddProduct(p *domain.Product) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.products[id] = p
	return id
}

func (s *Store) Product(id string) (*domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *Store) AddCustomer(c *domain.Customer) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.customers[id] = c
	return id
}

func (s *Store) Customer(id string) (*domain.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	return c, ok
}

// Serialize runs fn under the store lock. Cart adds and checkouts go
// through here so that concurrent requests see one checkout at a time.
func (s *Store) Serialize(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// SeedDemo loads the classic sample catalog and returns name -> product id.
func (s *Store) SeedDemo() map[string]string {
	ids := make(map[string]string)
	ids["Cheese"] = s.AddProduct(domain.NewExpirableShippable("Cheese", decimal.NewFromInt(100), 10, false, decimal.NewFromFloat(0.2)))
	ids["Biscuits"] = s.AddProduct(domain.NewExpirableShippable("Biscuits", decimal.NewFromInt(150), 20, false, decimal.NewFromFloat(0.7)))
	ids["TV"] = s.AddProduct(domain.NewShippable("TV", decimal.NewFromInt(1500), 1, decimal.NewFromFloat(10.0)))
	ids["Mobile Scratch Card"] = s.AddProduct(domain.NewSimple("Mobile Scratch Card", decimal.NewFromInt(5), 2))
	return ids
}
