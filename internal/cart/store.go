// Package cart holds the storefront's client-side shopping cart.
package cart

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/earthly-storefront/internal/money"
	"github.com/wichananm65/earthly-storefront/internal/product"
)

// ErrInvalidPrice is returned by Add for a product with a negative price.
var ErrInvalidPrice = errors.New("product price must not be negative")

// Line is one product in the cart. UnitMinor is the unit price in minor
// currency units, captured when the line was created.
type Line struct {
	Product   product.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitMinor int64           `json:"unit_minor"`
}

func (l Line) SubtotalMinor() int64 {
	return l.UnitMinor * int64(l.Quantity)
}

// Store is an in-memory cart keyed by product id. A quantity that reaches zero
// or below removes the line, so no line is ever observed with quantity < 1.
// Totals are recomputed from the lines on every call.
type Store struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Store {
	return &Store{}
}

// Add increments the line for p, or inserts it with quantity 1.
func (s *Store) Add(p product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(p.ID); i >= 0 {
		s.lines[i].Quantity++
		return nil
	}
	unit, err := p.PriceMinor()
	if err != nil {
		return ErrInvalidPrice
	}
	s.lines = append(s.lines, Line{Product: p, Quantity: 1, UnitMinor: unit})
	return nil
}

// Remove deletes the line for productID; absent ids are ignored.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(productID)
}

// SetQuantity replaces the quantity of an existing line. qty <= 0 removes the
// line; absent ids are ignored.
func (s *Store) SetQuantity(productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty <= 0 {
		s.remove(productID)
		return
	}
	if i := s.index(productID); i >= 0 {
		s.lines[i].Quantity = qty
	}
}

// TotalMinor is the sum of unit price × quantity in minor units.
func (s *Store) TotalMinor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, l := range s.lines {
		total += l.SubtotalMinor()
	}
	return total
}

// Total is TotalMinor in major units; present it with StringFixed(2).
func (s *Store) Total() decimal.Decimal {
	return money.FromMinor(s.TotalMinor())
}

// Count is the total number of items, not the number of lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Quantity is the quantity of the line for productID, 0 when absent.
func (s *Store) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(productID); i >= 0 {
		return s.lines[i].Quantity
	}
	return 0
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Empty reports whether the cart has no lines.
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// Clear removes every line.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// RemoveLines takes the quantities in paid off the cart. Lines that drop to
// zero are removed; quantities added after the snapshot was taken remain.
func (s *Store) RemoveLines(paid []Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paid {
		i := s.index(p.Product.ID)
		if i < 0 {
			continue
		}
		s.lines[i].Quantity -= p.Quantity
		if s.lines[i].Quantity <= 0 {
			s.remove(p.Product.ID)
		}
	}
}

func (s *Store) index(productID string) int {
	for i, l := range s.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) remove(productID string) {
	if i := s.index(productID); i >= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
}
