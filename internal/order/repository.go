package order

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("order not found")
	ErrAlreadyPaid = errors.New("order already paid with a different payment")
)

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ord Order) (Order, error)
	GetByGatewayOrderID(gatewayOrderID string) (Order, error)
	// MarkPaid records the payment and flips status to paid. Repeating it with
	// the same payment id is a no-op; a different payment id yields ErrAlreadyPaid.
	MarkPaid(gatewayOrderID, paymentID string, at time.Time) (Order, error)
	// List returns every order, newest first.
	List() ([]Order, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders []Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Create(ord Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, ord)
	return ord, nil
}

func (r *InMemoryRepository) GetByGatewayOrderID(gatewayOrderID string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.GatewayOrderID == gatewayOrderID {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) MarkPaid(gatewayOrderID, paymentID string, at time.Time) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.orders {
		if o.GatewayOrderID != gatewayOrderID {
			continue
		}
		if o.Status == StatusPaid {
			if o.PaymentID == paymentID {
				return o, nil
			}
			return Order{}, ErrAlreadyPaid
		}
		o.Status = StatusPaid
		o.PaymentID = paymentID
		o.UpdatedAt = at
		r.orders[i] = o
		return o, nil
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) List() ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0, len(r.orders))
	for i := len(r.orders) - 1; i >= 0; i-- {
		out = append(out, r.orders[i])
	}
	return out, nil
}
