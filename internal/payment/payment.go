// Package payment talks to the hosted checkout provider: it creates provider
// orders that the checkout widget is opened with, and checks the signature the
// widget returns once the customer has paid.
package payment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrProvider         = errors.New("payment provider error")
)

// OrderRequest asks the provider for a new order. Amount is in minor units.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is the provider's view of a created order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Provider is the server-side half of the hosted checkout contract.
type Provider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	VerifySignature(orderID, paymentID, signature string) error
	// KeyID is the public key the widget is initialised with.
	KeyID() string
}

func timeoutFor(ctx context.Context, def time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < def || def <= 0 {
			return left
		}
	}
	return def
}
