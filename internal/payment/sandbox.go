package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Sandbox issues local order ids and signs with a shared secret. It stands in
// for the hosted provider in development and tests.
type Sandbox struct {
	keyID  string
	secret string
}

func NewSandbox(keyID, secret string) *Sandbox {
	return &Sandbox{keyID: keyID, secret: secret}
}

func (s *Sandbox) KeyID() string { return s.keyID }

func (s *Sandbox) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	id := "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	return Order{
		ID:       id,
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (s *Sandbox) VerifySignature(orderID, paymentID, signature string) error {
	return VerifySignature(s.secret, orderID, paymentID, signature)
}
