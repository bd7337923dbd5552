package checkout

import (
	"context"
	"strings"
)

type Step string

const (
	StepIdle              Step = "idle"
	StepCollectingDetails Step = "collecting_details"
	StepRequestingOrder   Step = "requesting_order"
	StepAwaitingPayment   Step = "awaiting_payment"
	StepVerifyingPayment  Step = "verifying_payment"
	StepCompleted         Step = "completed"
	StepFailed            Step = "failed"
)

// Busy reports whether a checkout attempt is in flight.
func (s Step) Busy() bool {
	return s == StepRequestingOrder || s == StepAwaitingPayment || s == StepVerifyingPayment
}

func (s Step) String() string {
	return string(s)
}

// CustomerDetails is the checkout form.
type CustomerDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Validate returns a *ValidationError for the first empty field.
func (d CustomerDetails) Validate() error {
	fields := []struct{ name, value string }{
		{"name", d.Name},
		{"email", d.Email},
		{"phone", d.Phone},
		{"address", d.Address},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name}
		}
	}
	return nil
}

// OrderRequest is sent to the backend to open a payment order. Amount is in
// minor currency units.
type OrderRequest struct {
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Customer CustomerDetails `json:"customer_details"`
}

// OrderToken identifies the pending payment the gateway is opened with.
type OrderToken struct {
	OrderID  string `json:"order_id"`
	KeyID    string `json:"key_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentConfirmation is the signed triple returned by the gateway. It is
// forwarded to the backend untouched.
type PaymentConfirmation struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// PaymentResult is delivered by the gateway once the customer finishes.
type PaymentResult struct {
	Confirmation PaymentConfirmation
	Err          error
}

// Prefill seeds the widget's contact form.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Theme is the widget accent colour.
type Theme struct {
	Color string `json:"color"`
}

// GatewayOptions configures the hosted checkout widget.
type GatewayOptions struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	OrderID     string  `json:"order_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Prefill     Prefill `json:"prefill"`
	Theme       Theme   `json:"theme"`
}

// Backend creates payment orders and verifies confirmations. VerifyPayment
// returns an error matching ErrVerificationDeclined when the backend has
// definitely refused the confirmation; any other error is treated as transient.
type Backend interface {
	CreateOrder(ctx context.Context, idempotencyKey string, req OrderRequest) (OrderToken, error)
	VerifyPayment(ctx context.Context, c PaymentConfirmation) error
}

// Gateway opens the hosted checkout. Open returns once the widget is shown;
// onComplete is invoked later, possibly from another goroutine, at most once.
// A dismissed widget never calls onComplete.
type Gateway interface {
	Open(ctx context.Context, opts GatewayOptions, onComplete func(PaymentResult)) error
}

// State is a serialisable snapshot of the checkout flow.
type State struct {
	Step         Step                 `json:"step"`
	Open         bool                 `json:"open"`
	Details      CustomerDetails      `json:"details"`
	Error        string               `json:"error,omitempty"`
	AttemptID    string               `json:"attempt_id,omitempty"`
	Order        *OrderToken          `json:"order,omitempty"`
	Unreconciled *PaymentConfirmation `json:"unreconciled,omitempty"`
	LastOrderID  string               `json:"last_order_id,omitempty"`
}
