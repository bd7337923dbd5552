package order

import (
	"strings"
	"time"
)

type Status string

const (
	StatusCreated Status = "created"
	StatusPaid    Status = "paid"
)

// CustomerDetails is the contact block captured at checkout.
type CustomerDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Missing returns the JSON name of the first empty field, or "" when complete.
func (d CustomerDetails) Missing() string {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return "name"
	case strings.TrimSpace(d.Email) == "":
		return "email"
	case strings.TrimSpace(d.Phone) == "":
		return "phone"
	case strings.TrimSpace(d.Address) == "":
		return "address"
	}
	return ""
}

// Order is a payment order created for one checkout attempt. Amount is in
// minor currency units.
type Order struct {
	ID             string          `json:"id"`
	GatewayOrderID string          `json:"razorpay_order_id"`
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	Customer       CustomerDetails `json:"customer_details"`
	Status         Status          `json:"status"`
	PaymentID      string          `json:"payment_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateRequest is the body of POST /api/create-order.
type CreateRequest struct {
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Customer CustomerDetails `json:"customer_details"`
}

// Token is what the storefront needs to open the checkout widget.
type Token struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// Verification is the body of POST /api/verify-payment; the field names are
// the ones the checkout widget hands back.
type Verification struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}
