package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/wichananm65/earthly-storefront/internal/checkout"
	"github.com/wichananm65/earthly-storefront/internal/money"
	"github.com/wichananm65/earthly-storefront/internal/payment"
)

var ErrNoPendingPayment = errors.New("no payment widget is open")

// ConsoleGateway plays the hosted payment widget in a terminal. Open prints
// the widget options; the operator then completes the payment with Pay or
// Decline, or walks away with Dismiss.
type ConsoleGateway struct {
	mu     sync.Mutex
	out    io.Writer
	secret string

	orderID    string
	onComplete func(checkout.PaymentResult)
}

// NewConsoleGateway writes to out. A non-empty secret lets Pay sign
// confirmations the way the sandbox provider expects.
func NewConsoleGateway(out io.Writer, secret string) *ConsoleGateway {
	return &ConsoleGateway{out: out, secret: secret}
}

func (g *ConsoleGateway) Open(ctx context.Context, opts checkout.GatewayOptions, onComplete func(checkout.PaymentResult)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.OrderID == "" || opts.Key == "" {
		return errors.New("gateway options need an order id and key")
	}
	b, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.orderID = opts.OrderID
	g.onComplete = onComplete
	g.mu.Unlock()

	fmt.Fprintf(g.out, "== %s: pay %s %s ==\n%s\n", opts.Name, money.Format(opts.Amount), opts.Currency, b)
	fmt.Fprintln(g.out, "complete with: pay <payment_id> [signature] | decline [reason] | dismiss")
	return nil
}

// Pending returns the order id the widget is open for.
func (g *ConsoleGateway) Pending() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orderID, g.onComplete != nil
}

// Pay reports a successful payment. Without a signature the confirmation is
// signed with the gateway secret.
func (g *ConsoleGateway) Pay(paymentID, signature string) error {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return errors.New("payment id is required")
	}
	orderID, cb, err := g.take()
	if err != nil {
		return err
	}
	if signature == "" && g.secret != "" {
		signature = payment.Sign(g.secret, orderID, paymentID)
	}
	cb(checkout.PaymentResult{Confirmation: checkout.PaymentConfirmation{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: signature,
	}})
	return nil
}

// Decline reports a failed payment.
func (g *ConsoleGateway) Decline(reason string) error {
	_, cb, err := g.take()
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "payment declined"
	}
	cb(checkout.PaymentResult{Err: errors.New(reason)})
	return nil
}

// Dismiss closes the widget without reporting anything.
func (g *ConsoleGateway) Dismiss() error {
	_, _, err := g.take()
	return err
}

func (g *ConsoleGateway) take() (string, func(checkout.PaymentResult), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.onComplete == nil {
		return "", nil, ErrNoPendingPayment
	}
	orderID, cb := g.orderID, g.onComplete
	g.orderID, g.onComplete = "", nil
	return orderID, cb, nil
}
