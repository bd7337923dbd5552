// Package checkout drives a single storefront checkout: it validates the
// customer form, asks the backend for an order, hands the order to the hosted
// payment widget and, once the widget reports back, has the backend verify the
// signed confirmation before the cart is cleared.
//
// Only one attempt is in flight at a time. Every transition happens under the
// coordinator's lock; network calls and the widget run outside it.
package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wichananm65/earthly-storefront/internal/cart"
)

// Options are the storefront settings passed through to the gateway widget.
type Options struct {
	Currency       string
	StoreName      string
	Description    string
	ThemeColor     string
	PaymentTimeout time.Duration
}

type Coordinator struct {
	mu      sync.Mutex
	cart    *cart.Store
	backend Backend
	gateway Gateway
	opts    Options

	state   State
	lastErr error
	timer   *time.Timer

	// charged holds the cart lines each attempt's order was created for.
	charged map[string][]cart.Line

	newID    func() string
	observer func(State)
}

func NewCoordinator(c *cart.Store, b Backend, g Gateway, opts Options) *Coordinator {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	return &Coordinator{
		cart:    c,
		backend: b,
		gateway: g,
		opts:    opts,
		state:   State{Step: StepIdle},
		charged: map[string][]cart.Line{},
		newID:   uuid.NewString,
	}
}

// OnChange registers fn to receive a snapshot after every transition. It is
// called without the coordinator lock held.
func (c *Coordinator) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// State returns a snapshot of the current checkout state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// LastError is the error behind the most recent failed transition.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Open shows the checkout form.
func (c *Coordinator) Open() error {
	c.mu.Lock()
	if c.state.Step.Busy() {
		c.mu.Unlock()
		return ErrCheckoutInProgress
	}
	if c.cart.Empty() {
		c.mu.Unlock()
		return ErrEmptyCart
	}
	c.state.Open = true
	c.state.Error = ""
	c.lastErr = nil
	c.setStep(StepCollectingDetails)
	c.unlockAndEmit()
	return nil
}

// Close hides the checkout form. Entered details are kept.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.state.Step.Busy() {
		c.mu.Unlock()
		return ErrCheckoutInProgress
	}
	c.state.Open = false
	c.state.Error = ""
	c.setStep(StepIdle)
	c.unlockAndEmit()
	return nil
}

// SetDetails replaces the form contents.
func (c *Coordinator) SetDetails(d CustomerDetails) error {
	c.mu.Lock()
	if c.state.Step.Busy() {
		c.mu.Unlock()
		return ErrCheckoutInProgress
	}
	c.state.Details = d
	c.unlockAndEmit()
	return nil
}

// Submit validates the form, creates an order and opens the payment widget.
// It returns once the widget is open; the outcome arrives through the
// widget's completion callback.
func (c *Coordinator) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.state.Step.Busy():
		c.mu.Unlock()
		return ErrCheckoutInProgress
	case !c.state.Open || (c.state.Step != StepCollectingDetails && c.state.Step != StepFailed):
		c.mu.Unlock()
		return ErrIllegalTransition
	case c.state.Unreconciled != nil:
		c.fail(ErrUnreconciledPayment)
		c.unlockAndEmit()
		return ErrUnreconciledPayment
	}

	details := c.state.Details
	if err := details.Validate(); err != nil {
		c.state.Error = UserMessage(err)
		c.lastErr = err
		c.setStep(StepCollectingDetails)
		c.unlockAndEmit()
		return err
	}
	lines := c.cart.Lines()
	if len(lines) == 0 {
		c.fail(ErrEmptyCart)
		c.unlockAndEmit()
		return ErrEmptyCart
	}

	attempt := c.newID()
	req := OrderRequest{
		Amount:   totalMinor(lines),
		Currency: c.opts.Currency,
		Customer: details,
	}
	c.charged[attempt] = lines
	c.state.AttemptID = attempt
	c.state.Order = nil
	c.state.Error = ""
	c.lastErr = nil
	c.setStep(StepRequestingOrder)
	c.unlockAndEmit()

	tok, err := c.backend.CreateOrder(ctx, attempt, req)

	c.mu.Lock()
	if err != nil {
		delete(c.charged, attempt)
		err = Err(ErrNetwork, err, "create order")
		c.fail(err)
		c.unlockAndEmit()
		return err
	}
	c.state.Order = &tok
	c.setStep(StepAwaitingPayment)
	c.armTimeout(attempt)
	opts := c.gatewayOptions(tok, details)
	c.unlockAndEmit()

	// the completion callback may outlive the caller's context
	cbCtx := context.WithoutCancel(ctx)
	if err := c.gateway.Open(ctx, opts, func(r PaymentResult) { c.complete(cbCtx, attempt, r) }); err != nil {
		err = Err(ErrGateway, err, "open gateway")
		c.mu.Lock()
		delete(c.charged, attempt)
		if c.state.AttemptID == attempt && c.state.Step == StepAwaitingPayment {
			c.stopTimeout()
			c.fail(err)
		}
		c.unlockAndEmit()
		return err
	}
	return nil
}

// Cancel abandons the attempt waiting on the widget, e.g. when the customer
// dismisses it, and returns to the form.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	if c.state.Step != StepAwaitingPayment {
		c.mu.Unlock()
		return ErrIllegalTransition
	}
	c.stopTimeout()
	log.WithField("attempt", c.state.AttemptID).Info("checkout attempt cancelled")
	c.state.AttemptID = ""
	c.state.Order = nil
	c.state.Error = ""
	c.setStep(StepCollectingDetails)
	c.unlockAndEmit()
	return nil
}

// RetryVerification resends a confirmation whose verification failed.
func (c *Coordinator) RetryVerification(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Step.Busy() {
		c.mu.Unlock()
		return ErrCheckoutInProgress
	}
	if c.state.Unreconciled == nil {
		c.mu.Unlock()
		return ErrIllegalTransition
	}
	conf := *c.state.Unreconciled
	attempt := c.state.AttemptID
	c.state.Error = ""
	c.setStep(StepVerifyingPayment)
	c.unlockAndEmit()

	return c.verify(ctx, attempt, conf)
}

func (c *Coordinator) complete(ctx context.Context, attempt string, r PaymentResult) {
	c.mu.Lock()
	if c.state.AttemptID != attempt || c.state.Step != StepAwaitingPayment {
		c.stale(attempt, r)
		c.unlockAndEmit()
		return
	}
	c.stopTimeout()
	if r.Err != nil {
		c.fail(Err(ErrGateway, r.Err, ""))
		c.unlockAndEmit()
		return
	}
	c.setStep(StepVerifyingPayment)
	c.unlockAndEmit()

	_ = c.verify(ctx, attempt, r.Confirmation)
}

// stale handles a completion for an attempt that is no longer awaited. A
// successful payment still has to be verified, so it is kept as unreconciled.
func (c *Coordinator) stale(attempt string, r PaymentResult) {
	entry := log.WithFields(log.Fields{"attempt": attempt, "current": c.state.AttemptID, "step": c.state.Step})
	if r.Err != nil {
		entry.WithError(r.Err).Info("ignoring gateway failure for stale attempt")
		return
	}
	if c.state.Step.Busy() {
		entry.WithFields(log.Fields{
			"order":   r.Confirmation.OrderID,
			"payment": r.Confirmation.PaymentID,
		}).Error("payment completed for stale attempt while another is in flight")
		return
	}
	entry.WithField("order", r.Confirmation.OrderID).Warn("payment completed for stale attempt, verification pending")
	conf := r.Confirmation
	c.state.Unreconciled = &conf
	c.state.AttemptID = attempt
	c.state.Open = true
	c.fail(ErrUnreconciledPayment)
}

func (c *Coordinator) verify(ctx context.Context, attempt string, conf PaymentConfirmation) error {
	err := c.backend.VerifyPayment(ctx, conf)

	c.mu.Lock()
	if err != nil {
		err = Err(ErrPaymentRejected, err, "verify payment %s", conf.PaymentID)
		if errors.Is(err, ErrVerificationDeclined) {
			// nothing left to reconcile, a fresh checkout may start
			c.state.Unreconciled = nil
			delete(c.charged, attempt)
			log.WithFields(log.Fields{"attempt": attempt, "payment": conf.PaymentID}).Warn("payment confirmation declined")
		} else {
			c.state.Unreconciled = &conf
		}
		c.fail(err)
		c.unlockAndEmit()
		return err
	}
	// lines added after the order was created were not paid for and stay
	c.cart.RemoveLines(c.charged[attempt])
	delete(c.charged, attempt)
	c.state = State{
		Step:        StepCompleted,
		LastOrderID: conf.OrderID,
	}
	c.lastErr = nil
	log.WithFields(log.Fields{"attempt": attempt, "order": conf.OrderID}).Info("checkout completed")
	c.unlockAndEmit()
	return nil
}

func totalMinor(lines []cart.Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.SubtotalMinor()
	}
	return total
}

func (c *Coordinator) armTimeout(attempt string) {
	if c.opts.PaymentTimeout <= 0 {
		return
	}
	c.timer = time.AfterFunc(c.opts.PaymentTimeout, func() { c.expire(attempt) })
}

func (c *Coordinator) stopTimeout() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) expire(attempt string) {
	c.mu.Lock()
	if c.state.AttemptID != attempt || c.state.Step != StepAwaitingPayment {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.fail(ErrPaymentTimeout)
	c.unlockAndEmit()
}

func (c *Coordinator) gatewayOptions(tok OrderToken, d CustomerDetails) GatewayOptions {
	currency := tok.Currency
	if currency == "" {
		currency = c.opts.Currency
	}
	return GatewayOptions{
		Key:         tok.KeyID,
		Amount:      tok.Amount,
		Currency:    currency,
		OrderID:     tok.OrderID,
		Name:        c.opts.StoreName,
		Description: c.opts.Description,
		Prefill:     Prefill{Name: d.Name, Email: d.Email, Contact: d.Phone},
		Theme:       Theme{Color: c.opts.ThemeColor},
	}
}

// fail must be called with c.mu held.
func (c *Coordinator) fail(err error) {
	c.lastErr = err
	c.state.Error = UserMessage(err)
	log.WithError(err).WithField("attempt", c.state.AttemptID).Warn("checkout failed")
	c.setStep(StepFailed)
}

// setStep must be called with c.mu held.
func (c *Coordinator) setStep(s Step) {
	if c.state.Step != s {
		log.WithFields(log.Fields{"attempt": c.state.AttemptID, "from": c.state.Step, "to": s}).Debug("checkout step")
	}
	c.state.Step = s
}

func (c *Coordinator) snapshot() State {
	s := c.state
	if s.Order != nil {
		o := *s.Order
		s.Order = &o
	}
	if s.Unreconciled != nil {
		u := *s.Unreconciled
		s.Unreconciled = &u
	}
	return s
}

// unlockAndEmit releases c.mu and notifies the observer.
func (c *Coordinator) unlockAndEmit() {
	snap := c.snapshot()
	obs := c.observer
	c.mu.Unlock()
	if obs != nil {
		obs(snap)
	}
}
