package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wichananm65/earthly-storefront/internal/idempotency"
	"github.com/wichananm65/earthly-storefront/internal/payment"
)

const (
	DefaultCurrency = "INR"

	// reserveTTL bounds how long a key stays reserved if the process dies
	// between reserving it and storing the token.
	reserveTTL = 2 * time.Minute
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrMissingCustomer = errors.New("customer details incomplete")
	ErrKeyInFlight     = errors.New("an order for this idempotency key is being created")

	pendingPrefix = []byte("pending:")
)

// Service provides business logic for payment orders.
type Service struct {
	repo     Repository
	provider payment.Provider
	keys     idempotency.Store
	keyTTL   time.Duration
	now      func() time.Time
}

func NewService(r Repository, p payment.Provider, keys idempotency.Store, keyTTL time.Duration) *Service {
	if keys == nil {
		keys = idempotency.NewMemoryStore()
	}
	return &Service{repo: r, provider: p, keys: keys, keyTTL: keyTTL, now: time.Now}
}

// Create opens a provider order and records it as created. When key is not
// empty, a repeated call with the same key returns the first token instead of
// creating a second order.
func (s *Service) Create(ctx context.Context, key string, req CreateRequest) (Token, error) {
	if req.Amount <= 0 {
		return Token{}, ErrInvalidAmount
	}
	if f := req.Customer.Missing(); f != "" {
		return Token{}, fmt.Errorf("%w: %s is required", ErrMissingCustomer, f)
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}

	id := uuid.NewString()
	if key != "" {
		reserved, tok, err := s.reserve(ctx, key, id)
		if err != nil {
			return Token{}, err
		}
		if !reserved {
			log.WithFields(log.Fields{"key": key, "order": tok.OrderID}).Info("replaying order for idempotency key")
			return tok, nil
		}
	}

	tok, err := s.create(ctx, id, req)
	if key == "" {
		return tok, err
	}
	if err != nil {
		if derr := s.keys.Delete(ctx, key); derr != nil {
			log.WithError(derr).Warn("could not release idempotency key")
		}
		return Token{}, err
	}
	if raw, merr := json.Marshal(tok); merr == nil {
		if perr := s.keys.Put(ctx, key, raw, s.keyTTL); perr != nil {
			log.WithError(perr).Warn("could not store idempotency key")
		}
	}
	return tok, nil
}

// reserve claims key for this request. When another request already holds it,
// the stored token is returned, or ErrKeyInFlight while that request is still
// creating its order. A store outage leaves the key unguarded.
func (s *Service) reserve(ctx context.Context, key, id string) (bool, Token, error) {
	marker := append(append([]byte{}, pendingPrefix...), id...)
	ttl := reserveTTL
	if s.keyTTL > 0 && s.keyTTL < ttl {
		ttl = s.keyTTL
	}
	stored, err := s.keys.PutIfAbsent(ctx, key, marker, ttl)
	if err != nil {
		log.WithError(err).Warn("idempotency store unavailable, creating order anyway")
		return true, Token{}, nil
	}
	if bytes.Equal(stored, marker) {
		return true, Token{}, nil
	}
	if bytes.HasPrefix(stored, pendingPrefix) {
		return false, Token{}, ErrKeyInFlight
	}
	var tok Token
	if err := json.Unmarshal(stored, &tok); err != nil {
		return false, Token{}, fmt.Errorf("decode stored token: %w", err)
	}
	return false, tok, nil
}

func (s *Service) create(ctx context.Context, id string, req CreateRequest) (Token, error) {
	pOrder, err := s.provider.CreateOrder(ctx, payment.OrderRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  id,
		Notes:    map[string]string{"email": req.Customer.Email},
	})
	if err != nil {
		return Token{}, err
	}

	now := s.now().UTC()
	if _, err := s.repo.Create(Order{
		ID:             id,
		GatewayOrderID: pOrder.ID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Customer:       req.Customer,
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		return Token{}, err
	}

	tok := Token{OrderID: pOrder.ID, Amount: req.Amount, Currency: req.Currency, KeyID: s.provider.KeyID()}
	if pOrder.Amount > 0 {
		tok.Amount = pOrder.Amount
	}
	if pOrder.Currency != "" {
		tok.Currency = pOrder.Currency
	}
	log.WithFields(log.Fields{"order": tok.OrderID, "amount": tok.Amount}).Info("order created")
	return tok, nil
}

// Verify checks the confirmation signature and marks the order paid.
func (s *Service) Verify(v Verification) (Order, error) {
	if _, err := s.repo.GetByGatewayOrderID(v.OrderID); err != nil {
		return Order{}, err
	}
	if err := s.provider.VerifySignature(v.OrderID, v.PaymentID, v.Signature); err != nil {
		log.WithField("order", v.OrderID).Warn("payment signature mismatch")
		return Order{}, err
	}
	ord, err := s.repo.MarkPaid(v.OrderID, v.PaymentID, s.now().UTC())
	if err != nil {
		return Order{}, err
	}
	log.WithFields(log.Fields{"order": v.OrderID, "payment": v.PaymentID}).Info("payment verified")
	return ord, nil
}

func (s *Service) List() ([]Order, error) {
	return s.repo.List()
}
