package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wichananm65/earthly-storefront/internal/idempotency"
	"github.com/wichananm65/earthly-storefront/internal/payment"
)

// gatedProvider blocks CreateOrder until release is closed.
type gatedProvider struct {
	*payment.Sandbox
	entered chan struct{}
	release chan struct{}
	fail    error
}

func (p *gatedProvider) CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error) {
	p.entered <- struct{}{}
	<-p.release
	if p.fail != nil {
		return payment.Order{}, p.fail
	}
	return p.Sandbox.CreateOrder(ctx, req)
}

func newGatedService() (*Service, *gatedProvider, *InMemoryRepository) {
	p := &gatedProvider{
		Sandbox: payment.NewSandbox("rzp_test_1234567890", testSecret),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	repo := NewInMemoryRepository()
	return NewService(repo, p, idempotency.NewMemoryStore(), time.Hour), p, repo
}

func validRequest() CreateRequest {
	return CreateRequest{Amount: 15900, Customer: CustomerDetails{
		Name: "Asha", Email: "asha@example.com", Phone: "9999999999", Address: "12 MG Road",
	}}
}

func TestCreate_ConcurrentSameKeyCreatesOneOrder(t *testing.T) {
	svc, p, repo := newGatedService()
	ctx := context.Background()

	type result struct {
		tok Token
		err error
	}
	first := make(chan result, 1)
	go func() {
		tok, err := svc.Create(ctx, "attempt-1", validRequest())
		first <- result{tok, err}
	}()
	<-p.entered

	if _, err := svc.Create(ctx, "attempt-1", validRequest()); !errors.Is(err, ErrKeyInFlight) {
		t.Fatalf("expected ErrKeyInFlight while the first request is running, got %v", err)
	}

	close(p.release)
	r := <-first
	if r.err != nil {
		t.Fatalf("first create: %v", r.err)
	}

	replay, err := svc.Create(ctx, "attempt-1", validRequest())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.OrderID != r.tok.OrderID {
		t.Fatalf("expected replayed order %q, got %q", r.tok.OrderID, replay.OrderID)
	}
	all, _ := repo.List()
	if len(all) != 1 {
		t.Fatalf("expected exactly one stored order, got %d", len(all))
	}
}

func TestCreate_ProviderFailureReleasesKey(t *testing.T) {
	svc, p, repo := newGatedService()
	ctx := context.Background()
	p.fail = errors.New("provider down")
	close(p.release)

	if _, err := svc.Create(ctx, "attempt-2", validRequest()); err == nil {
		t.Fatal("expected provider error")
	}
	<-p.entered
	p.fail = nil
	tok, err := svc.Create(ctx, "attempt-2", validRequest())
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if tok.OrderID == "" {
		t.Fatal("expected an order id")
	}
	all, _ := repo.List()
	if len(all) != 1 {
		t.Fatalf("expected one stored order, got %d", len(all))
	}
}
