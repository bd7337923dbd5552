// Package storefront is the customer side of the shop: a client for the
// backend API and a terminal stand-in for the hosted payment widget.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/wichananm65/earthly-storefront/internal/checkout"
	"github.com/wichananm65/earthly-storefront/internal/order"
	"github.com/wichananm65/earthly-storefront/internal/product"
)

var (
	ErrUnavailable = errors.New("backend unavailable")
	ErrStatus      = errors.New("unexpected backend status")
	ErrRejected    = errors.New("payment rejected by backend")

	errServer = errors.New("backend server error")
)

type response struct {
	code int
	body []byte
}

// Client talks to the storefront API. It satisfies checkout.Backend.
type Client struct {
	baseURL string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[response]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	st := gobreaker.Settings{
		Name:    "storefront-backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker[response](st),
	}
}

func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	res, err := c.do(ctx, fiber.MethodGet, "/api/products", nil, nil)
	if err != nil {
		return nil, err
	}
	if res.code != fiber.StatusOK {
		return nil, statusError(res)
	}
	var products []product.Product
	if err := json.Unmarshal(res.body, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (product.Product, error) {
	res, err := c.do(ctx, fiber.MethodGet, "/api/products/"+id, nil, nil)
	if err != nil {
		return product.Product{}, err
	}
	switch res.code {
	case fiber.StatusOK:
	case fiber.StatusNotFound:
		return product.Product{}, product.ErrNotFound
	default:
		return product.Product{}, statusError(res)
	}
	var p product.Product
	if err := json.Unmarshal(res.body, &p); err != nil {
		return product.Product{}, fmt.Errorf("decode product: %w", err)
	}
	return p, nil
}

// CreateOrder asks the backend to open a payment order. The key makes a
// repeated request for the same attempt return the first order.
func (c *Client) CreateOrder(ctx context.Context, key string, req checkout.OrderRequest) (checkout.OrderToken, error) {
	body := order.CreateRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Customer: order.CustomerDetails{
			Name:    req.Customer.Name,
			Email:   req.Customer.Email,
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
		},
	}
	var headers map[string]string
	if key != "" {
		headers = map[string]string{order.IdempotencyHeader: key}
	}
	res, err := c.do(ctx, fiber.MethodPost, "/api/create-order", body, headers)
	if err != nil {
		return checkout.OrderToken{}, err
	}
	if res.code != fiber.StatusOK {
		return checkout.OrderToken{}, statusError(res)
	}
	var tok order.Token
	if err := json.Unmarshal(res.body, &tok); err != nil {
		return checkout.OrderToken{}, fmt.Errorf("decode order: %w", err)
	}
	if tok.OrderID == "" {
		return checkout.OrderToken{}, fmt.Errorf("%w: order response without order_id", ErrStatus)
	}
	return checkout.OrderToken{
		OrderID:  tok.OrderID,
		KeyID:    tok.KeyID,
		Amount:   tok.Amount,
		Currency: tok.Currency,
	}, nil
}

type verifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// VerifyPayment forwards the gateway confirmation. Anything but a 2xx with
// status "success" is a rejection; below 500 it is final and also matches
// checkout.ErrVerificationDeclined.
func (c *Client) VerifyPayment(ctx context.Context, conf checkout.PaymentConfirmation) error {
	body := order.Verification{
		OrderID:   conf.OrderID,
		PaymentID: conf.PaymentID,
		Signature: conf.Signature,
	}
	res, err := c.do(ctx, fiber.MethodPost, "/api/verify-payment", body, nil)
	if err != nil {
		return err
	}
	var out verifyResponse
	_ = json.Unmarshal(res.body, &out)
	if res.code >= 200 && res.code <= 299 && out.Status == "success" {
		return nil
	}
	err = fmt.Errorf("%w: status %d: %s", ErrRejected, res.code, out.Message)
	if res.code < 500 {
		return errors.Join(err, checkout.ErrVerificationDeclined)
	}
	return err
}

// do runs one request through the breaker. Transport errors and 5xx responses
// count against the breaker; the 5xx response is still returned to the caller.
func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string) (response, error) {
	if err := ctx.Err(); err != nil {
		return response{}, err
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout <= 0 || left < timeout {
			timeout = left
		}
	}

	res, err := c.breaker.Execute(func() (response, error) {
		a := newAgent(method, c.baseURL+path)
		a.JSONEncoder(json.Marshal)
		a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
		for k, v := range headers {
			a.Set(k, v)
		}
		if body != nil {
			a.JSON(body)
		}
		if timeout > 0 {
			a.Timeout(timeout)
		}
		if err := a.Parse(); err != nil {
			return response{}, err
		}
		code, b, errs := a.Bytes()
		if len(errs) > 0 {
			return response{}, errors.Join(errs...)
		}
		r := response{code: code, body: b}
		if code >= 500 {
			return r, errServer
		}
		return r, nil
	})
	switch {
	case errors.Is(err, errServer):
		return res, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return response{}, errors.Join(ErrUnavailable, err)
	case err != nil:
		log.WithError(err).WithFields(log.Fields{"method": method, "path": path}).Warn("backend request failed")
		return response{}, errors.Join(ErrUnavailable, err)
	}
	return res, nil
}

func newAgent(method, url string) *fiber.Agent {
	if method == fiber.MethodPost {
		return fiber.Post(url)
	}
	return fiber.Get(url)
}

func statusError(res response) error {
	var detail struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(res.body, &detail)
	msg := detail.Detail
	if msg == "" {
		msg = detail.Message
	}
	return fmt.Errorf("%w %d: %s", ErrStatus, res.code, msg)
}
