package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultRazorpayBaseURL = "https://api.razorpay.com"

// RazorpayClient creates orders through the Razorpay orders API.
type RazorpayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	timeout   time.Duration
}

func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	if baseURL == "" {
		baseURL = DefaultRazorpayBaseURL
	}
	return &RazorpayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		timeout:   timeout,
	}
}

type razorpayOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt,omitempty"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) KeyID() string { return c.keyID }

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}

	a := fiber.Post(c.baseURL + "/v1/orders")
	a.JSONEncoder(json.Marshal)
	a.BasicAuth(c.keyID, c.keySecret)
	a.JSON(razorpayOrderRequest{
		Amount:         req.Amount,
		Currency:       req.Currency,
		Receipt:        req.Receipt,
		PaymentCapture: 1,
		Notes:          req.Notes,
	})
	if t := timeoutFor(ctx, c.timeout); t > 0 {
		a.Timeout(t)
	}
	if err := a.Parse(); err != nil {
		return Order{}, errors.Join(ErrProvider, err)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return Order{}, errors.Join(append([]error{ErrProvider}, errs...)...)
	}
	if code < 200 || code > 299 {
		var perr razorpayError
		_ = json.Unmarshal(body, &perr)
		log.WithFields(log.Fields{"status": code, "code": perr.Error.Code}).Warn("razorpay rejected order")
		return Order{}, errors.Join(ErrProvider, fmt.Errorf("status %d: %s", code, perr.Error.Description))
	}

	var out Order
	if err := json.Unmarshal(body, &out); err != nil {
		return Order{}, errors.Join(ErrProvider, err)
	}
	return out, nil
}

func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) error {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}
