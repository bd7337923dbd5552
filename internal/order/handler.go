package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/wichananm65/earthly-storefront/internal/payment"
)

const IdempotencyHeader = "Idempotency-Key"

// Handler exposes order creation and payment verification.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/create-order", h.createOrder)
	app.Post("/api/verify-payment", h.verifyPayment)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/orders", h.getOrders)
}

func (h *Handler) createOrder(c *fiber.Ctx) error {
	payload := new(CreateRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	tok, err := h.service.Create(c.UserContext(), c.Get(IdempotencyHeader), *payload)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrMissingCustomer):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, ErrKeyInFlight):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		default:
			log.WithError(err).Error("create order")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": err.Error()})
		}
	}
	return c.JSON(tok)
}

func (h *Handler) verifyPayment(c *fiber.Ctx) error {
	payload := new(Verification)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	if _, err := h.service.Verify(*payload); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "failure", "message": "order not found"})
		case errors.Is(err, payment.ErrInvalidSignature):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "failure", "message": "invalid payment signature"})
		case errors.Is(err, ErrAlreadyPaid):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": "failure", "message": err.Error()})
		default:
			log.WithError(err).Error("verify payment")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Payment verified successfully"})
}

func (h *Handler) getOrders(c *fiber.Ctx) error {
	orders, err := h.service.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(orders)
}
