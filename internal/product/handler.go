package product

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/products", h.getProducts)
	app.Get("/api/products/:id", h.getProduct)

	// dev-only, enabled when ALLOW_RESET_PRODUCTS=1
	app.Post("/dev/reset-products", h.resetProducts)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	products, err := h.service.List()
	if err != nil {
		log.WithError(err).Error("list products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": err.Error()})
	}
	return c.JSON(products)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	p, err := h.service.GetByID(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": err.Error()})
	}
	return c.JSON(p)
}

// resetProducts replaces the catalogue with the posted list, or with the sample
// catalogue when the body is not a product list.
func (h *Handler) resetProducts(c *fiber.Ctx) error {
	if os.Getenv("ALLOW_RESET_PRODUCTS") != "1" {
		return c.Status(fiber.StatusForbidden).SendString("reset not allowed")
	}

	var products []Product
	if err := c.BodyParser(&products); err != nil {
		products = SampleProducts()
	}
	if ves := validateProducts(products); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}

	if err := h.service.ResetProducts(products); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}
	return c.JSON(products)
}

func validateProducts(products []Product) map[string]string {
	errs := map[string]string{}
	seen := map[string]bool{}
	for _, p := range products {
		switch {
		case p.ID == "":
			errs["id"] = "id is required"
		case seen[p.ID]:
			errs[p.ID] = "duplicate id"
		case p.Name == "":
			errs[p.ID] = "name is required"
		case p.Price.IsNegative():
			errs[p.ID] = "price must be >= 0"
		}
		seen[p.ID] = true
	}
	return errs
}
