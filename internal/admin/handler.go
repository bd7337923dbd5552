// Package admin guards the operator-only endpoints (order listing) with a
// bcrypt-checked password and HS256 JWTs.
package admin

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 12 * time.Hour

var ErrInvalidCredentials = errors.New("invalid credentials")

type Handler struct {
	passwordHash []byte
	secret       []byte
	now          func() time.Time
}

func NewHandler(passwordHash, secret string) *Handler {
	return &Handler{passwordHash: []byte(passwordHash), secret: []byte(secret), now: time.Now}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/admin/login", h.login)
}

// Middleware rejects requests without a valid admin token.
func (h *Handler) Middleware() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: h.secret,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			if !IsAdmin(c) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "forbidden"})
			}
			return c.Next()
		},
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	if err := h.authenticate(payload.Password); err != nil {
		log.WithField("ip", c.IP()).Warn("admin login rejected")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid password"})
	}

	signed, err := h.issue()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}
	return c.JSON(fiber.Map{"message": "Login successful", "token": signed})
}

func (h *Handler) authenticate(password string) error {
	if len(h.passwordHash) == 0 || password == "" {
		return ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(h.passwordHash, []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (h *Handler) issue() (string, error) {
	claims := jwt.MapClaims{
		"role": "admin",
		"exp":  h.now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

// IsAdmin reports whether the request carries a token with the admin role.
func IsAdmin(c *fiber.Ctx) bool {
	tok, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	role, _ := claims["role"].(string)
	return role == "admin"
}
