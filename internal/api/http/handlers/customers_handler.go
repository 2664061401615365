package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repairdesk/internal/api/dto"
	"github.com/spec-kit/repairdesk/internal/service"
)

// CustomersHandler exposes auth endpoints for customers.
type CustomersHandler struct {
	auth *service.AuthService
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(authService *service.AuthService) *CustomersHandler {
	return &CustomersHandler{auth: authService}
}

// Register handles POST /auth/customers/register.
func (h *CustomersHandler) Register(c *fiber.Ctx) error {
	var req dto.CustomerRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, token, exp, err := h.auth.RegisterCustomer(c.UserContext(), service.RegisterCustomerInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"customer": customerResponse(user),
			"auth":     dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Login handles POST /auth/customers/login.
func (h *CustomersHandler) Login(c *fiber.Ctx) error {
	var req dto.CustomerLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, token, exp, err := h.auth.LoginCustomer(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"customer": customerResponse(user),
			"auth":     dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}
