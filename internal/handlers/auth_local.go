package handlers

import (
	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

// LocalAuthHandler handles local JWT authentication endpoints
type LocalAuthHandler struct {
	users *services.UserService
}

// NewLocalAuthHandler creates a new local auth handler
func NewLocalAuthHandler(users *services.UserService) *LocalAuthHandler {
	return &LocalAuthHandler{users: users}
}

// RefreshTokenRequest is the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Signup creates a new account
// POST /api/v1/auth/signup
func (h *LocalAuthHandler) Signup(c *fiber.Ctx) error {
	var in services.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.users.Signup(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, result)
}

// Login authenticates with email and password
// POST /api/v1/auth/login
func (h *LocalAuthHandler) Login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.users.Login(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, result)
}

// Refresh exchanges a refresh token for a new pair
// POST /api/v1/auth/refresh
func (h *LocalAuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refreshToken is required")
	}

	pair, err := h.users.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, pair)
}
