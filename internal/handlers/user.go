package handlers

import (
	"listai/internal/models"
	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler serves the caller's profile and settings
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me handles GET /user/me
func (h *UserHandler) Me(c *fiber.Ctx) error {
	profile, err := h.users.Me(c.UserContext(), authUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, profile)
}

// UpdateSettings handles PUT /user/settings
func (h *UserHandler) UpdateSettings(c *fiber.Ctx) error {
	var patch models.UserSettings
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}

	settings, err := h.users.UpdateSettings(c.UserContext(), authUserID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, settings)
}
