package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// IntegrationsHandler holds the calendar integration endpoints
type IntegrationsHandler struct{}

// NewIntegrationsHandler creates a new integrations handler
func NewIntegrationsHandler() *IntegrationsHandler {
	return &IntegrationsHandler{}
}

// GoogleOAuth handles POST /integrations/google/oauth
func (h *IntegrationsHandler) GoogleOAuth(c *fiber.Ctx) error {
	log.Printf("🔗 [INTEGRATIONS] Google OAuth requested by %s", authUserID(c))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Google OAuth integration is not implemented",
	})
}

// GoogleSync handles POST /integrations/google/sync
func (h *IntegrationsHandler) GoogleSync(c *fiber.Ctx) error {
	log.Printf("🔗 [INTEGRATIONS] Google Calendar sync requested by %s", authUserID(c))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Google Calendar sync is not implemented",
	})
}
