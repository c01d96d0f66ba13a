package handlers

import (
	"log"

	"listai/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DefaultUserID acts for anonymous callers of the public endpoints
const DefaultUserID = "default-user-id"

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:            fiber.StatusNotFound,
	services.KindForbidden:           fiber.StatusForbidden,
	services.KindValidation:          fiber.StatusBadRequest,
	services.KindUpstreamUnavailable: fiber.StatusBadGateway,
	services.KindUpstreamTimeout:     fiber.StatusGatewayTimeout,
	services.KindGenerationFailed:    fiber.StatusBadGateway,
	services.KindStorage:             fiber.StatusInternalServerError,
	services.KindConflict:            fiber.StatusConflict,
	services.KindUnauthorized:        fiber.StatusUnauthorized,
}

// statusFor maps a domain error to its HTTP status
func statusFor(appErr *services.AppError) int {
	if appErr.Code == "REGION_UNAVAILABLE" {
		return fiber.StatusBadRequest
	}
	if status, ok := kindStatus[appErr.Kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// respondError writes {success:false, error, code?} for err
func respondError(c *fiber.Ctx, err error) error {
	appErr, ok := services.AsAppError(err)
	if !ok {
		log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Internal server error",
		})
	}

	status := statusFor(appErr)
	if status >= fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}

	body := fiber.Map{
		"success": false,
		"error":   appErr.Message,
	}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func respondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// authUserID returns the user set by the auth middleware
func authUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// actingUserID resolves the caller of a public endpoint: the authenticated
// user, else the first non-empty id from the body, else DefaultUserID.
func actingUserID(c *fiber.Ctx, bodyIDs ...string) string {
	if userID := authUserID(c); userID != "" {
		return userID
	}
	for _, id := range bodyIDs {
		if id != "" {
			return id
		}
	}
	return DefaultUserID
}
