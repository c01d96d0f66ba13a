package middleware

import (
	"log"
	"time"

	"listai/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limit per IP across the API
	GlobalAPIMax int
	// Limit per user (or IP) on endpoints that call the model
	LLMMax int
	// New chat WebSocket connections per IP
	WebSocketMax int
	Expiration   time.Duration
}

// NewRateLimitConfig derives limits from the service config. Development
// mode relaxes the global limit.
func NewRateLimitConfig(cfg *config.Config) *RateLimitConfig {
	rl := &RateLimitConfig{
		GlobalAPIMax: cfg.RateLimitGlobalAPI,
		LLMMax:       cfg.RateLimitLLM,
		WebSocketMax: cfg.RateLimitWebSocket,
		Expiration:   cfg.RateLimitWindow,
	}
	if rl.Expiration <= 0 {
		rl.Expiration = time.Minute
	}
	if cfg.Environment == "development" {
		rl.GlobalAPIMax = 1000
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}
	return rl
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
func GlobalAPIRateLimiter(rl *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        rl.GlobalAPIMax,
		Expiration: rl.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(rl.Expiration.Seconds()),
			})
		},
	})
}

// LLMRateLimiter limits plan generation and chat, keyed by user when known
func LLMRateLimiter(rl *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        rl.LLMMax,
		Expiration: rl.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
				return "llm:" + userID
			}
			return "llm-ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] LLM limit reached for: %v on %s", c.Locals("user_id"), c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"error":       "AI request limit reached. Please wait before trying again.",
				"retry_after": int(rl.Expiration.Seconds()),
			})
		},
	})
}

// WebSocketRateLimiter limits new chat WebSocket connections per IP
func WebSocketRateLimiter(rl *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        rl.WebSocketMax,
		Expiration: rl.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "ws:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] WebSocket connection limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many connection attempts. Please wait before reconnecting.",
			})
		},
	})
}
