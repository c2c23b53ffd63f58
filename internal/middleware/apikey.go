package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/balance-api/balance_api/internal/config"
)

const apiKeyHeader = "X-API-Key"

// APIKey authenticates every request by the X-API-Key header. The expected
// key is configured either as a bcrypt hash (API_KEY_HASH) or, for dev
// setups, as a plain value compared in constant time.
func APIKey(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(apiKeyHeader)
		if key == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing API key")
		}

		if cfg.APIKeyHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(cfg.APIKeyHash), []byte(key)); err != nil {
				return fiber.NewError(http.StatusUnauthorized, "invalid API key")
			}
			return c.Next()
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) != 1 {
			return fiber.NewError(http.StatusUnauthorized, "invalid API key")
		}
		return c.Next()
	}
}
