package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/apperr"
)

// WebhookSecretHeader carries the secret Telegram was given in setWebhook.
const WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookSecret rejects webhook calls whose secret header does not match. An empty secret
// disables the check.
func WebhookSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		got := c.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return apperr.Forbidden("Forbidden")
		}

		return c.Next()
	}
}
