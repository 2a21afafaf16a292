package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/utils"
)

const userContextKey = "currentTelegramUser"

// Init data headers, tried in order.
const (
	InitDataHeader       = "X-Telegram-Init-Data"
	LegacyInitDataHeader = "Telegram-Init-Data"
)

// InitDataMiddleware verifies the launch payload and loads the caller into context.
func InitDataMiddleware(validator *utils.InitDataValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(InitDataHeader)
		if raw == "" {
			raw = c.Get(LegacyInitDataHeader)
		}

		user, err := validator.Validate(raw)
		if err != nil {
			return initDataError(err)
		}

		c.Locals(userContextKey, user)
		return c.Next()
	}
}

func initDataError(err error) error {
	switch {
	case errors.Is(err, utils.ErrInitDataMissing):
		metrics.RecordInitDataRejection("missing")
		return apperr.AuthMissing("Unauthorized: No init data")
	case errors.Is(err, utils.ErrBotTokenMissing):
		metrics.RecordInitDataRejection("not_configured")
		return apperr.Wrap(apperr.KindInternal, "bot token is not configured", err)
	case errors.Is(err, utils.ErrInitDataExpired):
		metrics.RecordInitDataRejection("expired")
		return apperr.AuthInvalid("Unauthorized: Init data expired")
	case errors.Is(err, utils.ErrInvalidUserData):
		metrics.RecordInitDataRejection("invalid_user")
		return apperr.AuthInvalid("Unauthorized: Invalid user data")
	default:
		metrics.RecordInitDataRejection("invalid_hash")
		return apperr.AuthInvalid("Unauthorized: Invalid hash")
	}
}

// GetCurrentUser extracts the verified caller from context.
func GetCurrentUser(c *fiber.Ctx) (utils.TelegramUser, bool) {
	user, ok := c.Locals(userContextKey).(utils.TelegramUser)
	return user, ok
}

// RequireAdmin lets only the configured administrator through. It must run after
// InitDataMiddleware.
func RequireAdmin(adminID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := GetCurrentUser(c)
		if !ok {
			return apperr.AuthMissing("Unauthorized: No init data")
		}
		if adminID == "" || user.IDString() != adminID {
			return apperr.Forbidden("Forbidden: Not an admin")
		}
		return c.Next()
	}
}
