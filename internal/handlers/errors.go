package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/apperr"
)

// ErrorHandler renders handler errors as {"error": message}. apperr kinds pick the status,
// *fiber.Error passes through, anything else is a 500. Server errors are logged.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		var ae *apperr.Error
		switch {
		case errors.As(err, &ae):
			code = ae.Kind.HTTPStatus()
			if ae.Kind != apperr.KindInternal {
				message = ae.Message
			}
		case errors.As(err, &fe):
			code = fe.Code
			message = fe.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"status": code,
			}).Error("request failed")
		}

		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

// MethodNotAllowed answers verbs a route does not serve. OPTIONS gets 204 with the Allow list.
func MethodNotAllowed(allowed ...string) fiber.Handler {
	allow := strings.Join(append(allowed, fiber.MethodOptions), ", ")
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, allow)
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return apperr.MethodNotAllowed("Method " + c.Method() + " Not Allowed")
	}
}
