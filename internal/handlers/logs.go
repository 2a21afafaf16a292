package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/apperr"
)

// LogsHandler records errors reported by the mini-app.
type LogsHandler struct {
	log logrus.FieldLogger
}

// NewLogsHandler constructs LogsHandler.
func NewLogsHandler(log logrus.FieldLogger) *LogsHandler {
	return &LogsHandler{log: log.WithField("component", "client")}
}

type clientLogRequest struct {
	Endpoint  string `json:"endpoint"`
	Method    string `json:"method"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	User      any    `json:"user"`
}

const maxClientErrorLen = 2048

// Record writes a client-side error into the server log.
func (h *LogsHandler) Record(c *fiber.Ctx) error {
	var req clientLogRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	msg := req.Error
	if len(msg) > maxClientErrorLen {
		msg = msg[:maxClientErrorLen]
	}

	h.log.WithFields(logrus.Fields{
		"endpoint":  req.Endpoint,
		"method":    req.Method,
		"timestamp": req.Timestamp,
		"user":      req.User,
	}).Error(msg)

	return c.JSON(fiber.Map{"success": true})
}

// Health reports liveness.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
