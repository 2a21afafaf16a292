package handlers

import (
	"encoding/json"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/services"
)

// WebhookHandler receives Bot API updates.
type WebhookHandler struct {
	router  *services.ActionRouter
	replies *services.ReplyConversation
	log     logrus.FieldLogger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(router *services.ActionRouter, replies *services.ReplyConversation, log logrus.FieldLogger) *WebhookHandler {
	return &WebhookHandler{router: router, replies: replies, log: log.WithField("component", "webhook")}
}

func ok(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true})
}

func decodeUpdate(c *fiber.Ctx) (tgbotapi.Update, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		return update, apperr.BadRequest("Invalid request body")
	}
	return update, nil
}

func callbackEvent(q *tgbotapi.CallbackQuery) services.CallbackEvent {
	ev := services.CallbackEvent{ID: q.ID, Data: q.Data}
	if q.From != nil {
		ev.FromID = q.From.ID
	}
	return ev
}

// AdminActions handles a callback query forwarded on its own.
func (h *WebhookHandler) AdminActions(c *fiber.Ctx) error {
	update, err := decodeUpdate(c)
	if err != nil {
		return err
	}
	if update.CallbackQuery == nil {
		return apperr.BadRequest("Missing callback_query")
	}

	if err := h.router.Route(c.UserContext(), callbackEvent(update.CallbackQuery)); err != nil {
		return err
	}
	return ok(c)
}

// Messages handles an admin text message. Anything that is not an admin text is accepted silently.
func (h *WebhookHandler) Messages(c *fiber.Ctx) error {
	update, err := decodeUpdate(c)
	if err != nil {
		return err
	}

	if err := h.handleMessage(c, update.Message); err != nil {
		return err
	}
	return ok(c)
}

func (h *WebhookHandler) handleMessage(c *fiber.Ctx, msg *tgbotapi.Message) error {
	if msg == nil || msg.From == nil || msg.Text == "" {
		return nil
	}
	if !h.router.IsAdmin(msg.From.ID) {
		return nil
	}

	_, err := h.replies.HandleText(c.UserContext(), msg.From.ID, msg.Text)
	return err
}

// Telegram handles a raw update as delivered by setWebhook: callback queries and messages on
// one endpoint. Inapplicable updates, including presses from non-admins, are acknowledged.
func (h *WebhookHandler) Telegram(c *fiber.Ctx) error {
	update, err := decodeUpdate(c)
	if err != nil {
		return err
	}

	log := h.log.WithField("update_id", update.UpdateID)

	switch {
	case update.CallbackQuery != nil:
		err = h.router.Route(c.UserContext(), callbackEvent(update.CallbackQuery))
		if errors.Is(err, apperr.Forbidden("")) {
			log.Debug("ignoring callback from non-admin")
			err = nil
		}
	case update.Message != nil:
		err = h.handleMessage(c, update.Message)
	default:
		log.Debug("ignoring unsupported update")
	}

	if err != nil {
		return err
	}
	return ok(c)
}
