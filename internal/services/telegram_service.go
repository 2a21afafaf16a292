package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
)

const (
	callbackOrderConfirmed = "Заказ подтвержден!"
	callbackOrderCancelled = "Заказ отменен!"
	callbackOrderHandled   = "Заказ уже обработан"
	callbackOrderNotFound  = "Заказ не найден"
	callbackEnterReply     = "Введите ваше сообщение"
)

var errChatMissing = errors.New("telegram: chat id missing")

// TelegramService composes storefront notifications and delivers them best-effort.
// Failures are logged and counted; callers decide whether they matter.
type TelegramService struct {
	gateway     Gateway
	adminChatID int64
	log         logrus.FieldLogger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(gateway Gateway, adminChatID int64, log logrus.FieldLogger) *TelegramService {
	return &TelegramService{
		gateway:     gateway,
		adminChatID: adminChatID,
		log:         log.WithField("component", "telegram"),
	}
}

// Send delivers text to chatID, optionally with an inline keyboard.
func (s *TelegramService) Send(ctx context.Context, chatID int64, text string, keyboard [][]InlineButton) error {
	return s.send(ctx, "message", OutgoingMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
}

func (s *TelegramService) send(ctx context.Context, kind string, msg OutgoingMessage) error {
	if msg.ChatID == 0 {
		s.log.WithField("kind", kind).Warn("chat id not configured, message dropped")
		metrics.RecordNotification(kind, errChatMissing)
		return errChatMissing
	}

	err := s.gateway.SendMessage(ctx, msg)
	metrics.RecordNotification(kind, err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"kind": kind, "chat_id": msg.ChatID}).Error("failed to send message")
		return err
	}
	return nil
}

// Acknowledge answers a callback query so the client stops its spinner.
func (s *TelegramService) Acknowledge(ctx context.Context, callbackID, text string) error {
	err := s.gateway.AnswerCallback(ctx, callbackID, text)
	metrics.RecordNotification("callback_answer", err)
	if err != nil {
		s.log.WithError(err).WithField("callback_id", callbackID).Error("failed to answer callback")
	}
	return err
}

// FormatPrice formats an amount with thousand separators and the ruble suffix.
func FormatPrice(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	str := amount.Truncate(0).String()
	var result strings.Builder
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	if frac := amount.Sub(amount.Truncate(0)); !frac.IsZero() {
		result.WriteString(strings.TrimPrefix(frac.StringFixed(2), "0"))
	}

	return sign + result.String() + " руб."
}

// OrderKeyboard is the admin's action row for an order.
func OrderKeyboard(orderID string) [][]InlineButton {
	return [][]InlineButton{
		{
			{Text: "✅ Подтвердить", Data: ActionConfirmOrder + orderID},
			{Text: "❌ Отменить", Data: ActionCancelOrder + orderID},
		},
		{
			{Text: "💬 Ответить", Data: ActionReplyOrder + orderID},
		},
	}
}

// NotifyNewOrder sends the new order to the admin chat together with its action buttons.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order models.Order) error {
	var itemsList strings.Builder
	for i, item := range order.Items {
		itemsList.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.Name),
			item.Quantity,
			FormatPrice(item.Price),
			FormatPrice(item.LineTotal()),
		))
	}

	customer := html.EscapeString(order.CustomerName())
	if order.Username != "" {
		customer += " (@" + html.EscapeString(order.Username) + ")"
	}

	message := fmt.Sprintf(`<b>🔔 Новый заказ!</b>
<b>📋 Заказ:</b> #%s
<b>👤 Клиент:</b> %s
<b>🆔 ID пользователя:</b> %d
<b>📦 Товары:</b>
%s
<b>💰 Сумма:</b> %s
<b>🚚 Доставка:</b> %s, %s, %s
<b>📅 Дата:</b> %s
━━━━━━━━━━━━━━━━━━`,
		order.Ref(),
		customer,
		order.TelegramUserID,
		itemsList.String(),
		FormatPrice(order.Total),
		html.EscapeString(order.Delivery.Name),
		html.EscapeString(order.Delivery.Phone),
		html.EscapeString(order.Delivery.Address),
		order.CreatedAt.Format("02.01.2006 15:04"),
	)

	return s.send(ctx, "new_order", OutgoingMessage{
		ChatID:   s.adminChatID,
		Text:     strings.TrimSpace(message),
		HTML:     true,
		Keyboard: OrderKeyboard(order.Ref()),
	})
}

// NotifyOrderConfirmed tells the customer their order was accepted.
func (s *TelegramService) NotifyOrderConfirmed(ctx context.Context, order models.Order) error {
	text := fmt.Sprintf("✅ Ваш заказ #%s подтвержден!\n\nОжидайте звонка для уточнения деталей доставки.", order.Ref())
	return s.send(ctx, "order_confirmed", OutgoingMessage{ChatID: order.TelegramUserID, Text: text})
}

// NotifyOrderCancelled tells the customer their order was cancelled.
func (s *TelegramService) NotifyOrderCancelled(ctx context.Context, order models.Order) error {
	text := fmt.Sprintf("❌ Ваш заказ #%s отменен.\n\nЕсли это произошло по ошибке, свяжитесь с нами.", order.Ref())
	return s.send(ctx, "order_cancelled", OutgoingMessage{ChatID: order.TelegramUserID, Text: text})
}

// NotifyStatus dispatches the customer notification matching status.
func (s *TelegramService) NotifyStatus(ctx context.Context, order models.Order) error {
	switch order.Status {
	case models.OrderStatusConfirmed:
		return s.NotifyOrderConfirmed(ctx, order)
	case models.OrderStatusCancelled:
		return s.NotifyOrderCancelled(ctx, order)
	}
	return nil
}

// PromptReply asks the admin to type the message for orderID.
func (s *TelegramService) PromptReply(ctx context.Context, adminChatID int64, orderID string) error {
	text := fmt.Sprintf("📝 Введите ваше сообщение для заказчика по заказу #%s.\n\nВаше сообщение будет отправлено клиенту.", orderID)
	return s.send(ctx, "reply_prompt", OutgoingMessage{ChatID: adminChatID, Text: text})
}

// RelayReply forwards the admin's text to the customer.
func (s *TelegramService) RelayReply(ctx context.Context, customerChatID int64, orderID, text string) error {
	body := fmt.Sprintf("💬 Сообщение от администратора по заказу #%s:\n\n%s", orderID, text)
	return s.send(ctx, "reply_relay", OutgoingMessage{ChatID: customerChatID, Text: body})
}

// ConfirmReplySent reports the end of a reply conversation to the admin.
func (s *TelegramService) ConfirmReplySent(ctx context.Context, adminChatID int64, orderID string, delivered bool) error {
	text := fmt.Sprintf("✅ Сообщение отправлено клиенту по заказу #%s.\n\nКонтекст сброшен.", orderID)
	if !delivered {
		text = fmt.Sprintf("⚠️ Сообщение по заказу #%s сохранено, но не доставлено клиенту.\n\nКонтекст сброшен.", orderID)
	}
	return s.send(ctx, "reply_confirm", OutgoingMessage{ChatID: adminChatID, Text: text})
}

// NotifyReplyFailed tells the admin the reply could not be processed because the order is gone.
func (s *TelegramService) NotifyReplyFailed(ctx context.Context, adminChatID int64) error {
	return s.send(ctx, "reply_failed", OutgoingMessage{
		ChatID: adminChatID,
		Text:   "❌ Произошла ошибка. Заказ не найден. Контекст сброшен.",
	})
}

// NotifyReplyError tells the admin the reply was dropped after a storage failure.
func (s *TelegramService) NotifyReplyError(ctx context.Context, adminChatID int64) error {
	return s.send(ctx, "reply_error", OutgoingMessage{
		ChatID: adminChatID,
		Text:   "❌ Не удалось обработать сообщение. Контекст сброшен, попробуйте ещё раз.",
	})
}
