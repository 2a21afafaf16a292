package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

// ConversationStore is what a reply conversation reads and writes.
type ConversationStore interface {
	store.Orders
	store.ReplyContexts
	store.OrderMessages
}

// ReplyConversation turns "reply" button presses and the admin's next text message into
// a message relayed to the customer.
type ReplyConversation struct {
	store    ConversationStore
	notifier *TelegramService
	log      logrus.FieldLogger
}

func NewReplyConversation(s ConversationStore, notifier *TelegramService, log logrus.FieldLogger) *ReplyConversation {
	return &ReplyConversation{store: s, notifier: notifier, log: log.WithField("component", "reply")}
}

func adminKey(adminID int64) string {
	return strconv.FormatInt(adminID, 10)
}

// BeginReply records that adminID's next text answers orderID and prompts the admin.
// A newer press replaces any earlier context.
func (r *ReplyConversation) BeginReply(ctx context.Context, adminID int64, orderID string) error {
	err := r.store.UpsertReplyContext(ctx, models.ReplyContext{
		AdminID: adminKey(adminID),
		OrderID: orderID,
		State:   models.ReplyStateAwaitingReply,
	})
	if err != nil {
		return apperr.Upstream("failed to save reply context", err)
	}

	_ = r.notifier.PromptReply(ctx, adminID, orderID)
	return nil
}

// HandleText consumes a text message from adminID. It reports false when no reply is pending.
func (r *ReplyConversation) HandleText(ctx context.Context, adminID int64, text string) (bool, error) {
	key := adminKey(adminID)
	log := r.log.WithField("admin_id", key)

	rc, err := r.store.GetReplyContext(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return true, r.fail(ctx, adminID, log, "failed to load reply context", err)
	}
	if rc.State != models.ReplyStateAwaitingReply {
		return false, nil
	}
	log = log.WithField("order_id", rc.OrderID)

	order, err := r.store.GetOrder(ctx, rc.OrderID)
	if errors.Is(err, store.ErrNotFound) {
		if err := r.store.DeleteReplyContext(ctx, key); err != nil {
			log.WithError(err).Error("failed to clear reply context")
		}
		_ = r.notifier.NotifyReplyFailed(ctx, adminID)
		metrics.RecordReply("order_missing")
		log.Warn("reply context referenced a missing order")
		return true, nil
	}
	if err != nil {
		return true, r.fail(ctx, adminID, log, "failed to load order", err)
	}

	msg := &models.OrderMessage{OrderID: order.ID, SenderType: models.SenderAdmin, Message: text}
	if err := r.store.AppendOrderMessage(ctx, msg); err != nil {
		return true, r.fail(ctx, adminID, log, "failed to save order message", err)
	}

	delivered := r.notifier.RelayReply(ctx, order.TelegramUserID, order.Ref(), text) == nil

	if err := r.store.DeleteReplyContext(ctx, key); err != nil {
		return true, r.fail(ctx, adminID, log, "failed to clear reply context", err)
	}

	_ = r.notifier.ConfirmReplySent(ctx, adminID, order.Ref(), delivered)

	outcome := "delivered"
	if !delivered {
		outcome = "undelivered"
	}
	metrics.RecordReply(outcome)
	log.WithField("delivered", delivered).Info("admin reply relayed")

	return true, nil
}

func (r *ReplyConversation) fail(ctx context.Context, adminID int64, log logrus.FieldLogger, msg string, err error) error {
	log.WithError(err).Error(msg)
	if derr := r.store.DeleteReplyContext(ctx, adminKey(adminID)); derr != nil {
		log.WithError(derr).Error("failed to clear reply context")
	}
	_ = r.notifier.NotifyReplyError(ctx, adminID)
	metrics.RecordReply("error")
	return apperr.Upstream(msg, err)
}
