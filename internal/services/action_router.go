package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/store"
)

// Callback data prefixes carried by the admin's inline buttons.
const (
	ActionConfirmOrder = "confirm_order_"
	ActionCancelOrder  = "cancel_order_"
	ActionReplyOrder   = "reply_order_"
)

// CallbackEvent is an inline button press.
type CallbackEvent struct {
	ID     string
	FromID int64
	Data   string
}

// ActionRouter dispatches admin button presses.
type ActionRouter struct {
	adminID   string
	lifecycle *OrderLifecycle
	replies   *ReplyConversation
	notifier  *TelegramService
	log       logrus.FieldLogger
}

func NewActionRouter(adminID string, lifecycle *OrderLifecycle, replies *ReplyConversation, notifier *TelegramService, log logrus.FieldLogger) *ActionRouter {
	return &ActionRouter{
		adminID:   adminID,
		lifecycle: lifecycle,
		replies:   replies,
		notifier:  notifier,
		log:       log.WithField("component", "actions"),
	}
}

// IsAdmin reports whether id is the configured administrator.
func (r *ActionRouter) IsAdmin(id int64) bool {
	return r.adminID != "" && strconv.FormatInt(id, 10) == r.adminID
}

// Route handles ev. Presses from anyone but the administrator are Forbidden; unknown codes
// are ignored.
func (r *ActionRouter) Route(ctx context.Context, ev CallbackEvent) error {
	if !r.IsAdmin(ev.FromID) {
		r.log.WithField("from_id", ev.FromID).Warn("callback from non-admin rejected")
		return apperr.Forbidden("Forbidden")
	}

	switch {
	case strings.HasPrefix(ev.Data, ActionConfirmOrder):
		return r.transition(ctx, ev, strings.TrimPrefix(ev.Data, ActionConfirmOrder), r.lifecycle.Confirm, callbackOrderConfirmed)
	case strings.HasPrefix(ev.Data, ActionCancelOrder):
		return r.transition(ctx, ev, strings.TrimPrefix(ev.Data, ActionCancelOrder), r.lifecycle.Cancel, callbackOrderCancelled)
	case strings.HasPrefix(ev.Data, ActionReplyOrder):
		orderID := strings.TrimPrefix(ev.Data, ActionReplyOrder)
		if err := r.replies.BeginReply(ctx, ev.FromID, orderID); err != nil {
			return err
		}
		_ = r.notifier.Acknowledge(ctx, ev.ID, callbackEnterReply)
		return nil
	}

	r.log.WithField("data", ev.Data).Debug("unknown callback action ignored")
	return nil
}

func (r *ActionRouter) transition(
	ctx context.Context,
	ev CallbackEvent,
	orderID string,
	apply func(context.Context, string) (Transition, error),
	ack string,
) error {
	result, err := apply(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		_ = r.notifier.Acknowledge(ctx, ev.ID, callbackOrderNotFound)
		return nil
	}
	if err != nil {
		return err
	}

	if !result.Changed {
		_ = r.notifier.Acknowledge(ctx, ev.ID, callbackOrderHandled)
		return nil
	}

	_ = r.notifier.NotifyStatus(ctx, result.Order)
	_ = r.notifier.Acknowledge(ctx, ev.ID, ack)
	return nil
}
