package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

// Transition is the outcome of a status change request.
type Transition struct {
	Order   models.Order
	From    models.OrderStatus
	To      models.OrderStatus
	Changed bool
}

// OrderLifecycle moves orders from pending to confirmed or cancelled.
type OrderLifecycle struct {
	orders store.Orders
	policy string
	log    logrus.FieldLogger
}

// NewOrderLifecycle builds a lifecycle over orders. policy is config.TerminalPolicyNoop or
// config.TerminalPolicyOverwrite.
func NewOrderLifecycle(orders store.Orders, policy string, log logrus.FieldLogger) *OrderLifecycle {
	if policy == "" {
		policy = config.TerminalPolicyNoop
	}
	return &OrderLifecycle{orders: orders, policy: policy, log: log.WithField("component", "order")}
}

func (l *OrderLifecycle) Confirm(ctx context.Context, orderID string) (Transition, error) {
	return l.Transition(ctx, orderID, models.OrderStatusConfirmed)
}

func (l *OrderLifecycle) Cancel(ctx context.Context, orderID string) (Transition, error) {
	return l.Transition(ctx, orderID, models.OrderStatusCancelled)
}

// Transition writes status to. Under the noop policy only pending orders change and a repeat
// reports Changed=false; under overwrite the last write wins. A missing order yields
// store.ErrNotFound.
func (l *OrderLifecycle) Transition(ctx context.Context, orderID string, to models.OrderStatus) (Transition, error) {
	if !to.Terminal() {
		return Transition{}, apperr.BadRequest(fmt.Sprintf("invalid target status %q", to))
	}

	order, err := l.orders.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return Transition{}, fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
	}
	if err != nil {
		return Transition{}, apperr.Upstream("failed to load order", err)
	}

	var from []models.OrderStatus
	if l.policy != config.TerminalPolicyOverwrite {
		from = []models.OrderStatus{models.OrderStatusPending}
	}

	changed, err := l.orders.UpdateOrderStatus(ctx, orderID, to, from...)
	if err != nil {
		return Transition{}, apperr.Upstream("failed to update order", err)
	}
	metrics.RecordTransition(string(to), changed)

	result := Transition{Order: *order, From: order.Status, To: to, Changed: changed}
	if changed {
		result.Order.Status = to
	}

	l.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"from":     result.From,
		"to":       to,
		"changed":  changed,
	}).Info("order transition")

	return result, nil
}
