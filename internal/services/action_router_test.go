package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/models"
)

func TestRoute_RejectsNonAdmin(t *testing.T) {
	h := newNoopHarness(t)
	order := h.createOrder(t)

	err := h.router.Route(context.Background(), CallbackEvent{ID: "cb", FromID: 555, Data: ActionConfirmOrder + order.Ref()})
	assert.True(t, errors.Is(err, apperr.Forbidden("")))

	stored, _ := h.store.GetOrder(context.Background(), order.Ref())
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Empty(t, h.gateway.answered())
}

func TestRoute_ConfirmNotifiesCustomerAndAnswers(t *testing.T) {
	h := newNoopHarness(t)
	order := h.createOrder(t)

	err := h.router.Route(context.Background(), CallbackEvent{ID: "cb1", FromID: testAdminID, Data: ActionConfirmOrder + order.Ref()})
	require.NoError(t, err)

	sent := h.gateway.sentTo(testCustomerID)
	require.Len(t, sent, 1)
	assert.Equal(t, "✅ Ваш заказ #"+order.Ref()+" подтвержден!\n\nОжидайте звонка для уточнения деталей доставки.", sent[0].Text)
	assert.Equal(t, []answeredCallback{{ID: "cb1", Text: "Заказ подтвержден!"}}, h.gateway.answered())
}

func TestRoute_ConfirmThenCancel(t *testing.T) {
	t.Run("noop", func(t *testing.T) {
		h := newNoopHarness(t)
		order := h.createOrder(t)
		ctx := context.Background()

		require.NoError(t, h.router.Route(ctx, CallbackEvent{ID: "a", FromID: testAdminID, Data: ActionConfirmOrder + order.Ref()}))
		require.NoError(t, h.router.Route(ctx, CallbackEvent{ID: "b", FromID: testAdminID, Data: ActionCancelOrder + order.Ref()}))

		stored, _ := h.store.GetOrder(ctx, order.Ref())
		assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
		assert.Len(t, h.gateway.sentTo(testCustomerID), 1, "the repeated transition must not notify")
		assert.Equal(t, "Заказ уже обработан", h.gateway.answered()[1].Text)
	})

	t.Run("overwrite", func(t *testing.T) {
		h := newHarness(t, config.TerminalPolicyOverwrite)
		order := h.createOrder(t)
		ctx := context.Background()

		require.NoError(t, h.router.Route(ctx, CallbackEvent{ID: "a", FromID: testAdminID, Data: ActionConfirmOrder + order.Ref()}))
		require.NoError(t, h.router.Route(ctx, CallbackEvent{ID: "b", FromID: testAdminID, Data: ActionCancelOrder + order.Ref()}))

		stored, _ := h.store.GetOrder(ctx, order.Ref())
		assert.Equal(t, models.OrderStatusCancelled, stored.Status)
		assert.Len(t, h.gateway.sentTo(testCustomerID), 2)
	})
}

func TestRoute_UnknownOrderIsAcknowledged(t *testing.T) {
	h := newNoopHarness(t)

	for _, data := range []string{ActionConfirmOrder + "999", ActionCancelOrder + "x y"} {
		require.NoError(t, h.router.Route(context.Background(), CallbackEvent{ID: "cb", FromID: testAdminID, Data: data}))
	}

	for _, cb := range h.gateway.answered() {
		assert.Equal(t, "Заказ не найден", cb.Text)
	}
	assert.Len(t, h.gateway.answered(), 2)
	assert.Empty(t, h.gateway.sentTo(testCustomerID))
}

func TestRoute_UnknownActionIsIgnored(t *testing.T) {
	h := newNoopHarness(t)

	require.NoError(t, h.router.Route(context.Background(), CallbackEvent{ID: "cb", FromID: testAdminID, Data: "archive_order_1"}))
	assert.Empty(t, h.gateway.answered())
	assert.Empty(t, h.gateway.sentTo(testAdminID))
}

func TestRoute_FirstMatchingPrefixWins(t *testing.T) {
	h := newNoopHarness(t)
	order := h.createOrder(t)

	// Suffix is opaque: "confirm_order_cancel_order_1" names order "cancel_order_1".
	require.NoError(t, h.router.Route(context.Background(), CallbackEvent{ID: "cb", FromID: testAdminID, Data: ActionConfirmOrder + ActionCancelOrder + order.Ref()}))

	stored, _ := h.store.GetOrder(context.Background(), order.Ref())
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, "Заказ не найден", h.gateway.answered()[0].Text)
}

func TestRoute_ReplyStoresContextAndPrompts(t *testing.T) {
	h := newNoopHarness(t)
	ctx := context.Background()

	require.NoError(t, h.router.Route(ctx, CallbackEvent{ID: "cb", FromID: testAdminID, Data: ActionReplyOrder + "42"}))

	rc, err := h.store.GetReplyContext(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "42", rc.OrderID)
	assert.Equal(t, models.ReplyStateAwaitingReply, rc.State)

	prompts := h.gateway.sentTo(testAdminID)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "по заказу #42")
	assert.Equal(t, "Введите ваше сообщение", h.gateway.answered()[0].Text)
}

func TestRoute_ConfirmSurvivesNotificationFailure(t *testing.T) {
	h := newNoopHarness(t)
	order := h.createOrder(t)
	h.gateway.failChats[testCustomerID] = true
	ctx := context.Background()

	err := h.router.Route(ctx, CallbackEvent{ID: "cb1", FromID: testAdminID, Data: ActionConfirmOrder + order.Ref()})
	require.NoError(t, err)

	stored, err := h.store.GetOrder(ctx, order.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
	assert.Empty(t, h.gateway.sentTo(testCustomerID))
	assert.Equal(t, []answeredCallback{{ID: "cb1", Text: "Заказ подтвержден!"}}, h.gateway.answered())
}
