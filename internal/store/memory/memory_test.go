package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

func TestOrders(t *testing.T) {
	s := New()
	ctx := context.Background()

	order := &models.Order{
		TelegramUserID: 7,
		Items: []models.OrderItem{
			{Position: 0, ProductID: 1, Name: "A", Price: decimal.NewFromInt(10), Quantity: 2},
		},
		Total:  decimal.NewFromInt(20),
		Status: models.OrderStatusPending,
	}
	require.NoError(t, s.CreateOrder(ctx, order))
	require.NotZero(t, order.ID)

	got, err := s.GetOrder(ctx, order.Ref())
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.Items[0].OrderID)

	got.Items[0].Name = "mutated"
	again, _ := s.GetOrder(ctx, order.Ref())
	assert.Equal(t, "A", again.Items[0].Name)

	_, err = s.GetOrder(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetOrder(ctx, "999")
	assert.ErrorIs(t, err, store.ErrNotFound)

	changed, err := s.UpdateOrderStatus(ctx, order.Ref(), models.OrderStatusConfirmed, models.OrderStatusPending)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.UpdateOrderStatus(ctx, order.Ref(), models.OrderStatusCancelled, models.OrderStatusPending)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.UpdateOrderStatus(ctx, order.Ref(), models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.True(t, changed)

	list, total, err := s.ListOrders(ctx, store.OrderFilter{TelegramUserID: 7})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.OrderStatusCancelled, list[0].Status)

	list, total, err = s.ListOrders(ctx, store.OrderFilter{TelegramUserID: 8})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestReplyContexts_LastWriteWins(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.UpsertReplyContext(ctx, models.ReplyContext{AdminID: "100", OrderID: "42", State: models.ReplyStateAwaitingReply}))
	require.NoError(t, s.UpsertReplyContext(ctx, models.ReplyContext{AdminID: "100", OrderID: "77", State: models.ReplyStateAwaitingReply}))

	rc, err := s.GetReplyContext(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "77", rc.OrderID)

	require.NoError(t, s.DeleteReplyContext(ctx, "100"))
	_, err = s.GetReplyContext(ctx, "100")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCatalog(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, p := range []models.Product{
		{Name: "Наушники Pro", Category: "audio", Description: "Беспроводные наушники"},
		{Name: "Смарт-часы", Category: "electronics", Description: "Умные часы"},
		{Name: "Портативная колонка", Category: "audio", Description: "Компактная колонка"},
	} {
		p := p
		require.NoError(t, s.CreateProduct(ctx, &p))
	}

	all, err := s.ListProducts(ctx, store.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID)

	audio, err := s.ListProducts(ctx, store.ProductFilter{Category: "audio"})
	require.NoError(t, err)
	assert.Len(t, audio, 2)

	found, err := s.ListProducts(ctx, store.ProductFilter{Search: "ЧАСЫ"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Смарт-часы", found[0].Name)

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"audio", "electronics"}, categories)

	_, err = s.GetProduct(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
