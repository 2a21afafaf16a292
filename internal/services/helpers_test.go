package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store/memory"
)

const (
	testAdminID    int64 = 100
	testCustomerID int64 = 7
)

type answeredCallback struct {
	ID   string
	Text string
}

type fakeGateway struct {
	mu        sync.Mutex
	messages  []OutgoingMessage
	callbacks []answeredCallback
	failChats map[int64]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failChats: map[int64]bool{}}
}

func (g *fakeGateway) SendMessage(_ context.Context, msg OutgoingMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failChats[msg.ChatID] {
		return errors.New("chat not found")
	}
	g.messages = append(g.messages, msg)
	return nil
}

func (g *fakeGateway) AnswerCallback(_ context.Context, callbackID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callbacks = append(g.callbacks, answeredCallback{ID: callbackID, Text: text})
	return nil
}

func (g *fakeGateway) sentTo(chatID int64) []OutgoingMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []OutgoingMessage
	for _, m := range g.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (g *fakeGateway) answered() []answeredCallback {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]answeredCallback(nil), g.callbacks...)
}

type harness struct {
	store     *memory.Store
	gateway   *fakeGateway
	notifier  *TelegramService
	lifecycle *OrderLifecycle
	replies   *ReplyConversation
	router    *ActionRouter
	logs      *test.Hook
}

func newHarness(t *testing.T, policy string) *harness {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	s := memory.New()
	gw := newFakeGateway()
	notifier := NewTelegramService(gw, testAdminID, logger)
	lifecycle := NewOrderLifecycle(s, policy, logger)
	replies := NewReplyConversation(s, notifier, logger)
	router := NewActionRouter("100", lifecycle, replies, notifier, logger)

	return &harness{
		store:     s,
		gateway:   gw,
		notifier:  notifier,
		lifecycle: lifecycle,
		replies:   replies,
		router:    router,
		logs:      hook,
	}
}

func newNoopHarness(t *testing.T) *harness {
	return newHarness(t, config.TerminalPolicyNoop)
}

func (h *harness) createOrder(t *testing.T) models.Order {
	t.Helper()
	order := models.Order{
		TelegramUserID: testCustomerID,
		FirstName:      "Ann",
		Items: []models.OrderItem{
			{Position: 0, ProductID: 1, Name: "Смартфон X1", Price: decimal.NewFromInt(25990), Quantity: 1},
		},
		Total:    decimal.NewFromInt(25990),
		Delivery: models.Delivery{Name: "Ann", Phone: "+70000000000", Address: "Moscow"},
		Status:   models.OrderStatusPending,
	}
	require.NoError(t, h.store.CreateOrder(context.Background(), &order))
	return order
}
