package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/utils"
)

const notifyTimeout = 15 * time.Second

// OrderHandler manages customer order endpoints.
type OrderHandler struct {
	store    store.Store
	telegram *services.TelegramService
	log      logrus.FieldLogger
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(s store.Store, telegram *services.TelegramService, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{store: s, telegram: telegram, log: log.WithField("component", "order")}
}

type orderItemRequest struct {
	ProductID uint64          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type createOrderRequest struct {
	Items    []orderItemRequest `json:"items"`
	Total    decimal.Decimal    `json:"total"`
	Delivery models.Delivery    `json:"delivery"`
}

// CreateOrder validates the cart against the catalog and persists a pending order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return apperr.AuthMissing("Unauthorized: No init data")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	if len(req.Items) == 0 {
		return apperr.BadRequest("Invalid order items")
	}
	if !req.Total.IsPositive() {
		return apperr.BadRequest("Invalid order total")
	}

	items, err := h.buildItems(c.UserContext(), req.Items)
	if err != nil {
		return err
	}

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	if !sum.Equal(req.Total) {
		return apperr.BadRequest("Order total does not match items")
	}

	delivery := models.Delivery{
		Name:    strings.TrimSpace(req.Delivery.Name),
		Phone:   strings.TrimSpace(req.Delivery.Phone),
		Address: strings.TrimSpace(req.Delivery.Address),
	}
	if delivery.Name == "" || delivery.Phone == "" || delivery.Address == "" {
		return apperr.BadRequest("Missing delivery details")
	}

	order := models.Order{
		TelegramUserID: user.ID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Username:       user.Username,
		Items:          items,
		Total:          sum,
		Delivery:       delivery,
		Status:         models.OrderStatusPending,
	}

	if err := h.store.CreateOrder(c.UserContext(), &order); err != nil {
		return apperr.Upstream("Failed to create order", err)
	}
	metrics.RecordOrderCreated()

	h.log.WithFields(logrus.Fields{
		"order_id":         order.Ref(),
		"telegram_user_id": user.ID,
		"total":            order.Total.String(),
	}).Info("order created")

	go h.dispatchNewOrder(order)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"orderId": order.Ref(),
		"message": "Заказ успешно оформлен",
	})
}

func (h *OrderHandler) buildItems(ctx context.Context, reqItems []orderItemRequest) ([]models.OrderItem, error) {
	requested := make(map[uint64]int)
	products := make(map[uint64]*models.Product)
	items := make([]models.OrderItem, 0, len(reqItems))

	for i, it := range reqItems {
		if it.Quantity <= 0 {
			return nil, apperr.BadRequest(fmt.Sprintf("Invalid quantity for item %d", i+1))
		}
		if !it.Price.IsPositive() {
			return nil, apperr.BadRequest(fmt.Sprintf("Invalid price for item %d", i+1))
		}

		product, ok := products[it.ProductID]
		if !ok {
			p, err := h.store.GetProduct(ctx, it.ProductID)
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.BadRequest(fmt.Sprintf("Unknown product %d", it.ProductID))
			}
			if err != nil {
				return nil, apperr.Upstream("Failed to load product", err)
			}
			product = p
			products[it.ProductID] = p
		}

		if !it.Price.Equal(product.Price) {
			return nil, apperr.BadRequest(fmt.Sprintf("Price mismatch for product %d", it.ProductID))
		}

		requested[it.ProductID] += it.Quantity
		if requested[it.ProductID] > product.Stock {
			return nil, apperr.BadRequest(fmt.Sprintf("Insufficient stock for product %d", it.ProductID))
		}

		items = append(items, models.OrderItem{
			Position:  i,
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  it.Quantity,
		})
	}

	return items, nil
}

// dispatchNewOrder notifies the admin about a committed order.
func (h *OrderHandler) dispatchNewOrder(order models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := h.telegram.NotifyNewOrder(ctx, order); err != nil {
		h.log.WithError(err).WithField("order_id", order.Ref()).Warn("admin notification failed")
		return
	}
	h.log.WithField("order_id", order.Ref()).Debug("admin notified about new order")
}

// ListOrders returns the caller's orders.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return apperr.AuthMissing("Unauthorized: No init data")
	}

	pg := utils.ParsePagination(c)
	filter := store.OrderFilter{
		TelegramUserID: user.ID,
		Status:         models.OrderStatus(c.Query("status")),
		Limit:          pg.Limit,
		Offset:         pg.Offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return apperr.BadRequest("invalid status")
	}

	orders, total, err := h.store.ListOrders(c.UserContext(), filter)
	if err != nil {
		return apperr.Upstream("Failed to list orders", err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

func (h *OrderHandler) ownOrder(c *fiber.Ctx) (*models.Order, error) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return nil, apperr.AuthMissing("Unauthorized: No init data")
	}

	order, err := h.store.GetOrder(c.UserContext(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, apperr.Upstream("Failed to load order", err)
	}
	if order.TelegramUserID != user.ID {
		return nil, apperr.NotFound("order not found")
	}
	return order, nil
}

// GetOrder returns a single order of the caller.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.ownOrder(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// ListOrderMessages returns the admin replies recorded for one of the caller's orders.
func (h *OrderHandler) ListOrderMessages(c *fiber.Ctx) error {
	order, err := h.ownOrder(c)
	if err != nil {
		return err
	}

	messages, err := h.store.ListOrderMessages(c.UserContext(), order.ID)
	if err != nil {
		return apperr.Upstream("Failed to load messages", err)
	}
	return c.JSON(fiber.Map{"success": true, "data": messages})
}
