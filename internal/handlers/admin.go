package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/utils"
)

const defaultProductStock = 100

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	adminID   string
	store     store.Store
	lifecycle *services.OrderLifecycle
	telegram  *services.TelegramService
	log       logrus.FieldLogger
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(adminID string, s store.Store, lifecycle *services.OrderLifecycle, telegram *services.TelegramService, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{
		adminID:   adminID,
		store:     s,
		lifecycle: lifecycle,
		telegram:  telegram,
		log:       log.WithField("component", "admin"),
	}
}

// Check tells the mini-app whether the caller is the administrator.
func (h *AdminHandler) Check(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return apperr.AuthMissing("Unauthorized: No init data")
	}

	if h.adminID == "" || user.IDString() != h.adminID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"isAdmin": false,
			"message": "Доступ запрещен",
		})
	}

	return c.JSON(fiber.Map{
		"isAdmin": true,
		"message": "Доступ подтвержден",
	})
}

// ListOrders returns every order, newest first.
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	filter := store.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		Limit:  pg.Limit,
		Offset: pg.Offset,
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

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatus applies a confirm or cancel from the admin panel and notifies the customer.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	result, err := h.lifecycle.Transition(c.UserContext(), c.Params("id"), req.Status)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("order not found")
	}
	if err != nil {
		return err
	}

	if result.Changed {
		_ = h.telegram.NotifyStatus(c.UserContext(), result.Order)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"changed": result.Changed,
		"data":    result.Order,
	})
}

type createProductRequest struct {
	Name        string           `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Category    string           `json:"category"`
	Image       string           `json:"image"`
	Description string           `json:"description"`
	Stock       *int             `json:"stock"`
}

// CreateProduct adds a product to the catalog.
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	product := models.Product{
		Name:        strings.TrimSpace(req.Name),
		Category:    strings.TrimSpace(req.Category),
		Image:       strings.TrimSpace(req.Image),
		Description: strings.TrimSpace(req.Description),
		Stock:       defaultProductStock,
	}
	if product.Name == "" || req.Price == nil || product.Category == "" || product.Image == "" || product.Description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Missing required fields",
			"required": []string{"name", "price", "category", "image", "description"},
		})
	}
	if !req.Price.IsPositive() {
		return apperr.BadRequest("Invalid price")
	}
	product.Price = *req.Price

	if req.Stock != nil {
		if *req.Stock < 0 {
			return apperr.BadRequest("Invalid stock")
		}
		product.Stock = *req.Stock
	}

	if err := h.store.CreateProduct(c.UserContext(), &product); err != nil {
		return apperr.Upstream("Failed to save product", err)
	}

	h.log.WithFields(logrus.Fields{"product_id": product.ID, "name": product.Name}).Info("product created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"product": product,
		"message": "Товар успешно добавлен",
	})
}
