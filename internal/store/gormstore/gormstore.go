// Package gormstore implements store.Store on top of gorm and PostgreSQL.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

// Store is a store.Store over a gorm connection.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

func parseOrderID(id string) (uint64, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	return n, err == nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	n, ok := parseOrderID(id)
	if !ok {
		return nil, store.ErrNotFound
	}

	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", orderedItems).
		First(&order, "id = ?", n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.TelegramUserID != 0 {
		query = query.Where("telegram_user_id = ?", filter.TelegramUserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query = query.Preload("Items", orderedItems).Order("id desc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	orders := []models.Order{}
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, to models.OrderStatus, from ...models.OrderStatus) (bool, error) {
	n, ok := parseOrderID(id)
	if !ok {
		return false, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", n)
	if len(from) > 0 {
		query = query.Where("status IN ?", from)
	}

	res := query.Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("update order %s status: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) UpsertReplyContext(ctx context.Context, rc models.ReplyContext) error {
	now := time.Now()
	rc.CreatedAt, rc.UpdatedAt = now, now

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "admin_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"order_id", "state", "updated_at"}),
	}).Create(&rc).Error
	if err != nil {
		return fmt.Errorf("upsert reply context for %s: %w", rc.AdminID, err)
	}
	return nil
}

func (s *Store) GetReplyContext(ctx context.Context, adminID string) (*models.ReplyContext, error) {
	var rc models.ReplyContext
	err := s.db.WithContext(ctx).First(&rc, "admin_id = ?", adminID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reply context for %s: %w", adminID, err)
	}
	return &rc, nil
}

func (s *Store) DeleteReplyContext(ctx context.Context, adminID string) error {
	err := s.db.WithContext(ctx).
		Where("admin_id = ?", adminID).
		Delete(&models.ReplyContext{}).Error
	if err != nil {
		return fmt.Errorf("delete reply context for %s: %w", adminID, err)
	}
	return nil
}

func (s *Store) AppendOrderMessage(ctx context.Context, msg *models.OrderMessage) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("append message to order %d: %w", msg.OrderID, err)
	}
	return nil
}

func (s *Store) ListOrderMessages(ctx context.Context, orderID uint64) ([]models.OrderMessage, error) {
	messages := []models.OrderMessage{}
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages of order %d: %w", orderID, err)
	}
	return messages, nil
}

// likeEscaper makes search text match literally; backslash is the default LIKE escape in Postgres.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	products := []models.Product{}
	if err := query.Order("id asc").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id uint64) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &product, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("category <> ''").
		Distinct().
		Order("category asc").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}
