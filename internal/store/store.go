// Package store declares the persistence collaborators of the storefront.
package store

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/models"
)

// ErrNotFound is returned when a lookup by id matches nothing, including ids that
// cannot name a row at all.
var ErrNotFound = errors.New("store: not found")

// OrderFilter narrows ListOrders. Zero fields do not filter.
type OrderFilter struct {
	TelegramUserID int64
	Status         models.OrderStatus
	Limit          int
	Offset         int
}

// ProductFilter narrows ListProducts. Zero fields do not filter.
type ProductFilter struct {
	Category string
	Search   string
}

// Orders persists orders. Only OrderLifecycle changes an order after creation.
type Orders interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	// UpdateOrderStatus sets the status of order id. When from is non-empty the write only
	// applies if the current status is one of from. It reports whether a row changed.
	UpdateOrderStatus(ctx context.Context, id string, to models.OrderStatus, from ...models.OrderStatus) (bool, error)
}

// ReplyContexts is the admin_id -> ReplyContext map. Upsert and delete are atomic per key.
type ReplyContexts interface {
	UpsertReplyContext(ctx context.Context, rc models.ReplyContext) error
	GetReplyContext(ctx context.Context, adminID string) (*models.ReplyContext, error)
	DeleteReplyContext(ctx context.Context, adminID string) error
}

// OrderMessages is the append-only audit trail of relayed messages.
type OrderMessages interface {
	AppendOrderMessage(ctx context.Context, msg *models.OrderMessage) error
	ListOrderMessages(ctx context.Context, orderID uint64) ([]models.OrderMessage, error)
}

// Catalog is the product query surface.
type Catalog interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id uint64) (*models.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, product *models.Product) error
}

// Store bundles every collaborator behind one backend.
type Store interface {
	Orders
	ReplyContexts
	OrderMessages
	Catalog
}
