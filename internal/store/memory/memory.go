// Package memory is an in-process Store used by tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	nextID   uint64
	orders   map[uint64]models.Order
	contexts map[string]models.ReplyContext
	messages []models.OrderMessage
	products map[uint64]models.Product
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		now:      time.Now,
		orders:   make(map[uint64]models.Order),
		contexts: make(map[string]models.ReplyContext),
		products: make(map[uint64]models.Product),
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

func parseID(id string) (uint64, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	return n, err == nil
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

func (s *Store) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	order.ID = s.id()
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Items {
		order.Items[i].ID = s.id()
		order.Items[i].OrderID = order.ID
	}
	s.orders[order.ID] = copyOrder(*order)
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*models.Order, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, store.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[n]
	if !ok {
		return nil, store.ErrNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (s *Store) ListOrders(_ context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Order
	for _, o := range s.orders {
		if filter.TelegramUserID != 0 && o.TelegramUserID != filter.TelegramUserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, copyOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []models.Order{}, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, to models.OrderStatus, from ...models.OrderStatus) (bool, error) {
	n, ok := parseID(id)
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[n]
	if !ok {
		return false, nil
	}
	if len(from) > 0 && !containsStatus(from, o.Status) {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = s.now()
	s.orders[n] = o
	return true, nil
}

func containsStatus(list []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DeleteOrder removes an order. The storefront never deletes orders; tests use it to
// simulate rows disappearing underneath a live reply context.
func (s *Store) DeleteOrder(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
}

func (s *Store) UpsertReplyContext(_ context.Context, rc models.ReplyContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if prev, ok := s.contexts[rc.AdminID]; ok {
		rc.CreatedAt = prev.CreatedAt
	} else {
		rc.CreatedAt = now
	}
	rc.UpdatedAt = now
	s.contexts[rc.AdminID] = rc
	return nil
}

func (s *Store) GetReplyContext(_ context.Context, adminID string) (*models.ReplyContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.contexts[adminID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rc, nil
}

func (s *Store) DeleteReplyContext(_ context.Context, adminID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, adminID)
	return nil
}

func (s *Store) AppendOrderMessage(_ context.Context, msg *models.OrderMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.CreatedAt = s.now()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *Store) ListOrderMessages(_ context.Context, orderID uint64) ([]models.OrderMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.OrderMessage{}
	for _, m := range s.messages {
		if m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) ListProducts(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := []models.Product{}
	for _, p := range s.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id uint64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range s.products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if product.ID == 0 {
		product.ID = s.id()
	}
	product.CreatedAt, product.UpdatedAt = now, now
	s.products[product.ID] = *product
	return nil
}
