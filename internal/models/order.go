package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Totals and prices go out as JSON numbers, the way the mini-app sends them.
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusCancelled
}

// Delivery holds the recipient details captured at checkout.
type Delivery struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Order struct {
	ID             uint64          `gorm:"primaryKey" json:"id"`
	TelegramUserID int64           `gorm:"index;not null" json:"telegram_user_id"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name,omitempty"`
	Username       string          `json:"username,omitempty"`
	Items          []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Delivery       Delivery        `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery"`
	Status         OrderStatus     `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Ref is the order id as it appears in action codes and chat messages.
func (o Order) Ref() string {
	return strconv.FormatUint(o.ID, 10)
}

// CustomerName joins the customer's first and last name.
func (o Order) CustomerName() string {
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}

type OrderItem struct {
	ID        uint64          `gorm:"primaryKey" json:"-"`
	OrderID   uint64          `gorm:"index;not null" json:"-"`
	Position  int             `gorm:"not null" json:"-"`
	ProductID uint64          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
