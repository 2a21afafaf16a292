package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SenderType identifies who wrote an order message.
type SenderType string

const (
	SenderAdmin    SenderType = "admin"
	SenderCustomer SenderType = "customer"
)

// OrderMessage is an append-only record of a message exchanged about an order.
type OrderMessage struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID    uint64     `gorm:"index;not null" json:"order_id"`
	SenderType SenderType `gorm:"type:varchar(16);not null" json:"sender_type"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
}

// BeforeCreate ensures UUIDs are generated for new records.
func (m *OrderMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
