package models

import "time"

// ReplyState is the conversational state stored for an administrator.
type ReplyState string

const ReplyStateAwaitingReply ReplyState = "awaiting_reply"

// ReplyContext marks that an administrator's next text message is a reply to OrderID.
// At most one row exists per administrator.
type ReplyContext struct {
	AdminID   string     `gorm:"primaryKey;type:varchar(32)" json:"admin_id"`
	OrderID   string     `gorm:"type:varchar(64);not null" json:"order_id"`
	State     ReplyState `gorm:"type:varchar(32);not null" json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
