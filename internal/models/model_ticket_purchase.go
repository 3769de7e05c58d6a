package models

import (
	"time"

	"github.com/crownline/pageant/pkg/types"
)

// TicketPurchase is one attendee ticket order. Unlike votes, failed attempts
// keep a failed row for audit and support.
type TicketPurchase struct {
	ID           string  `gorm:"column:id;primary_key;type:uuid" json:"id"`
	UserID       string  `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	PayerEmail   string  `gorm:"column:payer_email;type:varchar(128);not null" json:"payer_email"`
	TicketTypeID string  `gorm:"column:ticket_type_id;type:varchar(64);not null" json:"ticket_type_id"`
	Quantity     int     `gorm:"column:quantity;not null" json:"quantity"`
	Amount       float64 `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	MerchantRef  string  `gorm:"column:merchant_ref;type:varchar(64);not null;index" json:"merchant_ref"`
	// OrderTrackingID stays null until the gateway accepts the order.
	OrderTrackingID *string              `gorm:"column:order_tracking_id;type:varchar(64);index" json:"order_tracking_id"`
	Status          types.PurchaseStatus `gorm:"column:status;type:varchar(16);not null;default:'pending';index" json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (TicketPurchase) TableName() string {
	return "ticket_purchase"
}

func (t *TicketPurchase) Confirmed() bool {
	return t != nil && t.Status == types.PurchaseStatusConfirmed
}
