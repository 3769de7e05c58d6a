package models

import (
	"time"

	"github.com/crownline/pageant/pkg/types"
)

// PaymentTransaction is the durable ledger entry for one payment attempt.
// It is created together with its purchase records when the gateway accepts
// the order, updated on every status check, and never deleted.
type PaymentTransaction struct {
	ID          string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	MerchantRef string `gorm:"column:merchant_ref;type:varchar(64);not null;uniqueIndex" json:"merchant_ref"`
	// OrderTrackingID is assigned by the gateway and is the only key used to
	// correlate gateway responses back to local state. Immutable once set.
	OrderTrackingID string               `gorm:"column:order_tracking_id;type:varchar(64);not null;uniqueIndex" json:"order_tracking_id"`
	Purpose         types.PaymentPurpose `gorm:"column:purpose;type:varchar(16);not null" json:"purpose"`
	Amount          float64              `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Description     string               `gorm:"column:description;type:varchar(256)" json:"description"`

	// Latest gateway truth, refreshed unconditionally on every status poll.
	StatusCode        int     `gorm:"column:status_code;not null;default:0" json:"status_code"`
	StatusDescription string  `gorm:"column:status_description;type:varchar(128)" json:"status_description"`
	PaymentMethod     *string `gorm:"column:payment_method;type:varchar(64)" json:"payment_method"`
	ConfirmationCode  *string `gorm:"column:confirmation_code;type:varchar(128)" json:"confirmation_code"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transaction"
}

func (t *PaymentTransaction) Completed() bool {
	return t != nil && t.StatusCode == types.GatewayStatusCompleted
}
