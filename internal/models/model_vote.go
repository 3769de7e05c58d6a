package models

import (
	"time"

	"github.com/crownline/pageant/pkg/types"
)

// Vote is one purchased vote bundle for a contestant in a category.
// A multi-category burst creates several Vote rows sharing one merchant ref
// and, once the gateway accepts the order, one tracking id; they all
// transition together.
//
// Votes are ephemeral attempts: a failed or cancelled payment deletes the
// row outright, so a Vote only ever holds pending or verified status.
type Vote struct {
	ID           string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	UserID       string `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	PayerEmail   string `gorm:"column:payer_email;type:varchar(128);not null" json:"payer_email"`
	ContestantID string `gorm:"column:contestant_id;type:varchar(64);not null;index:idx_vote_tally,priority:1" json:"contestant_id"`
	CategoryID   string `gorm:"column:category_id;type:varchar(64);not null;index:idx_vote_tally,priority:2" json:"category_id"`
	PackageID    string `gorm:"column:package_id;type:varchar(64);not null" json:"package_id"`
	VoteCount    int    `gorm:"column:vote_count;not null" json:"vote_count"`
	Amount       float64 `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	MerchantRef  string `gorm:"column:merchant_ref;type:varchar(64);not null;index" json:"merchant_ref"`
	// OrderTrackingID stays null until the gateway accepts the order. Rows
	// that never receive one are swept after the retention window.
	OrderTrackingID *string              `gorm:"column:order_tracking_id;type:varchar(64);index" json:"order_tracking_id"`
	Status          types.PurchaseStatus `gorm:"column:status;type:varchar(16);not null;default:'pending';index" json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (Vote) TableName() string {
	return "vote"
}

func (v *Vote) Verified() bool {
	return v != nil && v.Status == types.PurchaseStatusVerified
}
