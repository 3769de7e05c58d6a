package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentNotificationLogStatus string

const (
	PaymentNotificationLogStatusReceived     PaymentNotificationLogStatus = "received"
	PaymentNotificationLogStatusHandled      PaymentNotificationLogStatus = "handled"
	PaymentNotificationLogStatusHandleFailed PaymentNotificationLogStatus = "handle_failed"
)

// PaymentNotificationLog records every reconciliation trigger (gateway IPN,
// browser callback, admin sweep item) and its outcome, for problem diagnosis.
type PaymentNotificationLog struct {
	ID               string                       `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Source           string                       `gorm:"column:source;type:varchar(32);not null" json:"source"`
	TraceID          string                       `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	OrderTrackingID  string                       `gorm:"column:order_tracking_id;type:varchar(128)" json:"order_tracking_id"`
	NotificationTime time.Time                    `gorm:"column:notification_time" json:"notification_time"`
	Data             datatypes.JSON               `gorm:"column:data;type:jsonb" json:"data"`
	Result           *datatypes.JSON              `gorm:"column:result;type:jsonb" json:"result"`
	Status           PaymentNotificationLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt        time.Time                    `json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}

func (PaymentNotificationLog) TableName() string { return "payment_notification_log" }
