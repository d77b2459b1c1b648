package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEventLogStatus string

const (
	WebhookEventLogStatusReceived     WebhookEventLogStatus = "received"
	WebhookEventLogStatusHandled      WebhookEventLogStatus = "handled"
	WebhookEventLogStatusHandleFailed WebhookEventLogStatus = "handle_failed"
)

// WebhookEventLog records every provider webhook delivery and its outcome.
type WebhookEventLog struct {
	ID         string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	EventID    string                `gorm:"column:event_id;type:varchar(128);index" json:"event_id"`
	EventType  string                `gorm:"column:event_type;type:varchar(128);not null" json:"event_type"`
	CustomerID *string               `gorm:"column:customer_id;type:varchar(128)" json:"customer_id"`
	UserID     *string               `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	TraceID    string                `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	ReceivedAt time.Time             `gorm:"column:received_at" json:"received_at"`
	Data       datatypes.JSON        `gorm:"column:data;type:jsonb" json:"data"`
	Result     *datatypes.JSON       `gorm:"column:result;type:jsonb" json:"result"`
	Status     WebhookEventLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func (WebhookEventLog) TableName() string { return "webhook_event_log" }
