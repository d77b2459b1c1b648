package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/hermahq/herma-backend/pkg/types"
)

// SubscriptionDailySnapshot is a daily per-user subscription snapshot for analytics.
type SubscriptionDailySnapshot struct {
	ID             string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Status         types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CustomerID     *string                  `gorm:"column:customer_id;type:varchar(128)" json:"customer_id"`
	SubscriptionID *string                  `gorm:"column:subscription_id;type:varchar(128)" json:"subscription_id"`
	// Extra stores additional JSON data carried over from the record.
	Extra     datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	UserID    string         `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_user_id_snapshot_date,priority:1" json:"user_id"`
	// SnapshotDate is the calendar day the snapshot belongs to (YYYY-MM-DD).
	SnapshotDate      string    `gorm:"column:snapshot_date;uniqueIndex:idx_user_id_snapshot_date,priority:2" json:"snapshot_date"`
	SnapshotCreatedAt time.Time `gorm:"column:snapshot_created_at" json:"snapshot_created_at"`
}

func (SubscriptionDailySnapshot) TableName() string {
	return "subscription_daily_snapshot"
}
