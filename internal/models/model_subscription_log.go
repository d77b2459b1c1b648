package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/hermahq/herma-backend/pkg/types"
)

// SubscriptionLog records changes to user subscription records.
// Use case: troubleshooting.
type SubscriptionLog struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);index:idx_user_id_id,priority:1;not null"`
	// Reason is the change reason, keyed by the event that drove it.
	Reason types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null"`
	// Before stores the record before the change in JSON format.
	Before datatypes.JSONType[*UserSubscription] `gorm:"column:before;type:jsonb;default:'null'"`
	// After stores the record after the change in JSON format.
	After datatypes.JSONType[*UserSubscription] `gorm:"column:after;type:jsonb;default:'null'"`
	// Extra stores additional context such as the provider event id.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'"`
	CreatedAt time.Time
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
