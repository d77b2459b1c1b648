package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/hermahq/herma-backend/pkg/types"
)

// UserSubscription is the per-user billing record mirrored from the payment
// provider. One row per user; webhook handlers are the only writers.
type UserSubscription struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	// CustomerID is the payment-provider customer id. Set once on first
	// checkout completion and never overwritten with a different value. The
	// unique index keeps lookups by customer id unambiguous; NULLs (users
	// who never checked out) do not collide.
	CustomerID *string `gorm:"column:customer_id;type:varchar(128);uniqueIndex" json:"customer_id"`
	// SubscriptionID is set while a provider subscription exists and cleared
	// when it is deleted.
	SubscriptionID *string                  `gorm:"column:subscription_id;type:varchar(128)" json:"subscription_id"`
	Status         types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null;default:'free'" json:"status"`
	LastPaymentAt  *time.Time               `gorm:"column:last_payment_at;default:null" json:"last_payment_at"`
	// Extra stores additional JSON data (for example: plan snapshot, grant operator).
	Extra datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	// CreatedAt is managed by GORM and records the creation time.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is managed by GORM and refreshed on every mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserSubscription) TableName() string {
	return "user_subscription"
}

// Entitled reports whether the record grants access to paid features.
func (r *UserSubscription) Entitled() bool {
	return r != nil && r.Status.Paid()
}
