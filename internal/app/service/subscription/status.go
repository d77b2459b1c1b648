package subscription

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/hermahq/herma-backend/internal/models"
	"github.com/hermahq/herma-backend/pkg/logctx"
	"github.com/hermahq/herma-backend/pkg/types"
)

// GetStatus answers the current plan for a user. When the record is bound to
// a provider customer, the provider is consulted live first (it reflects
// current truth faster than webhook propagation); the cached record is the
// fallback when the provider has no active subscription or is unreachable.
func (s *Service) GetStatus(ctx context.Context, userID string) (*types.UserSubscriptionInfo, error) {
	rec, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load record for user %s: %w", userID, err)
	}

	if rec.CustomerID == nil || *rec.CustomerID == "" {
		// Never subscribed through the provider; nothing live to consult.
		return cachedInfo(rec), nil
	}

	live, err := s.gw.ActiveSubscription(ctx, *rec.CustomerID)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("provider unreachable, serving cached status",
			"user_id", userID, "error", err.Error())
		return cachedInfo(rec), nil
	}
	if live == nil {
		return cachedInfo(rec), nil
	}
	return liveInfo(rec, live), nil
}

func cachedInfo(rec *models.UserSubscription) *types.UserSubscriptionInfo {
	info := &types.UserSubscriptionInfo{Status: rec.Status.Public()}
	if rec.CustomerID != nil {
		info.CustomerID = *rec.CustomerID
	}
	if rec.SubscriptionID != nil {
		info.SubscriptionID = *rec.SubscriptionID
	}
	return info
}

func liveInfo(rec *models.UserSubscription, sub *stripe.Subscription) *types.UserSubscriptionInfo {
	info := &types.UserSubscriptionInfo{
		Status:         types.SubscriptionStatusActive,
		SubscriptionID: sub.ID,
	}
	if rec.CustomerID != nil {
		info.CustomerID = *rec.CustomerID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.CurrentPeriodEnd > 0 {
			next := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			info.NextBillingDate = &next
		}
		if item.Price != nil {
			amount := item.Price.UnitAmount
			info.AmountCents = &amount
			info.Currency = string(item.Price.Currency)
		}
	}
	return info
}
