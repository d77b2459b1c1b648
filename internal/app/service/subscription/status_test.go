package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/require"

	"github.com/hermahq/herma-backend/pkg/types"
)

func TestGetStatus_UnknownUser(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeGateway{})

	_, err := svc.GetStatus(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestGetStatus_NoCustomerID_SkipsProvider(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	svc := newTestService(store, gw)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "u1", "op-1"))

	info, err := svc.GetStatus(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusActive, info.Status)
	require.Zero(t, gw.activeCalls)
}

func TestGetStatus_LiveSubscriptionWins(t *testing.T) {
	store := newFakeStore()
	periodEnd := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	gw := &fakeGateway{
		activeSub: &stripe.Subscription{
			ID:     "sub_live",
			Status: stripe.SubscriptionStatusActive,
			Items: &stripe.SubscriptionItemList{
				Data: []*stripe.SubscriptionItem{{
					CurrentPeriodEnd: periodEnd.Unix(),
					Price:            &stripe.Price{UnitAmount: 900, Currency: stripe.CurrencyUSD},
				}},
			},
		},
	}
	svc := newTestService(store, gw)
	ctx := context.Background()

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_stale"))
	// cached record drifts behind the provider
	require.NoError(t, svc.ApplySubscriptionDeleted(ctx, "cus_1"))

	info, err := svc.GetStatus(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusActive, info.Status)
	require.Equal(t, "sub_live", info.SubscriptionID)
	require.NotNil(t, info.NextBillingDate)
	require.Equal(t, periodEnd, *info.NextBillingDate)
	require.NotNil(t, info.AmountCents)
	require.Equal(t, int64(900), *info.AmountCents)
	require.Equal(t, "usd", info.Currency)
}

func TestGetStatus_ProviderError_ServesCached(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{activeErr: errors.New("provider down")}
	svc := newTestService(store, gw)
	ctx := context.Background()

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_1"))

	info, err := svc.GetStatus(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusActive, info.Status)
	require.Equal(t, "sub_1", info.SubscriptionID)
}

func TestGetStatus_NoLiveSubscription_CanceledShowsAsFree(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{} // no active subscription at the provider
	svc := newTestService(store, gw)
	ctx := context.Background()

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_1"))
	require.NoError(t, svc.ApplySubscriptionDeleted(ctx, "cus_1"))

	info, err := svc.GetStatus(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusFree, info.Status)
}
