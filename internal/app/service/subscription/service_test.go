package subscription

import (
	"context"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hermahq/herma-backend/internal/models"
	stripegw "github.com/hermahq/herma-backend/internal/platform/stripe"
	"github.com/hermahq/herma-backend/pkg/types"
)

type fakeStore struct {
	records map[string]*models.UserSubscription // keyed by user id
	logs    []*models.SubscriptionLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*models.UserSubscription{}}
}

func (f *fakeStore) GetByUserID(_ context.Context, userID string) (*models.UserSubscription, error) {
	if r, ok := f.records[userID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) GetByCustomerID(_ context.Context, customerID string) (*models.UserSubscription, error) {
	for _, r := range f.records {
		if r.CustomerID != nil && *r.CustomerID == customerID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) Create(_ context.Context, rec *models.UserSubscription) error {
	f.records[rec.UserID] = rec
	return nil
}

func (f *fakeStore) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	for _, r := range f.records {
		if r.ID != id {
			continue
		}
		for k, v := range fields {
			switch k {
			case "status":
				r.Status = v.(types.SubscriptionStatus)
			case "customer_id":
				s := v.(string)
				r.CustomerID = &s
			case "subscription_id":
				if v == nil {
					r.SubscriptionID = nil
				} else {
					s := v.(string)
					r.SubscriptionID = &s
				}
			case "last_payment_at":
				t := v.(time.Time)
				r.LastPaymentAt = &t
			case "extra":
				r.Extra = v.(datatypes.JSON)
			}
		}
		r.UpdatedAt = time.Now()
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeStore) List(_ context.Context, _ *ListRecordsRequest) ([]*models.UserSubscription, int64, error) {
	out := make([]*models.UserSubscription, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) SaveLog(_ context.Context, entry *models.SubscriptionLog) {
	if entry != nil {
		f.logs = append(f.logs, entry)
	}
}

type fakeGateway struct {
	foundCustomer *stripe.Customer
	findErr       error
	createdCalls  int
	checkoutCalls []*stripegw.CheckoutSessionParams
	activeSub     *stripe.Subscription
	activeErr     error
	activeCalls   int
}

func (f *fakeGateway) FindCustomerByEmail(_ context.Context, _ string) (*stripe.Customer, error) {
	return f.foundCustomer, f.findErr
}

func (f *fakeGateway) CreateCustomer(_ context.Context, email, _ string) (*stripe.Customer, error) {
	f.createdCalls++
	return &stripe.Customer{ID: "cus_created", Email: email}, nil
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, p *stripegw.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.checkoutCalls = append(f.checkoutCalls, p)
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

func (f *fakeGateway) CreatePortalSession(_ context.Context, _, _ string) (*stripe.BillingPortalSession, error) {
	return &stripe.BillingPortalSession{URL: "https://portal.example/ps_1"}, nil
}

func (f *fakeGateway) ActiveSubscription(_ context.Context, _ string) (*stripe.Subscription, error) {
	f.activeCalls++
	return f.activeSub, f.activeErr
}

func (f *fakeGateway) ConstructEvent(_ []byte, _ string) (stripe.Event, error) {
	return stripe.Event{}, nil
}

func newTestService(store Store, gw stripegw.Gateway) *Service {
	return NewService(store, gw, zap.NewNop().Sugar())
}

func TestApplyCheckoutCompleted_CreatesRecord(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	err := svc.ApplyCheckoutCompleted(context.Background(), "u1", "cus_1", "sub_1")
	require.NoError(t, err)

	rec := store.records["u1"]
	require.NotNil(t, rec)
	require.Equal(t, types.SubscriptionStatusActive, rec.Status)
	require.NotNil(t, rec.CustomerID)
	require.Equal(t, "cus_1", *rec.CustomerID)
	require.NotNil(t, rec.SubscriptionID)
	require.Equal(t, "sub_1", *rec.SubscriptionID)
	require.Len(t, store.logs, 1)
	require.Equal(t, types.SubscriptionChangeReasonCheckout, store.logs[0].Reason)
}

func TestApplyCheckoutCompleted_Reapply_IsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})
	ctx := context.Background()

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_1"))
	first := *store.records["u1"]

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_1"))
	second := *store.records["u1"]

	require.Equal(t, first.Status, second.Status)
	require.Equal(t, *first.CustomerID, *second.CustomerID)
	require.Equal(t, *first.SubscriptionID, *second.SubscriptionID)
}

func TestApplyCheckoutCompleted_CustomerIDIsWriteOnce(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})
	ctx := context.Background()

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_1"))
	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_other", "sub_2"))

	rec := store.records["u1"]
	require.Equal(t, "cus_1", *rec.CustomerID)
	require.Equal(t, "sub_2", *rec.SubscriptionID)
}

func TestApplyCheckoutCompleted_AtMostOneRecordPerCustomer(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})
	ctx := context.Background()

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_1"))
	// second user arriving with an already-bound customer id
	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u2", "cus_1", "sub_2"))

	bound := 0
	for _, rec := range store.records {
		if rec.CustomerID != nil && *rec.CustomerID == "cus_1" {
			bound++
		}
	}
	require.Equal(t, 1, bound)
	require.Equal(t, "cus_1", *store.records["u1"].CustomerID)

	// the second user's checkout still activates their record
	u2 := store.records["u2"]
	require.NotNil(t, u2)
	require.Equal(t, types.SubscriptionStatusActive, u2.Status)
	require.Nil(t, u2.CustomerID)

	// customer lookups stay unambiguous for later webhook events
	owner, err := store.GetByCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	require.Equal(t, "u1", owner.UserID)
}

func TestApplyCheckoutCompleted_MissingUserID(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	err := svc.ApplyCheckoutCompleted(context.Background(), "", "cus_1", "sub_1")
	require.Error(t, err)
	require.Empty(t, store.records)
}

func TestApplySubscriptionDeleted_MarksCanceledAndClearsSubscription(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})
	ctx := context.Background()

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_1"))
	require.NoError(t, svc.ApplySubscriptionDeleted(ctx, "cus_1"))

	rec := store.records["u1"]
	require.Equal(t, types.SubscriptionStatusCanceled, rec.Status)
	require.Nil(t, rec.SubscriptionID)
	// customer id binding survives deletion
	require.Equal(t, "cus_1", *rec.CustomerID)
}

func TestApplyByCustomer_UnknownCustomer_IsAcknowledgedNoOp(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	require.NoError(t, svc.ApplySubscriptionDeleted(context.Background(), "cus_unknown"))
	require.NoError(t, svc.ApplyInvoicePaid(context.Background(), "cus_unknown", time.Now()))
	require.Empty(t, store.records)
}

func TestApplyInvoicePaid_SetsActiveAndPaymentTime(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})
	ctx := context.Background()

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_1"))
	require.NoError(t, svc.ApplyInvoicePaymentFailed(ctx, "cus_1"))
	require.Equal(t, types.SubscriptionStatusPaymentFailed, store.records["u1"].Status)

	paidAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.ApplyInvoicePaid(ctx, "cus_1", paidAt))

	rec := store.records["u1"]
	require.Equal(t, types.SubscriptionStatusActive, rec.Status)
	require.NotNil(t, rec.LastPaymentAt)
	require.Equal(t, paidAt, *rec.LastPaymentAt)
}

func TestApplyInvoicePaymentFailed_OnlyTouchesStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})
	ctx := context.Background()

	require.NoError(t, svc.ApplyCheckoutCompleted(ctx, "u1", "cus_1", "sub_1"))
	require.NoError(t, svc.ApplyInvoicePaymentFailed(ctx, "cus_1"))

	rec := store.records["u1"]
	require.Equal(t, types.SubscriptionStatusPaymentFailed, rec.Status)
	require.Equal(t, "sub_1", *rec.SubscriptionID)
	require.Nil(t, rec.LastPaymentAt)
}

func TestGrant_CreatesActiveRecordWithoutProvider(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeGateway{})

	require.NoError(t, svc.Grant(context.Background(), "u1", "op-1"))

	rec := store.records["u1"]
	require.NotNil(t, rec)
	require.Equal(t, types.SubscriptionStatusActive, rec.Status)
	require.Nil(t, rec.CustomerID)
	require.Contains(t, string(rec.Extra), "op-1")
	require.Len(t, store.logs, 1)
	require.Equal(t, types.SubscriptionChangeReasonGrant, store.logs[0].Reason)
}
