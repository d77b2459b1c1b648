package webhookevent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hermahq/herma-backend/internal/models"
	"github.com/hermahq/herma-backend/pkg/types"
)

type applierCall struct {
	method     string
	userID     string
	customerID string
	subID      string
	status     types.SubscriptionStatus
}

type fakeApplier struct {
	calls []applierCall
	err   error
}

func (f *fakeApplier) ApplyCheckoutCompleted(_ context.Context, userID, customerID, subscriptionID string) error {
	f.calls = append(f.calls, applierCall{method: "checkout", userID: userID, customerID: customerID, subID: subscriptionID})
	return f.err
}

func (f *fakeApplier) ApplySubscriptionChanged(_ context.Context, customerID, subscriptionID string, status types.SubscriptionStatus) error {
	f.calls = append(f.calls, applierCall{method: "changed", customerID: customerID, subID: subscriptionID, status: status})
	return f.err
}

func (f *fakeApplier) ApplySubscriptionDeleted(_ context.Context, customerID string) error {
	f.calls = append(f.calls, applierCall{method: "deleted", customerID: customerID})
	return f.err
}

func (f *fakeApplier) ApplyInvoicePaid(_ context.Context, customerID string, _ time.Time) error {
	f.calls = append(f.calls, applierCall{method: "invoicePaid", customerID: customerID})
	return f.err
}

func (f *fakeApplier) ApplyInvoicePaymentFailed(_ context.Context, customerID string) error {
	f.calls = append(f.calls, applierCall{method: "invoiceFailed", customerID: customerID})
	return f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []*models.WebhookEventLog
}

func (f *fakeRecorder) Save(_ context.Context, entry *models.WebhookEventLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func testEvent(typ, payload string) *stripe.Event {
	return &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventType(typ),
		Data: &stripe.EventData{Raw: json.RawMessage(payload)},
	}
}

func TestHandle_DispatchesCheckoutCompleted(t *testing.T) {
	applier := &fakeApplier{}
	rec := &fakeRecorder{}
	h := NewHandler(applier, rec, zap.NewNop().Sugar())

	err := h.Handle(context.Background(), testEvent("checkout.session.completed",
		`{"mode":"subscription","customer":{"id":"cus_1"},"subscription":{"id":"sub_1"},"metadata":{"userId":"u1"}}`))
	require.NoError(t, err)

	require.Len(t, applier.calls, 1)
	require.Equal(t, "checkout", applier.calls[0].method)
	require.Equal(t, "u1", applier.calls[0].userID)
	require.Equal(t, "cus_1", applier.calls[0].customerID)
	require.Equal(t, "sub_1", applier.calls[0].subID)
}

func TestHandle_LogsReceiptAndOutcome(t *testing.T) {
	applier := &fakeApplier{}
	rec := &fakeRecorder{}
	h := NewHandler(applier, rec, zap.NewNop().Sugar())

	err := h.Handle(context.Background(), testEvent("customer.subscription.deleted",
		`{"id":"sub_1","customer":{"id":"cus_1"}}`))
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.entries, 2)
	require.Equal(t, models.WebhookEventLogStatusReceived, rec.entries[0].Status)
	require.Equal(t, models.WebhookEventLogStatusHandled, rec.entries[1].Status)
	require.Equal(t, "evt_1", rec.entries[0].EventID)
	require.NotNil(t, rec.entries[0].CustomerID)
	require.Equal(t, "cus_1", *rec.entries[0].CustomerID)
}

func TestHandle_ApplierError_PropagatesAndLogsFailure(t *testing.T) {
	applier := &fakeApplier{err: errors.New("db down")}
	rec := &fakeRecorder{}
	h := NewHandler(applier, rec, zap.NewNop().Sugar())

	err := h.Handle(context.Background(), testEvent("invoice.payment_failed",
		`{"customer":{"id":"cus_1"}}`))
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.entries, 2)
	require.Equal(t, models.WebhookEventLogStatusHandleFailed, rec.entries[1].Status)
}

func TestHandle_UnhandledType_IsAcknowledged(t *testing.T) {
	applier := &fakeApplier{}
	rec := &fakeRecorder{}
	h := NewHandler(applier, rec, zap.NewNop().Sugar())

	err := h.Handle(context.Background(), testEvent("customer.created", `{}`))
	require.NoError(t, err)
	require.Empty(t, applier.calls)
}

func TestHandle_MalformedPayload_Fails(t *testing.T) {
	applier := &fakeApplier{}
	rec := &fakeRecorder{}
	h := NewHandler(applier, rec, zap.NewNop().Sugar())

	err := h.Handle(context.Background(), testEvent("customer.subscription.updated", `{"id":`))
	require.Error(t, err)
	require.Empty(t, applier.calls)
}
