package webhookevent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
	stripe "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/hermahq/herma-backend/internal/models"
	"github.com/hermahq/herma-backend/pkg/logctx"
	"github.com/hermahq/herma-backend/pkg/types"
)

// Applier is the slice of the subscription service the dispatcher drives.
type Applier interface {
	ApplyCheckoutCompleted(ctx context.Context, userID, customerID, subscriptionID string) error
	ApplySubscriptionChanged(ctx context.Context, customerID, subscriptionID string, status types.SubscriptionStatus) error
	ApplySubscriptionDeleted(ctx context.Context, customerID string) error
	ApplyInvoicePaid(ctx context.Context, customerID string, paidAt time.Time) error
	ApplyInvoicePaymentFailed(ctx context.Context, customerID string) error
}

// EventRecorder persists delivery receipts and outcomes.
type EventRecorder interface {
	Save(ctx context.Context, entry *models.WebhookEventLog)
}

// Handler routes verified provider events to the subscription record
// updater. Dispatch is synchronous per delivery; each delivery is logged on
// receipt and again with its outcome.
type Handler struct {
	applier Applier
	events  EventRecorder
	Logger  *zap.SugaredLogger
}

func NewHandler(applier Applier, events EventRecorder, log *zap.SugaredLogger) *Handler {
	return &Handler{applier: applier, events: events, Logger: log}
}

func (h *Handler) Handle(ctx context.Context, raw *stripe.Event) (resErr error) {
	ev, decodeErr := Decode(raw)

	var traceID string
	if v, ok := ctx.Value("traceID").(string); ok {
		traceID = v
	}
	userID, customerID := attribution(ev)

	entry := func(status models.WebhookEventLogStatus, result map[string]any) *models.WebhookEventLog {
		e := &models.WebhookEventLog{
			EventID:    raw.ID,
			EventType:  string(raw.Type),
			TraceID:    traceID,
			ReceivedAt: time.Now(),
			Data:       datatypes.JSON(raw.Data.Raw),
			Status:     status,
		}
		if userID != "" {
			e.UserID = lo.ToPtr(userID)
		}
		if customerID != "" {
			e.CustomerID = lo.ToPtr(customerID)
		}
		if result != nil {
			resBytes, _ := json.Marshal(result)
			j := datatypes.JSON(resBytes)
			e.Result = &j
		}
		return e
	}

	h.events.Save(ctx, entry(models.WebhookEventLogStatusReceived, nil))

	defer func() {
		status := models.WebhookEventLogStatusHandled
		result := map[string]any{}
		if resErr != nil {
			status = models.WebhookEventLogStatusHandleFailed
			result["error"] = resErr.Error()
		}
		h.events.Save(ctx, entry(status, result))
	}()

	if decodeErr != nil {
		resErr = fmt.Errorf("failed to decode event %s: %w", raw.Type, decodeErr)
		return resErr
	}

	switch ev := ev.(type) {
	case CheckoutCompleted:
		resErr = h.applier.ApplyCheckoutCompleted(ctx, ev.UserID, ev.CustomerID, ev.SubscriptionID)
	case SubscriptionChanged:
		resErr = h.applier.ApplySubscriptionChanged(ctx, ev.CustomerID, ev.SubscriptionID, ev.Status)
	case SubscriptionDeleted:
		resErr = h.applier.ApplySubscriptionDeleted(ctx, ev.CustomerID)
	case InvoicePaid:
		resErr = h.applier.ApplyInvoicePaid(ctx, ev.CustomerID, ev.PaidAt)
	case InvoicePaymentFailed:
		resErr = h.applier.ApplyInvoicePaymentFailed(ctx, ev.CustomerID)
	case Unhandled:
		logctx.FromCtx(ctx, h.Logger).Infow("unhandled event type acknowledged", "type", ev.Type)
	}
	return resErr
}

func attribution(ev Event) (userID, customerID string) {
	switch ev := ev.(type) {
	case CheckoutCompleted:
		return ev.UserID, ev.CustomerID
	case SubscriptionChanged:
		return "", ev.CustomerID
	case SubscriptionDeleted:
		return "", ev.CustomerID
	case InvoicePaid:
		return "", ev.CustomerID
	case InvoicePaymentFailed:
		return "", ev.CustomerID
	}
	return "", ""
}
