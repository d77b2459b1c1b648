package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/hermahq/herma-backend/internal/models"
	stripegw "github.com/hermahq/herma-backend/internal/platform/stripe"
	"github.com/hermahq/herma-backend/pkg/logctx"
	"github.com/hermahq/herma-backend/pkg/tool"
	"github.com/hermahq/herma-backend/pkg/types"
)

var ErrRecordNotFound = errors.New("subscription record not found")

// Service owns all writes to the user subscription record and answers
// status queries. Writes come exclusively from verified webhook events and
// operator grants; every handler sets provider-reported absolute values, so
// re-applying a delivered event is a no-op.
type Service struct {
	store Store
	gw    stripegw.Gateway
	log   *zap.SugaredLogger
}

func NewService(store Store, gw stripegw.Gateway, log *zap.SugaredLogger) *Service {
	return &Service{store: store, gw: gw, log: log}
}

// ApplyCheckoutCompleted upserts the record for userID after a completed
// subscription checkout. This is the only path that creates records and the
// only path that binds a customer id to a user.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, userID, customerID, subscriptionID string) error {
	if userID == "" {
		return fmt.Errorf("checkout completed event without userId metadata")
	}

	rec, err := s.store.GetByUserID(ctx, userID)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to load record for user %s: %w", userID, err)
	}

	// At most one record per customer id. A checkout carrying a customer
	// already bound to another user does not bind it again; later events for
	// that customer must keep resolving to a single record.
	if customerID != "" {
		owner, oerr := s.store.GetByCustomerID(ctx, customerID)
		if oerr != nil && !IsNotFound(oerr) {
			return fmt.Errorf("failed to look up record by customer %s: %w", customerID, oerr)
		}
		if owner != nil && owner.UserID != userID {
			logctx.FromCtx(ctx, s.log).Errorw("customer already bound to another user, refusing to bind",
				"customer_id", customerID, "bound_user_id", owner.UserID, "event_user_id", userID)
			customerID = ""
		}
	}

	if rec == nil || IsNotFound(err) {
		created := &models.UserSubscription{
			ID:     tool.GenerateUUIDV7(),
			UserID: userID,
			Status: types.SubscriptionStatusActive,
			Extra:  datatypes.JSON([]byte(`{}`)),
		}
		if customerID != "" {
			created.CustomerID = lo.ToPtr(customerID)
		}
		if subscriptionID != "" {
			created.SubscriptionID = lo.ToPtr(subscriptionID)
		}
		if err := s.store.Create(ctx, created); err != nil {
			return err
		}
		s.store.SaveLog(ctx, changeLog(userID, types.SubscriptionChangeReasonCheckout, nil, created))
		return nil
	}

	fields := map[string]any{
		"status": types.SubscriptionStatusActive,
	}
	if rec.CustomerID == nil || *rec.CustomerID == "" {
		if customerID != "" {
			fields["customer_id"] = customerID
		}
	} else if customerID != "" && *rec.CustomerID != customerID {
		// Customer ids are write-once; a second checkout under a different
		// customer keeps the original binding.
		logctx.FromCtx(ctx, s.log).Warnw("checkout customer differs from bound customer, keeping original",
			"user_id", userID, "bound", *rec.CustomerID, "event", customerID)
	}
	if subscriptionID != "" {
		fields["subscription_id"] = subscriptionID
	}
	return s.update(ctx, rec, fields, types.SubscriptionChangeReasonCheckout)
}

// ApplySubscriptionChanged records the provider-reported status for the
// subscription bound to customerID.
func (s *Service) ApplySubscriptionChanged(ctx context.Context, customerID, subscriptionID string, status types.SubscriptionStatus) error {
	return s.applyByCustomer(ctx, customerID, types.SubscriptionChangeReasonProviderSync, map[string]any{
		"status":          status,
		"subscription_id": subscriptionID,
	})
}

// ApplySubscriptionDeleted marks the record canceled and clears the
// subscription id.
func (s *Service) ApplySubscriptionDeleted(ctx context.Context, customerID string) error {
	return s.applyByCustomer(ctx, customerID, types.SubscriptionChangeReasonProviderDrop, map[string]any{
		"status":          types.SubscriptionStatusCanceled,
		"subscription_id": nil,
	})
}

// ApplyInvoicePaid reactivates the record and stamps the payment time.
func (s *Service) ApplyInvoicePaid(ctx context.Context, customerID string, paidAt time.Time) error {
	return s.applyByCustomer(ctx, customerID, types.SubscriptionChangeReasonInvoicePaid, map[string]any{
		"status":          types.SubscriptionStatusActive,
		"last_payment_at": paidAt,
	})
}

// ApplyInvoicePaymentFailed flags the record; no other field changes.
func (s *Service) ApplyInvoicePaymentFailed(ctx context.Context, customerID string) error {
	return s.applyByCustomer(ctx, customerID, types.SubscriptionChangeReasonInvoiceFailed, map[string]any{
		"status": types.SubscriptionStatusPaymentFailed,
	})
}

// Grant gives userID an active plan without a provider subscription
// (complimentary access issued by an operator).
func (s *Service) Grant(ctx context.Context, userID, operatorID string) error {
	if userID == "" {
		return fmt.Errorf("invalid params: userID required")
	}

	rec, err := s.store.GetByUserID(ctx, userID)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to load record for user %s: %w", userID, err)
	}

	extra := datatypes.JSON([]byte(fmt.Sprintf(`{"granted_by":%q}`, operatorID)))
	if rec == nil || IsNotFound(err) {
		created := &models.UserSubscription{
			ID:     tool.GenerateUUIDV7(),
			UserID: userID,
			Status: types.SubscriptionStatusActive,
			Extra:  extra,
		}
		if err := s.store.Create(ctx, created); err != nil {
			return err
		}
		s.store.SaveLog(ctx, changeLog(userID, types.SubscriptionChangeReasonGrant, nil, created))
		return nil
	}

	return s.update(ctx, rec, map[string]any{
		"status": types.SubscriptionStatusActive,
		"extra":  extra,
	}, types.SubscriptionChangeReasonGrant)
}

// applyByCustomer resolves the record owning customerID and merges fields
// into it. A missing record is logged and acknowledged as a no-op so the
// provider does not retry a delivery that will never resolve.
func (s *Service) applyByCustomer(ctx context.Context, customerID string, reason types.SubscriptionChangeReason, fields map[string]any) error {
	if customerID == "" {
		logctx.FromCtx(ctx, s.log).Warnw("event without customer id, ignoring", "reason", reason)
		return nil
	}

	rec, err := s.store.GetByCustomerID(ctx, customerID)
	if err != nil {
		if IsNotFound(err) {
			logctx.FromCtx(ctx, s.log).Infow("no record for customer, ignoring event",
				"customer_id", customerID, "reason", reason)
			return nil
		}
		return fmt.Errorf("failed to look up record by customer %s: %w", customerID, err)
	}

	return s.update(ctx, rec, fields, reason)
}

func (s *Service) update(ctx context.Context, rec *models.UserSubscription, fields map[string]any, reason types.SubscriptionChangeReason) error {
	before := *rec

	if err := s.store.UpdateFields(ctx, rec.ID, fields); err != nil {
		return err
	}

	after, err := s.store.GetByUserID(ctx, rec.UserID)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to reload record after update: %v", err)
		after = rec
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription record updated",
		"user_id", rec.UserID, "reason", reason, "status", after.Status)
	s.store.SaveLog(ctx, changeLog(rec.UserID, reason, &before, after))
	return nil
}

func changeLog(userID string, reason types.SubscriptionChangeReason, before, after *models.UserSubscription) *models.SubscriptionLog {
	return &models.SubscriptionLog{
		ID:     tool.GenerateUUIDV7(),
		UserID: userID,
		Reason: reason,
		Before: datatypes.NewJSONType(before),
		After:  datatypes.NewJSONType(after),
		Extra:  datatypes.JSONMap{},
	}
}

// List returns filtered records for the admin surface.
func (s *Service) List(ctx context.Context, req *ListRecordsRequest) ([]*models.UserSubscription, int64, error) {
	return s.store.List(ctx, req)
}
