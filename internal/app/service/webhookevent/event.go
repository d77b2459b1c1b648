package webhookevent

import (
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/hermahq/herma-backend/pkg/types"
)

// Event is the closed set of provider notifications this service acts on.
// Raw provider payloads are decoded into exactly one variant at the boundary
// so downstream handlers never touch loosely-typed event data.
type Event interface {
	isEvent()
}

// CheckoutCompleted is a finished subscription-mode checkout. UserID comes
// from the session metadata written at session creation.
type CheckoutCompleted struct {
	UserID         string
	CustomerID     string
	SubscriptionID string
}

// SubscriptionChanged reports the provider's current status for a
// subscription (created or updated).
type SubscriptionChanged struct {
	CustomerID     string
	SubscriptionID string
	Status         types.SubscriptionStatus
}

// SubscriptionDeleted means the provider subscription no longer exists.
type SubscriptionDeleted struct {
	CustomerID string
}

type InvoicePaid struct {
	CustomerID string
	PaidAt     time.Time
}

type InvoicePaymentFailed struct {
	CustomerID string
}

// Unhandled covers every event type this service does not act on; it is
// acknowledged so the provider stops redelivering.
type Unhandled struct {
	Type string
}

func (CheckoutCompleted) isEvent()    {}
func (SubscriptionChanged) isEvent()  {}
func (SubscriptionDeleted) isEvent()  {}
func (InvoicePaid) isEvent()          {}
func (InvoicePaymentFailed) isEvent() {}
func (Unhandled) isEvent()            {}

// Decode maps a verified provider event onto the variant set above.
func Decode(e *stripe.Event) (Event, error) {
	switch e.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(e.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		if sess.Mode != stripe.CheckoutSessionModeSubscription {
			return Unhandled{Type: string(e.Type)}, nil
		}
		ev := CheckoutCompleted{UserID: sess.Metadata["userId"]}
		if sess.Customer != nil {
			ev.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionID = sess.Subscription.ID
		}
		return ev, nil

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(e.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		ev := SubscriptionChanged{
			SubscriptionID: sub.ID,
			Status:         mapProviderStatus(sub.Status),
		}
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		return ev, nil

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(e.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		ev := SubscriptionDeleted{}
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		return ev, nil

	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(e.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to parse invoice: %w", err)
		}
		ev := InvoicePaid{PaidAt: invoicePaidAt(&inv, e)}
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
		return ev, nil

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(e.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to parse invoice: %w", err)
		}
		ev := InvoicePaymentFailed{}
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
		return ev, nil
	}

	return Unhandled{Type: string(e.Type)}, nil
}

// mapProviderStatus maps the provider's subscription status onto the local
// enum: anything still billable is active, billing trouble is
// payment_failed, everything else is canceled.
func mapProviderStatus(st stripe.SubscriptionStatus) types.SubscriptionStatus {
	switch st {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return types.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return types.SubscriptionStatusPaymentFailed
	}
	return types.SubscriptionStatusCanceled
}

func invoicePaidAt(inv *stripe.Invoice, e *stripe.Event) time.Time {
	if inv.StatusTransitions != nil && inv.StatusTransitions.PaidAt > 0 {
		return time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
	}
	if e.Created > 0 {
		return time.Unix(e.Created, 0).UTC()
	}
	return time.Now().UTC()
}
