package types

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusFree          SubscriptionStatus = "free"
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusPaymentFailed SubscriptionStatus = "payment_failed"
	SubscriptionStatusCanceled      SubscriptionStatus = "canceled"
)

// Public maps the stored status to the user-facing one. A canceled
// subscription is presented as the free tier.
func (s SubscriptionStatus) Public() SubscriptionStatus {
	if s == SubscriptionStatusCanceled || s == "" {
		return SubscriptionStatusFree
	}
	return s
}

// Paid reports whether the status grants access to paid features.
func (s SubscriptionStatus) Paid() bool {
	return s == SubscriptionStatusActive
}

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonCheckout      SubscriptionChangeReason = "checkoutCompleted"
	SubscriptionChangeReasonProviderSync  SubscriptionChangeReason = "providerSync"
	SubscriptionChangeReasonProviderDrop  SubscriptionChangeReason = "providerDelete"
	SubscriptionChangeReasonInvoicePaid   SubscriptionChangeReason = "invoicePaid"
	SubscriptionChangeReasonInvoiceFailed SubscriptionChangeReason = "invoiceFailed"
	SubscriptionChangeReasonGrant         SubscriptionChangeReason = "grant"
)

type UserSubscriptionInfo struct {
	Status          SubscriptionStatus `json:"status"`
	CustomerID      string             `json:"customerId,omitempty"`
	SubscriptionID  string             `json:"subscriptionId,omitempty"`
	NextBillingDate *time.Time         `json:"nextBillingDate,omitempty"`
	AmountCents     *int64             `json:"amount,omitempty"`
	Currency        string             `json:"currency,omitempty"`
}
