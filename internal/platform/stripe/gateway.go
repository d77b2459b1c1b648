package stripe

import (
	"context"

	stripe "github.com/stripe/stripe-go/v82"
)

// CheckoutSessionParams carries everything needed to open a hosted
// subscription checkout for a resolved customer.
type CheckoutSessionParams struct {
	CustomerID string
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// Gateway abstracts the payment provider API surface this service uses.
// Handlers and services receive it so tests can substitute fakes; the
// concrete client below is wired in once at process start.
type Gateway interface {
	// FindCustomerByEmail returns the first customer with an exact email
	// match, or nil when none exists.
	FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error)
	// CreateCustomer creates a customer with the user id attached as metadata.
	CreateCustomer(ctx context.Context, email, userID string) (*stripe.Customer, error)
	CreateCheckoutSession(ctx context.Context, p *CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
	// ActiveSubscription returns the customer's active subscription, or nil
	// when there is none.
	ActiveSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error)
	// ConstructEvent verifies the webhook signature over the exact payload
	// bytes and returns the parsed event.
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}
