package billing

import (
	"context"
	"errors"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	stripegw "github.com/hermahq/herma-backend/internal/platform/stripe"
	"github.com/hermahq/herma-backend/pkg/config"
	"github.com/hermahq/herma-backend/pkg/types"
)

type fakeGateway struct {
	foundCustomer *stripe.Customer
	findErr       error
	findCalls     int
	createCalls   int
	checkoutCalls []*stripegw.CheckoutSessionParams
	portalCalls   int
	portalReturn  string
}

func (f *fakeGateway) FindCustomerByEmail(_ context.Context, _ string) (*stripe.Customer, error) {
	f.findCalls++
	return f.foundCustomer, f.findErr
}

func (f *fakeGateway) CreateCustomer(_ context.Context, email, _ string) (*stripe.Customer, error) {
	f.createCalls++
	return &stripe.Customer{ID: "cus_created", Email: email}, nil
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, p *stripegw.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.checkoutCalls = append(f.checkoutCalls, p)
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

func (f *fakeGateway) CreatePortalSession(_ context.Context, _, returnURL string) (*stripe.BillingPortalSession, error) {
	f.portalCalls++
	f.portalReturn = returnURL
	return &stripe.BillingPortalSession{URL: "https://portal.example/ps_1"}, nil
}

func (f *fakeGateway) ActiveSubscription(_ context.Context, _ string) (*stripe.Subscription, error) {
	return nil, nil
}

func (f *fakeGateway) ConstructEvent(_ []byte, _ string) (stripe.Event, error) {
	return stripe.Event{}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.BaseURL = "https://herma.example"
	cfg.Plans = []*types.Plan{
		{ID: "pro-monthly", Name: "Pro", PriceID: "price_1", Interval: "month", AmountCents: 900, Currency: "usd"},
	}
	return cfg
}

func newTestService(gw stripegw.Gateway) *Service {
	return NewService(testConfig(), gw, zap.NewNop().Sugar())
}

func TestResolveCustomer_ExistingCustomerIsReused(t *testing.T) {
	gw := &fakeGateway{foundCustomer: &stripe.Customer{ID: "cus_existing"}}
	svc := newTestService(gw)

	id, err := svc.ResolveCustomer(context.Background(), "a@example.com", "u1")
	require.NoError(t, err)
	require.Equal(t, "cus_existing", id)
	require.Zero(t, gw.createCalls)
}

func TestResolveCustomer_CreatesOnFirstContact(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(gw)

	id, err := svc.ResolveCustomer(context.Background(), "a@example.com", "u1")
	require.NoError(t, err)
	require.Equal(t, "cus_created", id)
	require.Equal(t, 1, gw.createCalls)
}

func TestResolveCustomer_LookupErrorIsNotMaskedByCreate(t *testing.T) {
	gw := &fakeGateway{findErr: errors.New("provider down")}
	svc := newTestService(gw)

	_, err := svc.ResolveCustomer(context.Background(), "a@example.com", "u1")
	require.Error(t, err)
	require.Zero(t, gw.createCalls)
}

func TestCreateCheckoutSession_ValidationPrecedesProviderCalls(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(gw)

	_, err := svc.CreateCheckoutSession(context.Background(), &CheckoutSessionRequest{
		UserID:    "u1",
		UserEmail: "a@example.com",
		// PriceID missing
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, gw.findCalls)
	require.Empty(t, gw.checkoutCalls)
}

func TestCreateCheckoutSession_UnknownPriceID(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(gw)

	_, err := svc.CreateCheckoutSession(context.Background(), &CheckoutSessionRequest{
		UserID:    "u1",
		UserEmail: "a@example.com",
		PriceID:   "price_not_in_catalog",
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, gw.findCalls)
	require.Empty(t, gw.checkoutCalls)
}

func TestCreateCheckoutSession_DefaultsRedirectURLs(t *testing.T) {
	gw := &fakeGateway{foundCustomer: &stripe.Customer{ID: "cus_1"}}
	svc := newTestService(gw)

	res, err := svc.CreateCheckoutSession(context.Background(), &CheckoutSessionRequest{
		UserID:    "u1",
		UserEmail: "a@example.com",
		PriceID:   "price_1",
	})
	require.NoError(t, err)
	require.Equal(t, "cs_1", res.ID)
	require.Equal(t, "https://pay.example/cs_1", res.URL)

	require.Len(t, gw.checkoutCalls, 1)
	p := gw.checkoutCalls[0]
	require.Equal(t, "cus_1", p.CustomerID)
	require.Equal(t, "price_1", p.PriceID)
	require.Equal(t, "u1", p.UserID)
	require.Equal(t, "https://herma.example/checkout/success?session_id={CHECKOUT_SESSION_ID}", p.SuccessURL)
	require.Equal(t, "https://herma.example/pricing", p.CancelURL)
}

func TestCreatePortalSession(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(gw)

	url, err := svc.CreatePortalSession(context.Background(), "cus_1", "")
	require.NoError(t, err)
	require.Equal(t, "https://portal.example/ps_1", url)
	require.Equal(t, "https://herma.example/account", gw.portalReturn)

	_, err = svc.CreatePortalSession(context.Background(), "", "")
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, 1, gw.portalCalls)
}
