package billing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	stripegw "github.com/hermahq/herma-backend/internal/platform/stripe"
	"github.com/hermahq/herma-backend/pkg/config"
	"github.com/hermahq/herma-backend/pkg/logctx"
)

// ErrValidation marks request errors the caller can fix; handlers map it to
// a 400-class response before any provider call is attempted.
var ErrValidation = errors.New("invalid request")

type CheckoutSessionRequest struct {
	UserID     string `json:"userId"`
	UserEmail  string `json:"userEmail"`
	PriceID    string `json:"priceId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

func (r *CheckoutSessionRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: missing userId", ErrValidation)
	}
	if r.UserEmail == "" {
		return fmt.Errorf("%w: missing userEmail", ErrValidation)
	}
	if r.PriceID == "" {
		return fmt.Errorf("%w: missing priceId", ErrValidation)
	}
	return nil
}

type CheckoutSessionResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Service creates provider-hosted checkout and billing portal sessions.
// Provider errors are wrapped and surfaced; nothing here retries, since a
// silent retry of a payment operation risks a double charge.
type Service struct {
	cfg *config.Config
	gw  stripegw.Gateway
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, gw stripegw.Gateway, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, gw: gw, log: log}
}

// ResolveCustomer returns a stable provider customer id for an email,
// creating the customer on first contact.
//
// Known race: two concurrent resolutions for a brand-new email can both miss
// the lookup and create two customers. Deduping after the fact is a product
// decision that has not been made, so the race is tolerated; the local
// record only ever binds one customer id (first writer wins).
func (s *Service) ResolveCustomer(ctx context.Context, email, userID string) (string, error) {
	if email == "" {
		return "", fmt.Errorf("%w: missing userEmail", ErrValidation)
	}

	cust, err := s.gw.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up customer: %w", err)
	}
	if cust != nil {
		return cust.ID, nil
	}

	created, err := s.gw.CreateCustomer(ctx, email, userID)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("created provider customer", "customer_id", created.ID, "user_id", userID)
	return created.ID, nil
}

// CreateCheckoutSession resolves the customer and opens a subscription-mode
// checkout with the user id embedded in session metadata for later webhook
// attribution.
func (s *Service) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.cfg.GetPlanByPriceID(req.PriceID) == nil {
		return nil, fmt.Errorf("%w: unknown priceId %s", ErrValidation, req.PriceID)
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = s.cfg.App.BaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.cfg.App.BaseURL + "/pricing"
	}

	customerID, err := s.ResolveCustomer(ctx, req.UserEmail, req.UserID)
	if err != nil {
		return nil, err
	}

	sess, err := s.gw.CreateCheckoutSession(ctx, &stripegw.CheckoutSessionParams{
		CustomerID: customerID,
		PriceID:    req.PriceID,
		UserID:     req.UserID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("checkout session created",
		"session_id", sess.ID, "user_id", req.UserID, "price_id", req.PriceID)
	return &CheckoutSessionResult{ID: sess.ID, URL: sess.URL}, nil
}

// CreatePortalSession opens the provider's hosted billing portal for an
// existing customer.
func (s *Service) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if customerID == "" {
		return "", fmt.Errorf("%w: missing customerId", ErrValidation)
	}
	if returnURL == "" {
		returnURL = s.cfg.App.BaseURL + "/account"
	}

	sess, err := s.gw.CreatePortalSession(ctx, customerID, returnURL)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return sess.URL, nil
}
