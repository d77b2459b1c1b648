package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hermahq/herma-backend/internal/app/service/billing"
	"github.com/hermahq/herma-backend/internal/app/service/subscription"
	"github.com/hermahq/herma-backend/pkg/types"
)

// CheckoutService is the slice of the billing service these handlers need.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, req *billing.CheckoutSessionRequest) (*billing.CheckoutSessionResult, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// StatusQuerier answers the current plan for a user.
type StatusQuerier interface {
	GetStatus(ctx context.Context, userID string) (*types.UserSubscriptionInfo, error)
}

type portalSessionRequest struct {
	CustomerID string `json:"customerId"`
	ReturnURL  string `json:"returnUrl"`
}

// @Summary      Create Checkout Session
// @Description  Starts a provider-hosted subscription checkout and returns the session id and redirect URL.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body billing.CheckoutSessionRequest true "Checkout session request"
// @Success      200  {object}  billing.CheckoutSessionResult
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/billing/checkout-session [post]
func ApiCreateCheckoutSession(svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req billing.CheckoutSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := svc.CreateCheckoutSession(c.Request.Context(), &req)
		if err != nil {
			if errors.Is(err, billing.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Create Billing Portal Session
// @Description  Opens the provider-hosted billing portal for an existing customer.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body portalSessionRequest true "Portal session request"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/billing/portal-session [post]
func ApiCreatePortalSession(svc CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req portalSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		url, err := svc.CreatePortalSession(c.Request.Context(), req.CustomerID, req.ReturnURL)
		if err != nil {
			if errors.Is(err, billing.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// @Summary      Subscription Status
// @Description  Returns the user's current plan, preferring live provider data over the cached record.
// @Tags         Billing
// @Produce      json
// @Param        userId path string true "User id"
// @Success      200  {object}  types.UserSubscriptionInfo
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/billing/subscription-status/{userId} [get]
func ApiSubscriptionStatus(svc StatusQuerier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")

		info, err := svc.GetStatus(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, subscription.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func RegisterBillingRoutes(r gin.IRouter, checkout CheckoutService, status StatusQuerier) {
	r.POST("/checkout-session", ApiCreateCheckoutSession(checkout))
	r.POST("/portal-session", ApiCreatePortalSession(checkout))
	r.GET("/subscription-status/:userId", ApiSubscriptionStatus(status))
}
