package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/hermahq/herma-backend/internal/app/service/statistics"
	subsvc "github.com/hermahq/herma-backend/internal/app/service/subscription"
	models "github.com/hermahq/herma-backend/internal/models"
	"github.com/hermahq/herma-backend/pkg/response"
	"github.com/hermahq/herma-backend/pkg/types"
)

type ListSubscriptionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type SubscriptionItem struct {
	ID             string                   `json:"id"`
	UserID         string                   `json:"user_id"`
	CustomerID     *string                  `json:"customer_id"`
	SubscriptionID *string                  `json:"subscription_id"`
	Status         types.SubscriptionStatus `json:"status"`
	LastPaymentAt  *time.Time               `json:"last_payment_at"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

func toSubscriptionItem(m *models.UserSubscription) *SubscriptionItem {
	return &SubscriptionItem{
		ID:             m.ID,
		UserID:         m.UserID,
		CustomerID:     m.CustomerID,
		SubscriptionID: m.SubscriptionID,
		Status:         m.Status,
		LastPaymentAt:  m.LastPaymentAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type ListSubscriptionsResponse struct {
	Items []*SubscriptionItem `json:"items"`
	Total int64               `json:"total"`
}

// @Summary      List User Subscriptions (Admin)
// @Description  Retrieves a paginated and filterable list of user subscription records.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListSubscriptionsRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListSubscriptions
// @Router       /api/v1/admin/list_user_subscriptions [post]
func ApiListSubscriptions(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListSubscriptionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		listReq := &subsvc.ListRecordsRequest{Filters: req.Filters, From: req.From, Size: req.Size, SortBy: req.SortBy, SortOrder: req.SortOrder}
		items, total, err := sub.List(c.Request.Context(), listReq)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		views := lo.Map(items, func(it *models.UserSubscription, _ int) *SubscriptionItem { return toSubscriptionItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListSubscriptionsResponse{Items: views, Total: total}))
	}
}

// @Summary      Get Subscriber Statistics (Admin)
// @Description  Retrieves daily subscriber statistics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.SubscriberStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespSubscriberStatistic
// @Router       /api/v1/admin/get_subscriber_statistic [post]
func ApiGetSubscriberStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.SubscriberStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetSubscriberStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Grant Subscription (Admin)
// @Description  Marks a user's subscription active without a provider purchase.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body object true "Grant request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/grant_subscription [post]
func ApiGrantSubscription(sub *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID     string `json:"user_id"`
			OperatorID string `json:"operator_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.UserID == "" || req.OperatorID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id or operator_id"))
			return
		}
		if err := sub.Grant(c.Request.Context(), req.UserID, req.OperatorID); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterAdminRoutes(r gin.IRouter, sub *subsvc.Service, stats *statistics.Service) {
	r.POST("/list_user_subscriptions", ApiListSubscriptions(sub))
	r.POST("/get_subscriber_statistic", ApiGetSubscriberStatistic(stats))
	r.POST("/grant_subscription", ApiGrantSubscription(sub))
}
