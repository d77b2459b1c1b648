package handlers

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterBillingRoutes(r.Group("/api/v1/billing"), &stubCheckout{}, &stubStatus{})
	RegisterWebhookRoutes(r.Group("/api/v1/webhook"), &stubVerifier{}, &stubEventHandler{}, zap.NewNop().Sugar())
	RegisterDownloadRoutes(r.Group("/api/v1/download"), &stubDownload{})

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/billing/checkout-session"))
	require.True(t, contains("POST /api/v1/billing/portal-session"))
	require.True(t, contains("GET /api/v1/billing/subscription-status/:userId"))
	require.True(t, contains("POST /api/v1/webhook/stripe"))
	require.True(t, contains("POST /api/v1/download/token"))
	require.True(t, contains("GET /api/v1/download/:platform"))
}
