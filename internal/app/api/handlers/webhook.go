package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/hermahq/herma-backend/pkg/logctx"
)

// webhookMaxBodyBytes caps the payload we will read before signature verification.
const webhookMaxBodyBytes = int64(65536)

// EventVerifier checks the provider signature and parses the raw payload.
type EventVerifier interface {
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// EventHandler applies a verified provider event.
type EventHandler interface {
	Handle(ctx context.Context, event *stripe.Event) error
}

// @Summary      Stripe Webhook
// @Description  Verifies the provider signature and applies the event to local subscription state.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/webhook/stripe [post]
func ApiStripeWebhook(verifier EventVerifier, handler EventHandler, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, base)

		// The signature covers the exact bytes on the wire, so the body must
		// be read raw before any JSON parsing.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookMaxBodyBytes)
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}

		event, err := verifier.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			log.Warnw("webhook signature verification failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
			return
		}

		if err := handler.Handle(c.Request.Context(), &event); err != nil {
			log.Errorw("webhook handling failed", "eventId", event.ID, "eventType", event.Type, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "event handling failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func RegisterWebhookRoutes(r gin.IRouter, verifier EventVerifier, handler EventHandler, base *zap.SugaredLogger) {
	r.POST("/stripe", ApiStripeWebhook(verifier, handler, base))
}
