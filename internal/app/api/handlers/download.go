package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hermahq/herma-backend/internal/app/service/download"
	"github.com/hermahq/herma-backend/pkg/types"
)

// DownloadService mints and redeems short-lived artifact tokens.
type DownloadService interface {
	MintToken(ctx context.Context, userID string, platform types.Platform) (*download.TokenResult, error)
	Redeem(ctx context.Context, tokenString string, platform types.Platform) (string, error)
}

type downloadTokenRequest struct {
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
}

// @Summary      Create Download Token
// @Description  Issues a short-lived token for a paid user to download the desktop app.
// @Tags         Download
// @Accept       json
// @Produce      json
// @Param        request body downloadTokenRequest true "Download token request"
// @Success      200  {object}  download.TokenResult
// @Failure      400  {object}  map[string]string
// @Failure      402  {object}  map[string]string
// @Router       /api/v1/download/token [post]
func ApiCreateDownloadToken(svc DownloadService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req downloadTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := svc.MintToken(c.Request.Context(), req.UserID, types.Platform(req.Platform))
		if err != nil {
			switch {
			case errors.Is(err, download.ErrUnknownPlatform):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, download.ErrNotEntitled):
				c.JSON(http.StatusPaymentRequired, gin.H{"error": "active subscription required"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Download Artifact
// @Description  Redeems a download token and redirects to the artifact for the platform.
// @Tags         Download
// @Produce      json
// @Param        platform path  string true "Target platform"
// @Param        token    query string true "Download token"
// @Success      302
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/download/{platform} [get]
func ApiDownloadArtifact(svc DownloadService) gin.HandlerFunc {
	return func(c *gin.Context) {
		platform := types.Platform(c.Param("platform"))

		url, err := svc.Redeem(c.Request.Context(), c.Query("token"), platform)
		if err != nil {
			switch {
			case errors.Is(err, download.ErrUnknownPlatform):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, download.ErrInvalidToken):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.Redirect(http.StatusFound, url)
	}
}

func RegisterDownloadRoutes(r gin.IRouter, svc DownloadService) {
	r.POST("/token", ApiCreateDownloadToken(svc))
	r.GET("/:platform", ApiDownloadArtifact(svc))
}
