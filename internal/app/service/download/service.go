package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"

	"github.com/hermahq/herma-backend/internal/app/service/subscription"
	"github.com/hermahq/herma-backend/pkg/config"
	"github.com/hermahq/herma-backend/pkg/logctx"
	"github.com/hermahq/herma-backend/pkg/types"
)

var (
	ErrNotEntitled     = errors.New("user is not on a paid plan")
	ErrInvalidToken    = errors.New("invalid download token")
	ErrUnknownPlatform = errors.New("unknown platform")
)

// StatusProvider answers the current plan for a user.
type StatusProvider interface {
	GetStatus(ctx context.Context, userID string) (*types.UserSubscriptionInfo, error)
}

type TokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service gates paid installer downloads. A user on a paid plan mints a
// short-lived signed token bound to one platform; redeeming it yields the
// artifact URL for that platform only.
type Service struct {
	cfg    *config.Config
	status StatusProvider
	log    *zap.SugaredLogger
}

func NewService(cfg *config.Config, status StatusProvider, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, status: status, log: log}
}

func (s *Service) MintToken(ctx context.Context, userID string, platform types.Platform) (*TokenResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing userId")
	}
	if !platform.Valid() || s.cfg.GetArtifactURL(platform) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}

	info, err := s.status.GetStatus(ctx, userID)
	if err != nil {
		if errors.Is(err, subscription.ErrRecordNotFound) {
			return nil, ErrNotEntitled
		}
		return nil, fmt.Errorf("failed to check entitlement: %w", err)
	}
	if !info.Status.Paid() {
		return nil, ErrNotEntitled
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"platform": string(platform),
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Download.TokenSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign download token: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("download token minted", "user_id", userID, "platform", platform)
	return &TokenResult{Token: signed, ExpiresAt: expiresAt}, nil
}

// Redeem verifies a token for the requested platform and returns the
// artifact URL. Tokens minted for a different platform are rejected.
func (s *Service) Redeem(ctx context.Context, tokenString string, platform types.Platform) (string, error) {
	if !platform.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	url := s.cfg.GetArtifactURL(platform)
	if url == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}

	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Download.TokenSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if p, _ := claims["platform"].(string); p != string(platform) {
		return "", ErrInvalidToken
	}

	return url, nil
}

func (s *Service) tokenTTL() time.Duration {
	minutes := s.cfg.Download.TokenTTLMinutes
	if minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}
