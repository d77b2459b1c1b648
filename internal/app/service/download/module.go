package download

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hermahq/herma-backend/internal/app/service/subscription"
	"github.com/hermahq/herma-backend/pkg/config"
)

// Module exposes the download gating service via Fx.
var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, sub *subscription.Service, log *zap.SugaredLogger) *Service {
		return NewService(cfg, sub, log)
	}),
)
