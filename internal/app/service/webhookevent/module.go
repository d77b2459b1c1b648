package webhookevent

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hermahq/herma-backend/internal/app/service/subscription"
)

// Module exposes the webhook event handler via Fx.
var Module = fx.Options(
	fx.Provide(NewLogService),
	fx.Provide(func(sub *subscription.Service, events *LogService, log *zap.SugaredLogger) *Handler {
		return NewHandler(sub, events, log)
	}),
)
