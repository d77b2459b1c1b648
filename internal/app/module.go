package app

import (
	"time"

	"github.com/hermahq/herma-backend/internal/app/api/server"
	"github.com/hermahq/herma-backend/internal/app/service/billing"
	"github.com/hermahq/herma-backend/internal/app/service/download"
	"github.com/hermahq/herma-backend/internal/app/service/statistics"
	"github.com/hermahq/herma-backend/internal/app/service/subscription"
	"github.com/hermahq/herma-backend/internal/app/service/webhookevent"
	"github.com/hermahq/herma-backend/internal/platform/db"
	stripegw "github.com/hermahq/herma-backend/internal/platform/stripe"
	"github.com/hermahq/herma-backend/pkg/config"
	"github.com/hermahq/herma-backend/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	stripegw.Module,
	server.Module,
	subscription.Module,
	webhookevent.Module,
	billing.Module,
	download.Module,
	statistics.Module,
)
