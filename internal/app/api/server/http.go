package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hermahq/herma-backend/docs"
	"github.com/hermahq/herma-backend/internal/app/api/handlers"
	"github.com/hermahq/herma-backend/internal/app/service/billing"
	"github.com/hermahq/herma-backend/internal/app/service/download"
	"github.com/hermahq/herma-backend/internal/app/service/statistics"
	subsvc "github.com/hermahq/herma-backend/internal/app/service/subscription"
	"github.com/hermahq/herma-backend/internal/app/service/webhookevent"
	stripegw "github.com/hermahq/herma-backend/internal/platform/stripe"
	cfgpkg "github.com/hermahq/herma-backend/pkg/config"

	mw "github.com/hermahq/herma-backend/internal/app/api/middleware"

	metrics "github.com/hermahq/herma-backend/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	if len(cfg.App.AllowedOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.App.AllowedOrigins
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "Stripe-Signature")
		r.Use(cors.New(corsCfg))
	}
	return r
}

func registerRoutes(
	r *gin.Engine,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	gw stripegw.Gateway,
	sub *subsvc.Service,
	bil *billing.Service,
	dl *download.Service,
	wh *webhookevent.Handler,
	stats *statistics.Service,
) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())

	// Billing APIs
	handlers.RegisterBillingRoutes(apiV1.Group("/billing"), bil, sub)

	// Provider webhook: the signature covers the raw body, so the group gets
	// no body-touching middleware.
	handlers.RegisterWebhookRoutes(apiV1.Group("/webhook"), gw, wh, log)

	// Desktop app downloads
	handlers.RegisterDownloadRoutes(apiV1.Group("/download"), dl)

	// Admin APIs
	handlers.RegisterAdminRoutes(apiV1.Group("/admin"), sub, stats)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
