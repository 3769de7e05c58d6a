package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/crownline/pageant/docs"
	"github.com/crownline/pageant/internal/app/api/handlers"
	mw "github.com/crownline/pageant/internal/app/api/middleware"
	"github.com/crownline/pageant/internal/app/service/purchase"
	"github.com/crownline/pageant/internal/app/service/reconcile"
	"github.com/crownline/pageant/internal/app/service/statistics"
	cfgpkg "github.com/crownline/pageant/pkg/config"
	metrics "github.com/crownline/pageant/pkg/metrics"
	"github.com/crownline/pageant/pkg/types"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(r *gin.Engine, log *zap.SugaredLogger, callbackHandler *handlers.PaymentCallbackHandler, initiator purchase.Initiator, reconciler reconcile.Reconciler, cfg *cfgpkg.Config, stats *statistics.Service) {
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

	// Gateway-facing entry points and the public tally carry no auth: the
	// gateway cannot present our tokens, and the IPN handler validates its
	// parameters restrictively instead.
	handlers.RegisterPaymentCallbackRoutes(apiV1.Group("/payments"), callbackHandler)
	handlers.RegisterTallyRoutes(apiV1, stats)

	// Purchase initiation requires an upstream-auth identity
	authed := apiV1.Group("/")
	authed.Use(mw.AuthMiddleware(cfg.Auth.JWTSecret))
	handlers.RegisterPurchaseRoutes(authed, initiator)

	// Admin surface
	admin := apiV1.Group("/admin")
	admin.Use(mw.AuthMiddleware(cfg.Auth.JWTSecret), mw.RequireRole(types.RoleAdmin))
	handlers.RegisterAdminRoutes(admin, reconciler, stats)
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
	fx.Provide(handlers.NewPaymentCallbackHandler),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
