package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/billingrelay/internal/config"
	"github.com/smallbiznis/billingrelay/internal/observability"
	obsmiddleware "github.com/smallbiznis/billingrelay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/billingrelay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/billingrelay/internal/observability/tracing"
	"github.com/smallbiznis/billingrelay/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type webhookIngester interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (webhook.Result, error)
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	webhookSvc webhookIngester
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	WebhookSvc *webhook.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("http"),
		webhookSvc: p.WebhookSvc,
	}

	svc.registerHealthRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	for _, path := range []string{"/health", "/healthz", "/api/health"} {
		s.engine.GET(path, s.Health)
	}
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/api/payments/webhooks/:provider", s.HandlePaymentWebhook)
	s.engine.POST("/webhooks/:provider", s.HandlePaymentWebhook)

	// Paths registered with providers before the generic route existed.
	s.engine.POST("/api/paystack/webhook", s.handleProviderWebhook("paystack"))
	s.engine.POST("/api/flutterwave/webhook", s.handleProviderWebhook("flutterwave"))
}
