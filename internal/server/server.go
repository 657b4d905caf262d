package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bomizzel/helpdesk/internal/activity"
	"github.com/bomizzel/helpdesk/internal/archival"
	"github.com/bomizzel/helpdesk/internal/config"
	"github.com/bomizzel/helpdesk/internal/export"
	"github.com/bomizzel/helpdesk/internal/importer"
	"github.com/bomizzel/helpdesk/internal/observability/logger"
	"github.com/bomizzel/helpdesk/internal/observability/metrics"
	"github.com/bomizzel/helpdesk/internal/observability/tracing"
	tenantdomain "github.com/bomizzel/helpdesk/internal/tenant/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server carries the HTTP handlers and their collaborators.
type Server struct {
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	tenants    tenantdomain.Repository
	serializer *export.Serializer
	writer     *export.Writer
	importer   *importer.Executor
	ledger     activity.Ledger
	scheduler  *archival.Scheduler
	metrics    *metrics.LifecycleMetrics
}

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Tenants    tenantdomain.Repository
	Serializer *export.Serializer
	Writer     *export.Writer
	Importer   *importer.Executor
	Ledger     activity.Ledger
	Scheduler  *archival.Scheduler
	Metrics    *metrics.LifecycleMetrics `optional:"true"`
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("server"),
		tenants:    p.Tenants,
		serializer: p.Serializer,
		writer:     p.Writer,
		importer:   p.Importer,
		ledger:     p.Ledger,
		scheduler:  p.Scheduler,
		metrics:    p.Metrics,
	}
}

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(tracing.GinMiddleware())
	return engine
}

func (s *Server) RegisterAPIRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	{
		api.POST("/export", s.CreateExport)
		api.GET("/download/:exportId/:fileName", s.DownloadArtifact)
		api.POST("/import", s.ImportSnapshot)
		api.GET("/history/:tenantId", s.TenantHistory)
		api.POST("/cleanup", s.CleanupArtifacts)
		api.POST("/archival/run", s.TriggerArchival)
		api.GET("/archival/status", s.ArchivalStatus)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": config.Version})
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
