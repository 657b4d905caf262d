// Package observability bundles logging, tracing and metrics for the app.
package observability

import (
	"github.com/bomizzel/helpdesk/internal/config"
	"github.com/bomizzel/helpdesk/internal/observability/logger"
	"github.com/bomizzel/helpdesk/internal/observability/metrics"
	"github.com/bomizzel/helpdesk/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	logger.Module,
	fx.Provide(tracing.FromAppConfig),
	fx.Invoke(func(lc fx.Lifecycle, cfg tracing.Config, log *zap.Logger) error {
		_, err := tracing.NewProvider(lc, cfg, log)
		return err
	}),
	fx.Provide(func(cfg config.Config) *metrics.LifecycleMetrics {
		return metrics.Lifecycle(metrics.Config{
			ServiceName: "helpdesk",
			Environment: cfg.Environment,
		})
	}),
)
