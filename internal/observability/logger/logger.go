// Package logger builds the process zap logger and enriches entries with
// request and trace identity.
package logger

import (
	"context"

	"github.com/bomizzel/helpdesk/internal/config"
	obscontext "github.com/bomizzel/helpdesk/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// New builds the root logger for the configured environment and installs
// it as the zap global.
func New(cfg config.Config) (*zap.Logger, error) {
	var log *zap.Logger
	var err error
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("service", "helpdesk"), zap.String("env", cfg.Environment))
	zap.ReplaceGlobals(log)
	return log, nil
}

// FromContext returns the global logger with trace and request identity
// fields attached when the context carries them.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		log = log.With(
			zap.String("trace_id", span.TraceID().String()),
			zap.String("span_id", span.SpanID().String()),
		)
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	if tenantID := obscontext.TenantIDFromContext(ctx); tenantID != "" {
		log = log.With(zap.String("tenant_id", tenantID))
	}
	if actorType, actorID := obscontext.ActorFromContext(ctx); actorType != "" {
		log = log.With(zap.String("actor_type", actorType))
		if actorID != "" {
			log = log.With(zap.String("actor_id", actorID))
		}
	}
	return log
}

var Module = fx.Module("logger",
	fx.Provide(New),
)
