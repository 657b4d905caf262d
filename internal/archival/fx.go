package archival

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("archival",
	fx.Provide(FromAppConfig),
	fx.Provide(NewCandidateSelector),
	fx.Provide(NewExecutor),
	fx.Provide(NewRunner),
	fx.Provide(NewScheduler),
	fx.Invoke(runScheduler),
)

func runScheduler(lc fx.Lifecycle, scheduler *Scheduler, cfg Config) {
	if !cfg.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}
