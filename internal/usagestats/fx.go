package usagestats

import "go.uber.org/fx"

var Module = fx.Module("usagestats",
	fx.Provide(NewTracker),
)
