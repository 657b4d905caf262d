package importer

import "go.uber.org/fx"

var Module = fx.Module("importer",
	fx.Provide(NewExecutor),
)
