package main

import (
	"github.com/bomizzel/helpdesk/internal/activity"
	"github.com/bomizzel/helpdesk/internal/archival"
	"github.com/bomizzel/helpdesk/internal/clock"
	"github.com/bomizzel/helpdesk/internal/config"
	"github.com/bomizzel/helpdesk/internal/export"
	"github.com/bomizzel/helpdesk/internal/importer"
	"github.com/bomizzel/helpdesk/internal/migration"
	"github.com/bomizzel/helpdesk/internal/observability"
	"github.com/bomizzel/helpdesk/internal/seed"
	"github.com/bomizzel/helpdesk/internal/server"
	"github.com/bomizzel/helpdesk/internal/tenant"
	"github.com/bomizzel/helpdesk/internal/usagestats"
	"github.com/bomizzel/helpdesk/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(migration.RunMigrations),
		fx.Invoke(seed.EnsureDefaultTenant),

		tenant.Module,
		usagestats.Module,
		activity.Module,
		archival.Module,
		export.Module,
		importer.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server, engine *gin.Engine) {
			s.RegisterAPIRoutes(engine)
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
