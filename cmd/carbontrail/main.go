package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/carbontrail/carbontrail/internal/clock"
	"github.com/carbontrail/carbontrail/internal/config"
	"github.com/carbontrail/carbontrail/internal/migration"
	"github.com/carbontrail/carbontrail/internal/observability"
	"github.com/carbontrail/carbontrail/internal/scheduler"
	"github.com/carbontrail/carbontrail/internal/server"
	"github.com/carbontrail/carbontrail/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface plus the domain modules it depends on
		server.Module,

		// Background recalculation of stale draft reports
		scheduler.Module,
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
