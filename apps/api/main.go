package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/config"
	"github.com/smallbiznis/roomlease/internal/migration"
	"github.com/smallbiznis/roomlease/internal/observability"
	"github.com/smallbiznis/roomlease/internal/server"
	"github.com/smallbiznis/roomlease/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// No scheduler; run apps/scheduler alongside for the overdue sweep.
		server.Module,
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
