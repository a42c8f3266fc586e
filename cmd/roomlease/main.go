package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/config"
	"github.com/smallbiznis/roomlease/internal/migration"
	"github.com/smallbiznis/roomlease/internal/observability"
	"github.com/smallbiznis/roomlease/internal/scheduler"
	"github.com/smallbiznis/roomlease/internal/server"
	"github.com/smallbiznis/roomlease/pkg/db"
	"go.uber.org/fx"
)

// All-in-one binary: HTTP API, migrations and the overdue sweep when enabled.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
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
