package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/audit"
	"github.com/smallbiznis/roomlease/internal/authorization"
	"github.com/smallbiznis/roomlease/internal/clock"
	"github.com/smallbiznis/roomlease/internal/config"
	"github.com/smallbiznis/roomlease/internal/invoice"
	"github.com/smallbiznis/roomlease/internal/observability"
	"github.com/smallbiznis/roomlease/internal/ratelimit"
	"github.com/smallbiznis/roomlease/internal/scheduler"
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

		// Domain services required by the sweep
		authorization.Module,
		audit.Module,
		invoice.Module,
		ratelimit.Module,

		// No server module!
		scheduler.Module,
		fx.Decorate(forceEnabled),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}

// forceEnabled runs the sweep regardless of OVERDUE_SWEEP_ENABLED; this
// binary exists only to run it.
func forceEnabled(cfg scheduler.Config) scheduler.Config {
	cfg.Enabled = true
	return cfg
}
