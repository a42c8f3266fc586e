package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomlease/internal/config"
	"github.com/smallbiznis/roomlease/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
		if err := Apply(conn); err != nil {
			return err
		}
		if !cfg.SeedDemoData {
			return nil
		}
		return seed.EnsureDemoData(conn, genID, log)
	}),
)
