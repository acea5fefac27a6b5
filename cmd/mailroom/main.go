package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/clock"
	"github.com/smallbiznis/mailroom/internal/config"
	"github.com/smallbiznis/mailroom/internal/migration"
	"github.com/smallbiznis/mailroom/internal/observability"
	"github.com/smallbiznis/mailroom/internal/scheduler"
	"github.com/smallbiznis/mailroom/internal/server"
	"github.com/smallbiznis/mailroom/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP API and the domain services behind it
		server.Module,

		// Background fee recalculation
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
