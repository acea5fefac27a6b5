package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mailroom/internal/clock"
	"github.com/smallbiznis/mailroom/internal/config"
	"github.com/smallbiznis/mailroom/internal/fee"
	"github.com/smallbiznis/mailroom/internal/observability"
	"github.com/smallbiznis/mailroom/internal/scheduler"
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

		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by scheduler
		fee.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

// Node 2 keeps scheduler ids disjoint from the API process.
func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
