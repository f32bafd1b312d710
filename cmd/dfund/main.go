package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/dfund/marketplace/internal/application"
	"github.com/dfund/marketplace/internal/audit"
	"github.com/dfund/marketplace/internal/auth"
	"github.com/dfund/marketplace/internal/clock"
	"github.com/dfund/marketplace/internal/config"
	"github.com/dfund/marketplace/internal/migration"
	"github.com/dfund/marketplace/internal/notification"
	"github.com/dfund/marketplace/internal/observability"
	"github.com/dfund/marketplace/internal/opportunity"
	"github.com/dfund/marketplace/internal/providers"
	"github.com/dfund/marketplace/internal/ratelimit"
	"github.com/dfund/marketplace/internal/scheduler"
	"github.com/dfund/marketplace/internal/server"
	"github.com/dfund/marketplace/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		audit.Module,
		auth.Module,
		opportunity.Module,
		application.Module,
		providers.Module,
		notification.Module,
		ratelimit.Module,
		scheduler.Module,

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
