package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/vendaro/vendaro/internal/clock"
	"github.com/vendaro/vendaro/internal/config"
	"github.com/vendaro/vendaro/internal/logger"
	"github.com/vendaro/vendaro/internal/migration"
	"github.com/vendaro/vendaro/internal/observability"
	"github.com/vendaro/vendaro/internal/server"
	"github.com/vendaro/vendaro/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
