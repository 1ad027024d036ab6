package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/pankaj-raikar/taskhive/internal/access"
	"github.com/pankaj-raikar/taskhive/internal/admin"
	"github.com/pankaj-raikar/taskhive/internal/auth"
	"github.com/pankaj-raikar/taskhive/internal/auth/session"
	"github.com/pankaj-raikar/taskhive/internal/config"
	"github.com/pankaj-raikar/taskhive/internal/migration"
	"github.com/pankaj-raikar/taskhive/internal/observability"
	"github.com/pankaj-raikar/taskhive/internal/organization"
	"github.com/pankaj-raikar/taskhive/internal/project"
	"github.com/pankaj-raikar/taskhive/internal/ratelimit"
	"github.com/pankaj-raikar/taskhive/internal/seed"
	"github.com/pankaj-raikar/taskhive/internal/server"
	"github.com/pankaj-raikar/taskhive/internal/signup"
	"github.com/pankaj-raikar/taskhive/internal/tag"
	"github.com/pankaj-raikar/taskhive/internal/todo"
	"github.com/pankaj-raikar/taskhive/internal/user"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/pankaj-raikar/taskhive/pkg/log"
	"github.com/pankaj-raikar/taskhive/pkg/telemetry"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		observability.Module,
		telemetry.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,

		// Domains
		auth.Module,
		session.Module,
		user.Module,
		organization.Module,
		signup.Module,
		ratelimit.Module,
		access.Module,
		admin.Module,
		project.Module,
		todo.Module,
		tag.Module,
		seed.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
