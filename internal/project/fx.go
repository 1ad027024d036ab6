package project

import (
	"github.com/pankaj-raikar/taskhive/internal/project/repository"
	"github.com/pankaj-raikar/taskhive/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
