package todo

import (
	"github.com/pankaj-raikar/taskhive/internal/todo/repository"
	"github.com/pankaj-raikar/taskhive/internal/todo/service"
	"go.uber.org/fx"
)

var Module = fx.Module("todo.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
