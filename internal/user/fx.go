package user

import (
	"github.com/pankaj-raikar/taskhive/internal/user/repository"
	"github.com/pankaj-raikar/taskhive/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
