package auth

import (
	"github.com/pankaj-raikar/taskhive/internal/auth/repository"
	"github.com/pankaj-raikar/taskhive/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
