package admin

import (
	"github.com/pankaj-raikar/taskhive/internal/admin/repository"
	"github.com/pankaj-raikar/taskhive/internal/admin/service"
	"go.uber.org/fx"
)

var Module = fx.Module("admin.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
