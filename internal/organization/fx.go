package organization

import (
	"github.com/pankaj-raikar/taskhive/internal/organization/repository"
	"github.com/pankaj-raikar/taskhive/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
