package tag

import (
	"github.com/pankaj-raikar/taskhive/internal/tag/repository"
	"github.com/pankaj-raikar/taskhive/internal/tag/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tag.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
