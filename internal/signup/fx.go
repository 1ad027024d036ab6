package signup

import (
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("signup",
	fx.Provide(
		fx.Annotate(
			NewProvisioner,
			fx.As(new(authdomain.LifecycleSink)),
		),
	),
)
