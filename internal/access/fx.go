package access

import (
	"github.com/pankaj-raikar/taskhive/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("access",
	fx.Provide(NewResolver),
	fx.Provide(func(l *ratelimit.Limiter) Limiter { return l }),
	fx.Provide(NewBuilder),
)
