package access

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/config"
	"github.com/pankaj-raikar/taskhive/internal/observability/metrics"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"go.uber.org/zap"
)

// Limiter is the rate-limit dependency the wrappers call for operations
// that declare a budget key.
type Limiter interface {
	Allow(ctx context.Context, key string, userID snowflake.ID) error
}

// Config declares the checks an operation opts into. Checks always run in
// the same order: dev gate, session resolution, authentication, role,
// rate limit, handler.
type Config struct {
	// DevOnly rejects the call outright in production.
	DevOnly bool

	// Role requires the caller's identity role ("user" or "admin").
	Role string

	// RateLimit names the per-user budget consumed before the handler
	// runs. Empty means unlimited.
	RateLimit string
}

// Func is a handler operating on the resolved caller context.
type Func[Req, Res any] func(ctx context.Context, ac *Context, req Req) (Res, error)

// Handler is a wrapped operation: raw session token in, result out.
type Handler[Req, Res any] func(ctx context.Context, token string, req Req) (Res, error)

// Builder wires the shared dependencies into wrapped operations.
type Builder struct {
	log      *zap.Logger
	cfg      *config.Config
	resolver *Resolver
	limiter  Limiter
	metrics  *metrics.Metrics
}

func NewBuilder(log *zap.Logger, cfg *config.Config, resolver *Resolver, limiter Limiter, m *metrics.Metrics) *Builder {
	return &Builder{
		log:      log.Named("access"),
		cfg:      cfg,
		resolver: resolver,
		limiter:  limiter,
		metrics:  m,
	}
}

// NewPublicQuery resolves the session when a token is present but never
// requires one; the handler sees an anonymous context otherwise.
func NewPublicQuery[Req, Res any](b *Builder, cfg Config, fn Func[Req, Res]) Handler[Req, Res] {
	return wrap(b, cfg, false, fn)
}

// NewAuthQuery requires an authenticated caller.
func NewAuthQuery[Req, Res any](b *Builder, cfg Config, fn Func[Req, Res]) Handler[Req, Res] {
	return wrap(b, cfg, true, fn)
}

// NewPublicMutation is a public operation with write semantics; rate
// limits declared in cfg still apply when the caller is authenticated.
func NewPublicMutation[Req, Res any](b *Builder, cfg Config, fn Func[Req, Res]) Handler[Req, Res] {
	return wrap(b, cfg, false, fn)
}

// NewAuthMutation requires an authenticated caller and consumes the
// declared rate-limit budget before running the handler.
func NewAuthMutation[Req, Res any](b *Builder, cfg Config, fn Func[Req, Res]) Handler[Req, Res] {
	return wrap(b, cfg, true, fn)
}

// PaginatedFunc is a handler that additionally receives the caller's page
// request, threaded through unchanged.
type PaginatedFunc[Req, Res any] func(ctx context.Context, ac *Context, req Req, p pagination.Pagination) (Res, error)

// PaginatedHandler is a wrapped paginated operation.
type PaginatedHandler[Req, Res any] func(ctx context.Context, token string, req Req, p pagination.Pagination) (Res, error)

// NewAuthPaginatedQuery is NewAuthQuery for listing operations; the page
// request rides alongside the operation arguments.
func NewAuthPaginatedQuery[Req, Res any](b *Builder, cfg Config, fn PaginatedFunc[Req, Res]) PaginatedHandler[Req, Res] {
	return wrapPaginated(b, cfg, true, fn)
}

// NewPublicPaginatedQuery is NewPublicQuery for listing operations.
func NewPublicPaginatedQuery[Req, Res any](b *Builder, cfg Config, fn PaginatedFunc[Req, Res]) PaginatedHandler[Req, Res] {
	return wrapPaginated(b, cfg, false, fn)
}

func wrapPaginated[Req, Res any](b *Builder, cfg Config, requireAuth bool, fn PaginatedFunc[Req, Res]) PaginatedHandler[Req, Res] {
	return func(ctx context.Context, token string, req Req, p pagination.Pagination) (Res, error) {
		inner := wrap(b, cfg, requireAuth, func(ctx context.Context, ac *Context, req Req) (Res, error) {
			return fn(ctx, ac, req, p)
		})
		return inner(ctx, token, req)
	}
}

// NewInternalQuery skips session resolution entirely. Internal operations
// are only reachable from in-process callers, never from a route.
func NewInternalQuery[Req, Res any](b *Builder, fn Func[Req, Res]) Handler[Req, Res] {
	return func(ctx context.Context, _ string, req Req) (Res, error) {
		return fn(ctx, &Context{}, req)
	}
}

// NewInternalMutation is NewInternalQuery with write semantics.
func NewInternalMutation[Req, Res any](b *Builder, fn Func[Req, Res]) Handler[Req, Res] {
	return NewInternalQuery(b, fn)
}

func wrap[Req, Res any](b *Builder, cfg Config, requireAuth bool, fn Func[Req, Res]) Handler[Req, Res] {
	return func(ctx context.Context, token string, req Req) (Res, error) {
		var zero Res

		if cfg.DevOnly && b.cfg.IsProduction() {
			b.metrics.RecordGuardDenial(ctx, "dev_only")
			return zero, apperr.Forbidden("This operation is not available")
		}

		ac, err := b.resolver.Resolve(ctx, token)
		if err != nil {
			return zero, err
		}

		if requireAuth {
			if err := b.AssertAuthenticated(ctx, ac); err != nil {
				return zero, err
			}
		}
		if cfg.Role != "" {
			if err := b.AssertRole(ctx, ac, cfg.Role); err != nil {
				return zero, err
			}
		}

		if cfg.RateLimit != "" && ac.Authenticated() && b.limiter != nil {
			if err := b.limiter.Allow(ctx, cfg.RateLimit, ac.User.ID); err != nil {
				return zero, err
			}
		}

		return fn(ctx, ac, req)
	}
}
