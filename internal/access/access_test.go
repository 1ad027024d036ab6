package access

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	authrepository "github.com/pankaj-raikar/taskhive/internal/auth/repository"
	authservice "github.com/pankaj-raikar/taskhive/internal/auth/service"
	"github.com/pankaj-raikar/taskhive/internal/config"
	"github.com/pankaj-raikar/taskhive/internal/observability/metrics"
	orgdomain "github.com/pankaj-raikar/taskhive/internal/organization/domain"
	orgrepository "github.com/pankaj-raikar/taskhive/internal/organization/repository"
	orgservice "github.com/pankaj-raikar/taskhive/internal/organization/service"
	"github.com/pankaj-raikar/taskhive/internal/signup"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
	userrepository "github.com/pankaj-raikar/taskhive/internal/user/repository"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

type fakeLimiter struct {
	calls int
	limit int
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, userID snowflake.ID) error {
	f.calls++
	if f.limit > 0 && f.calls > f.limit {
		return apperr.RateLimited(time.Second)
	}
	return nil
}

type testEnv struct {
	builder *Builder
	auth    authdomain.Service
	orgs    orgdomain.Service
	users   userdomain.Repository
	limiter *fakeLimiter
	cfg     *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.AuthUser{},
		&authdomain.Session{},
		&userdomain.User{},
		&orgdomain.Organization{},
		&orgdomain.Member{},
		&orgdomain.Invitation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{Environment: config.EnvDevelopment}
	logger := zap.NewNop()

	users := userrepository.New(conn)
	orgs := orgservice.New(logger, conn, orgrepository.New(conn), users, node)
	sink := signup.NewProvisioner(logger, users, orgs, node)

	authRepo, sessionRepo := authrepository.New(conn)
	auth := authservice.New(logger, cfg, authRepo, sessionRepo, sink, node)

	m, err := metrics.New(metrics.Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	limiter := &fakeLimiter{}
	resolver := NewResolver(logger, auth, users, orgs, m)
	builder := NewBuilder(logger, cfg, resolver, limiter, m)

	return &testEnv{builder: builder, auth: auth, orgs: orgs, users: users, limiter: limiter, cfg: cfg}
}

func (e *testEnv) signIn(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()

	_, err := e.auth.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    email,
		Name:     "Test User",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	result, err := e.auth.Login(ctx, authdomain.LoginRequest{
		Email:    email,
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return result.RawToken
}

func TestResolveProjectsSessionAndOrganization(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "jane@example.com")

	handler := NewAuthQuery(env.builder, Config{}, func(ctx context.Context, ac *Context, _ struct{}) (*Context, error) {
		return ac, nil
	})

	ac, err := handler(context.Background(), token, struct{}{})
	require.NoError(t, err)
	require.True(t, ac.Authenticated())
	assert.Equal(t, "jane@example.com", ac.User.Email)
	assert.False(t, ac.IsAdmin)

	require.True(t, ac.HasOrganization())
	assert.True(t, ac.Organization.IsPersonal)
	assert.Equal(t, orgdomain.RoleOwner, ac.Organization.Role)
}

func TestResolveInvalidTokenIsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	handler := NewPublicQuery(env.builder, Config{}, func(ctx context.Context, ac *Context, _ struct{}) (bool, error) {
		return ac.Authenticated(), nil
	})

	authed, err := handler(context.Background(), "not-a-real-token", struct{}{})
	require.NoError(t, err)
	assert.False(t, authed)
}

func TestAuthQueryRejectsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	called := false
	handler := NewAuthQuery(env.builder, Config{}, func(ctx context.Context, ac *Context, _ struct{}) (struct{}, error) {
		called = true
		return struct{}{}, nil
	})

	_, err := handler(context.Background(), "", struct{}{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
	assert.False(t, called)
}

func TestRoleGuardBlocksNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "jane@example.com")

	called := false
	handler := NewAuthQuery(env.builder, Config{Role: authdomain.RoleAdmin}, func(ctx context.Context, ac *Context, _ struct{}) (struct{}, error) {
		called = true
		return struct{}{}, nil
	})

	_, err := handler(context.Background(), token, struct{}{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	assert.False(t, called)
}

func TestDevOnlyRejectedInProduction(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Environment = config.EnvProduction
	token := env.signIn(t, "jane@example.com")

	handler := NewAuthMutation(env.builder, Config{DevOnly: true}, func(ctx context.Context, ac *Context, _ struct{}) (struct{}, error) {
		return struct{}{}, nil
	})

	_, err := handler(context.Background(), token, struct{}{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestRateLimitedMutation(t *testing.T) {
	env := newTestEnv(t)
	env.limiter.limit = 3
	token := env.signIn(t, "jane@example.com")

	handler := NewAuthMutation(env.builder, Config{RateLimit: "todos.create"}, func(ctx context.Context, ac *Context, _ struct{}) (struct{}, error) {
		return struct{}{}, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := handler(ctx, token, struct{}{})
		require.NoError(t, err)
	}

	_, err := handler(ctx, token, struct{}{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeRateLimited, apperr.CodeOf(err))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Greater(t, appErr.RetryAfter.Seconds(), 0.0)
}

func TestPaginatedQueryThreadsPageRequest(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "jane@example.com")

	handler := NewAuthPaginatedQuery(env.builder, Config{}, func(ctx context.Context, ac *Context, _ struct{}, p pagination.Pagination) (pagination.Pagination, error) {
		return p, nil
	})

	page := pagination.Pagination{PageToken: "opaque", PageSize: 42}
	got, err := handler(context.Background(), token, struct{}{}, page)
	require.NoError(t, err)
	assert.Equal(t, page, got)

	_, err = handler(context.Background(), "", struct{}{}, page)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}

func TestSessionWithoutOrganizationYieldsZeroSummary(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "jane@example.com")

	handler := NewAuthQuery(env.builder, Config{}, func(ctx context.Context, ac *Context, _ struct{}) (*Context, error) {
		return ac, nil
	})
	ac, err := handler(context.Background(), token, struct{}{})
	require.NoError(t, err)

	// Strip both organization pointers so resolution has nothing to fall
	// back to.
	require.NoError(t, env.users.UpdateFields(context.Background(), ac.User.ID, map[string]any{
		"personal_organization_id":    nil,
		"last_active_organization_id": nil,
	}))

	ac, err = handler(context.Background(), token, struct{}{})
	require.NoError(t, err)
	assert.True(t, ac.Authenticated())
	assert.False(t, ac.HasOrganization())
}
