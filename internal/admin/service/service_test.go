package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/admin/domain"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	authrepository "github.com/pankaj-raikar/taskhive/internal/auth/repository"
	authservice "github.com/pankaj-raikar/taskhive/internal/auth/service"
	"github.com/pankaj-raikar/taskhive/internal/config"
	adminrepository "github.com/pankaj-raikar/taskhive/internal/admin/repository"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noopSink struct{ node *snowflake.Node }

func (s *noopSink) OnUserCreated(ctx context.Context, identity *authdomain.AuthUser) (snowflake.ID, error) {
	return s.node.Generate(), nil
}
func (s *noopSink) OnUserUpdated(ctx context.Context, identity *authdomain.AuthUser) error { return nil }
func (s *noopSink) OnUserDeleted(ctx context.Context, identity *authdomain.AuthUser) error { return nil }

type testEnv struct {
	svc  domain.Service
	auth authdomain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.AuthUser{}, &authdomain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo, sessionRepo := authrepository.New(conn)
	auth := authservice.New(zap.NewNop(), &config.Config{}, repo, sessionRepo, &noopSink{node: node}, node)
	svc := New(zap.NewNop(), adminrepository.New(conn), auth)

	return &testEnv{svc: svc, auth: auth}
}

func (e *testEnv) createUser(t *testing.T, email string) *authdomain.AuthUser {
	t.Helper()
	identity, err := e.auth.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    email,
		Name:     "Test User",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return identity
}

func TestUpdateUserRoleDemotesAdmins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	target := env.createUser(t, "target@example.com")

	// Promote, then demote; the role guard on the route vouches for the
	// caller, so an admin target is fair game.
	require.NoError(t, env.svc.UpdateUserRole(ctx, target.ID, authdomain.RoleAdmin))
	require.NoError(t, env.svc.UpdateUserRole(ctx, target.ID, authdomain.RoleUser))

	isAdmin, err := env.svc.CheckUserAdminStatus(ctx, target.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestGrantAdminByEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createUser(t, "jane@example.com")

	res, err := env.svc.GrantAdminByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.True(t, res.Success)

	// Idempotent for an existing admin.
	res, err = env.svc.GrantAdminByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, res.Success)

	// Unknown address reports failure, not an error.
	res, err = env.svc.GrantAdminByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestCheckUserAdminStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	identity := env.createUser(t, "jane@example.com")
	require.NotNil(t, identity.UserID)

	isAdmin, err := env.svc.CheckUserAdminStatus(ctx, *identity.UserID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	require.NoError(t, env.svc.UpdateUserRole(ctx, identity.ID, authdomain.RoleAdmin))

	isAdmin, err = env.svc.CheckUserAdminStatus(ctx, *identity.UserID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestListUsersPaginatesAndFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		env.createUser(t, fmt.Sprintf("user%d@example.com", i))
	}

	first, err := env.svc.ListUsers(ctx, domain.ListUsersRequest{
		Pagination: pagination.Pagination{PageSize: 3},
	})
	require.NoError(t, err)
	assert.Len(t, first.Users, 3)
	assert.True(t, first.PageInfo.HasMore)

	second, err := env.svc.ListUsers(ctx, domain.ListUsersRequest{
		Pagination: pagination.Pagination{PageSize: 3, PageToken: first.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	assert.Len(t, second.Users, 2)
	assert.False(t, second.PageInfo.HasMore)

	seen := map[string]bool{}
	for _, u := range append(first.Users, second.Users...) {
		seen[u.Email] = true
	}
	assert.Len(t, seen, 5)

	filtered, err := env.svc.ListUsers(ctx, domain.ListUsersRequest{
		Search:     "user3",
		Pagination: pagination.Pagination{},
	})
	require.NoError(t, err)
	require.Len(t, filtered.Users, 1)
	assert.Equal(t, "user3@example.com", filtered.Users[0].Email)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		env.createUser(t, fmt.Sprintf("user%d@example.com", i))
	}
	identity := env.createUser(t, "admin@example.com")
	require.NoError(t, env.svc.UpdateUserRole(ctx, identity.ID, authdomain.RoleAdmin))

	stats, err := env.svc.DashboardStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(8), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.AdminCount)
	assert.False(t, stats.Estimated)
	assert.Len(t, stats.RecentUsers, 5)
	require.Len(t, stats.SignupsByDay, 7)

	var total int64
	for _, day := range stats.SignupsByDay {
		total += day.Count
	}
	assert.Equal(t, int64(8), total)
}
