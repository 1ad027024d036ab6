package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/pankaj-raikar/taskhive/internal/project/domain"
	projectrepository "github.com/pankaj-raikar/taskhive/internal/project/repository"
	projectservice "github.com/pankaj-raikar/taskhive/internal/project/service"
	"github.com/pankaj-raikar/taskhive/internal/todo/domain"
	"github.com/pankaj-raikar/taskhive/internal/todo/repository"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	svc      domain.Service
	projects projectdomain.Service
	node     *snowflake.Node
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.Todo{},
		&projectdomain.Project{},
		&projectdomain.Member{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	projects := projectservice.New(zap.NewNop(), projectrepository.New(conn), node)
	svc := New(zap.NewNop(), repository.New(conn), projects, node)

	return &testEnv{svc: svc, projects: projects, node: node}
}

func TestCreateValidatesPriority(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	_, err := env.svc.Create(ctx, user, domain.CreateTodoRequest{Title: "Buy milk", Priority: "urgent"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))

	todo, err := env.svc.Create(ctx, user, domain.CreateTodoRequest{Title: "Buy milk"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, todo.Priority)
}

func TestOwnershipHiddenBehindNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.node.Generate()
	other := env.node.Generate()

	todo, err := env.svc.Create(ctx, owner, domain.CreateTodoRequest{Title: "Mine"})
	require.NoError(t, err)

	_, err = env.svc.Get(ctx, other, todo.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = env.svc.ToggleComplete(ctx, other, todo.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestToggleCompleteFlips(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	todo, err := env.svc.Create(ctx, user, domain.CreateTodoRequest{Title: "Flip me"})
	require.NoError(t, err)
	assert.False(t, todo.Completed)

	todo, err = env.svc.ToggleComplete(ctx, user, todo.ID)
	require.NoError(t, err)
	assert.True(t, todo.Completed)

	todo, err = env.svc.ToggleComplete(ctx, user, todo.ID)
	require.NoError(t, err)
	assert.False(t, todo.Completed)
}

func TestDeleteHidesTodo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	todo, err := env.svc.Create(ctx, user, domain.CreateTodoRequest{Title: "Ephemeral"})
	require.NoError(t, err)
	require.NoError(t, env.svc.Delete(ctx, user, todo.ID))

	_, err = env.svc.Get(ctx, user, todo.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	result, err := env.svc.List(ctx, user, domain.ListFilter{}, pagination.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, result.Todos)
}

func TestListFiltersAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	for i := 0; i < 5; i++ {
		priority := domain.PriorityLow
		if i%2 == 0 {
			priority = domain.PriorityHigh
		}
		_, err := env.svc.Create(ctx, user, domain.CreateTodoRequest{
			Title:    fmt.Sprintf("todo %d", i),
			Priority: priority,
		})
		require.NoError(t, err)
	}

	high, err := env.svc.List(ctx, user, domain.ListFilter{Priority: domain.PriorityHigh}, pagination.Pagination{})
	require.NoError(t, err)
	assert.Len(t, high.Todos, 3)

	first, err := env.svc.List(ctx, user, domain.ListFilter{}, pagination.Pagination{PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, first.Todos, 3)
	require.True(t, first.PageInfo.HasMore)

	second, err := env.svc.List(ctx, user, domain.ListFilter{}, pagination.Pagination{
		PageSize:  3,
		PageToken: first.PageInfo.NextPageToken,
	})
	require.NoError(t, err)
	assert.Len(t, second.Todos, 2)
	assert.False(t, second.PageInfo.HasMore)
}

func TestInvertedDueRangeRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	after := time.Now().Add(48 * time.Hour)
	before := time.Now()
	_, err := env.svc.List(ctx, user, domain.ListFilter{DueAfter: &after, DueBefore: &before}, pagination.Pagination{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
}

func TestArchivedProjectRejectsTodos(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	project, err := env.projects.Create(ctx, user, projectdomain.CreateProjectRequest{Name: "Old"})
	require.NoError(t, err)
	require.NoError(t, env.projects.Archive(ctx, user, project.ID))

	_, err = env.svc.Create(ctx, user, domain.CreateTodoRequest{Title: "Late", ProjectID: &project.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
}
