package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/tag/domain"
	"github.com/pankaj-raikar/taskhive/internal/tag/repository"
	tododomain "github.com/pankaj-raikar/taskhive/internal/todo/domain"
	todorepository "github.com/pankaj-raikar/taskhive/internal/todo/repository"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	svc   domain.Service
	todos tododomain.Repository
	node  *snowflake.Node
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Tag{}, &domain.TodoTag{}, &tododomain.Todo{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	todos := todorepository.New(conn)
	svc := New(zap.NewNop(), repository.New(conn), todos, node)

	return &testEnv{svc: svc, todos: todos, node: node}
}

func (e *testEnv) createTodo(t *testing.T, userID snowflake.ID, title string) *tododomain.Todo {
	t.Helper()
	todo := &tododomain.Todo{
		ID:     e.node.Generate(),
		UserID: userID,
		Title:  title,
	}
	require.NoError(t, e.todos.Create(context.Background(), todo))
	return todo
}

func TestCreateNormalizesAndValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	tag, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "  Urgent ", Color: "#FF0000"})
	require.NoError(t, err)
	assert.Equal(t, "urgent", tag.Name)

	_, err = env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "URGENT", Color: "#00FF00"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))

	_, err = env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "home", Color: "red"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
}

func TestDuplicateNamesAllowedAcrossUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.node.Generate(), domain.CreateTagRequest{Name: "work", Color: "#112233"})
	require.NoError(t, err)

	_, err = env.svc.Create(ctx, env.node.Generate(), domain.CreateTagRequest{Name: "work", Color: "#445566"})
	require.NoError(t, err)
}

func TestDeleteGuardedByUsage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	tag, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "keep", Color: "#112233"})
	require.NoError(t, err)
	todo := env.createTodo(t, user, "tagged")

	_, err = env.svc.AddTags(ctx, user, todo.ID, []snowflake.ID{tag.ID})
	require.NoError(t, err)

	err = env.svc.Delete(ctx, user, tag.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "1")

	require.NoError(t, env.svc.RemoveTag(ctx, user, todo.ID, tag.ID))
	require.NoError(t, env.svc.Delete(ctx, user, tag.ID))
}

func TestAddTagsReportsAddedAndSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	a, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "a", Color: "#111111"})
	require.NoError(t, err)
	b, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "b", Color: "#222222"})
	require.NoError(t, err)
	todo := env.createTodo(t, user, "multi")

	res, err := env.svc.AddTags(ctx, user, todo.ID, []snowflake.ID{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	res, err = env.svc.AddTags(ctx, user, todo.ID, []snowflake.ID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Skipped)
}

func TestSetTagsReconciles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	a, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "a", Color: "#111111"})
	require.NoError(t, err)
	b, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "b", Color: "#222222"})
	require.NoError(t, err)
	c, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "c", Color: "#333333"})
	require.NoError(t, err)
	todo := env.createTodo(t, user, "reconcile")

	_, err = env.svc.AddTags(ctx, user, todo.ID, []snowflake.ID{a.ID, b.ID})
	require.NoError(t, err)

	require.NoError(t, env.svc.SetTags(ctx, user, todo.ID, []snowflake.ID{b.ID, c.ID}))

	tags, err := env.svc.TagsOfTodo(ctx, user, todo.ID)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, tg := range tags {
		names[tg.Name] = true
	}
	assert.Equal(t, map[string]bool{"b": true, "c": true}, names)
}

func TestTaggingAnotherUsersTodoForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.node.Generate()
	other := env.node.Generate()

	tag, err := env.svc.Create(ctx, other, domain.CreateTagRequest{Name: "sneaky", Color: "#111111"})
	require.NoError(t, err)
	todo := env.createTodo(t, owner, "private")

	_, err = env.svc.AddTags(ctx, other, todo.ID, []snowflake.ID{tag.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestSuggestedRanksByCoOccurrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	work, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "work", Color: "#111111"})
	require.NoError(t, err)
	urgent, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "urgent", Color: "#222222"})
	require.NoError(t, err)
	later, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "later", Color: "#333333"})
	require.NoError(t, err)

	// Two historical todos pair work+urgent, one pairs work+later.
	for i := 0; i < 2; i++ {
		past := env.createTodo(t, user, "past")
		_, err = env.svc.AddTags(ctx, user, past.ID, []snowflake.ID{work.ID, urgent.ID})
		require.NoError(t, err)
	}
	past := env.createTodo(t, user, "past")
	_, err = env.svc.AddTags(ctx, user, past.ID, []snowflake.ID{work.ID, later.ID})
	require.NoError(t, err)

	target := env.createTodo(t, user, "target")
	_, err = env.svc.AddTags(ctx, user, target.ID, []snowflake.ID{work.ID})
	require.NoError(t, err)

	suggestions, err := env.svc.Suggested(ctx, user, target.ID, 5)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	assert.Equal(t, "urgent", suggestions[0].Name)
	for _, s := range suggestions {
		assert.NotEqual(t, "work", s.Name, "tags already on the todo are never suggested")
	}
	assert.LessOrEqual(t, len(suggestions), domain.MaxSuggestions)
}

func TestTodosByTagFiltersCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.node.Generate()

	tag, err := env.svc.Create(ctx, user, domain.CreateTagRequest{Name: "mix", Color: "#111111"})
	require.NoError(t, err)

	open := env.createTodo(t, user, "open")
	done := env.createTodo(t, user, "done")
	require.NoError(t, env.todos.UpdateFields(ctx, done.ID, map[string]any{"completed": true}))

	_, err = env.svc.AddTags(ctx, user, open.ID, []snowflake.ID{tag.ID})
	require.NoError(t, err)
	_, err = env.svc.AddTags(ctx, user, done.ID, []snowflake.ID{tag.ID})
	require.NoError(t, err)

	completed := true
	result, err := env.svc.TodosByTag(ctx, user, tag.ID, &completed, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, result.Todos, 1)
	assert.Equal(t, "done", result.Todos[0].Title)

	_, err = env.svc.TodosByTag(ctx, user, env.node.Generate(), nil, pagination.Pagination{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}
