package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/internal/access"
	tagdomain "github.com/pankaj-raikar/taskhive/internal/tag/domain"
	tododomain "github.com/pankaj-raikar/taskhive/internal/todo/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
)

type todoIDRequest struct {
	ID snowflake.ID
}


type updateTodoPayload struct {
	ID   snowflake.ID
	Body tododomain.UpdateTodoRequest
}

type todoTagsRequest struct {
	TodoID snowflake.ID
	TagIDs []snowflake.ID `json:"tagIds"`
}

type todoTagRequest struct {
	TodoID snowflake.ID
	TagID  snowflake.ID
}

type suggestedTagsRequest struct {
	TodoID snowflake.ID
	Limit  int
}

func (s *Server) registerTodoRoutes(g *gin.RouterGroup) {
	create := access.NewAuthMutation(s.builder, access.Config{RateLimit: "todos.create"},
		func(ctx context.Context, ac *access.Context, req tododomain.CreateTodoRequest) (*tododomain.Todo, error) {
			return s.todosvc.Create(ctx, ac.User.ID, req)
		})

	list := access.NewAuthPaginatedQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, filter tododomain.ListFilter, p pagination.Pagination) (*tododomain.ListResult, error) {
			return s.todosvc.List(ctx, ac.User.ID, filter, p)
		})

	get := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req todoIDRequest) (*tododomain.Todo, error) {
			return s.todosvc.Get(ctx, ac.User.ID, req.ID)
		})

	update := access.NewAuthMutation(s.builder, access.Config{RateLimit: "todos.mutate"},
		func(ctx context.Context, ac *access.Context, req updateTodoPayload) (*tododomain.Todo, error) {
			return s.todosvc.Update(ctx, ac.User.ID, req.ID, req.Body)
		})

	toggle := access.NewAuthMutation(s.builder, access.Config{RateLimit: "todos.mutate"},
		func(ctx context.Context, ac *access.Context, req todoIDRequest) (*tododomain.Todo, error) {
			return s.todosvc.ToggleComplete(ctx, ac.User.ID, req.ID)
		})

	remove := access.NewAuthMutation(s.builder, access.Config{RateLimit: "todos.mutate"},
		func(ctx context.Context, ac *access.Context, req todoIDRequest) (gin.H, error) {
			if err := s.todosvc.Delete(ctx, ac.User.ID, req.ID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	tagsOfTodo := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req todoIDRequest) ([]tagdomain.Tag, error) {
			return s.tagsvc.TagsOfTodo(ctx, ac.User.ID, req.ID)
		})

	addTags := access.NewAuthMutation(s.builder, access.Config{RateLimit: "todos.mutate"},
		func(ctx context.Context, ac *access.Context, req todoTagsRequest) (*tagdomain.AttachResult, error) {
			return s.tagsvc.AddTags(ctx, ac.User.ID, req.TodoID, req.TagIDs)
		})

	setTags := access.NewAuthMutation(s.builder, access.Config{RateLimit: "todos.mutate"},
		func(ctx context.Context, ac *access.Context, req todoTagsRequest) (gin.H, error) {
			if err := s.tagsvc.SetTags(ctx, ac.User.ID, req.TodoID, req.TagIDs); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	removeTag := access.NewAuthMutation(s.builder, access.Config{RateLimit: "todos.mutate"},
		func(ctx context.Context, ac *access.Context, req todoTagRequest) (gin.H, error) {
			if err := s.tagsvc.RemoveTag(ctx, ac.User.ID, req.TodoID, req.TagID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	suggested := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req suggestedTagsRequest) ([]tagdomain.SuggestedTag, error) {
			return s.tagsvc.Suggested(ctx, ac.User.ID, req.TodoID, req.Limit)
		})

	todos := g.Group("/todos")
	todos.POST("", handle(s, create, bindJSON[tododomain.CreateTodoRequest], http.StatusCreated))
	todos.GET("", handlePaged(s, list, bindListFilter, http.StatusOK))
	todos.GET("/:id", handle(s, get, bindTodoID, http.StatusOK))
	todos.PATCH("/:id", handle(s, update, func(c *gin.Context) (updateTodoPayload, error) {
		id, err := pathID(c, "id")
		if err != nil {
			return updateTodoPayload{}, err
		}
		body, err := bindJSON[tododomain.UpdateTodoRequest](c)
		if err != nil {
			return updateTodoPayload{}, err
		}
		return updateTodoPayload{ID: id, Body: body}, nil
	}, http.StatusOK))
	todos.POST("/:id/toggle", handle(s, toggle, bindTodoID, http.StatusOK))
	todos.DELETE("/:id", handle(s, remove, bindTodoID, http.StatusOK))

	todos.GET("/:id/tags", handle(s, tagsOfTodo, bindTodoID, http.StatusOK))
	todos.POST("/:id/tags", handle(s, addTags, bindTodoTags, http.StatusOK))
	todos.PUT("/:id/tags", handle(s, setTags, bindTodoTags, http.StatusOK))
	todos.DELETE("/:id/tags/:tagId", handle(s, removeTag, func(c *gin.Context) (todoTagRequest, error) {
		todoID, err := pathID(c, "id")
		if err != nil {
			return todoTagRequest{}, err
		}
		tagID, err := pathID(c, "tagId")
		if err != nil {
			return todoTagRequest{}, err
		}
		return todoTagRequest{TodoID: todoID, TagID: tagID}, nil
	}, http.StatusOK))
	todos.GET("/:id/tags/suggested", handle(s, suggested, func(c *gin.Context) (suggestedTagsRequest, error) {
		id, err := pathID(c, "id")
		if err != nil {
			return suggestedTagsRequest{}, err
		}
		return suggestedTagsRequest{TodoID: id, Limit: queryInt(c, "limit", 0)}, nil
	}, http.StatusOK))
}

func bindTodoID(c *gin.Context) (todoIDRequest, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return todoIDRequest{}, err
	}
	return todoIDRequest{ID: id}, nil
}

func bindTodoTags(c *gin.Context) (todoTagsRequest, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return todoTagsRequest{}, err
	}
	req, err := bindJSON[todoTagsRequest](c)
	if err != nil {
		return todoTagsRequest{}, err
	}
	req.TodoID = id
	return req, nil
}

func bindListFilter(c *gin.Context) (tododomain.ListFilter, error) {
	completed, err := queryBool(c, "completed")
	if err != nil {
		return tododomain.ListFilter{}, err
	}
	projectID, err := queryID(c, "project_id")
	if err != nil {
		return tododomain.ListFilter{}, err
	}

	var dueAfter, dueBefore *time.Time
	if raw := strings.TrimSpace(c.Query("due_after")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return tododomain.ListFilter{}, apperr.BadRequest("invalid due_after")
		}
		dueAfter = &t
	}
	if raw := strings.TrimSpace(c.Query("due_before")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return tododomain.ListFilter{}, apperr.BadRequest("invalid due_before")
		}
		dueBefore = &t
	}

	return tododomain.ListFilter{
		Completed: completed,
		Priority:  strings.TrimSpace(c.Query("priority")),
		ProjectID: projectID,
		DueAfter:  dueAfter,
		DueBefore: dueBefore,
		Search:    strings.TrimSpace(c.Query("search")),
	}, nil
}
