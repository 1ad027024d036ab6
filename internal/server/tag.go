package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/internal/access"
	tagdomain "github.com/pankaj-raikar/taskhive/internal/tag/domain"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
)

type tagIDRequest struct {
	ID snowflake.ID
}

type updateTagPayload struct {
	ID   snowflake.ID
	Body tagdomain.UpdateTagRequest
}

type limitedTagsRequest struct {
	Limit int
}

type searchTagsRequest struct {
	Prefix string
	Limit  int
}

type todosByTagRequest struct {
	TagID     snowflake.ID
	Completed *bool
}

func (s *Server) registerTagRoutes(g *gin.RouterGroup) {
	create := access.NewAuthMutation(s.builder, access.Config{RateLimit: "tags.create"},
		func(ctx context.Context, ac *access.Context, req tagdomain.CreateTagRequest) (*tagdomain.Tag, error) {
			return s.tagsvc.Create(ctx, ac.User.ID, req)
		})

	list := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, _ struct{}) ([]tagdomain.TagWithCount, error) {
			return s.tagsvc.ListMine(ctx, ac.User.ID)
		})

	popular := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req limitedTagsRequest) ([]tagdomain.TagWithCount, error) {
			return s.tagsvc.Popular(ctx, ac.User.ID, req.Limit)
		})

	search := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req searchTagsRequest) ([]tagdomain.Tag, error) {
			return s.tagsvc.Search(ctx, ac.User.ID, req.Prefix, req.Limit)
		})

	update := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req updateTagPayload) (*tagdomain.Tag, error) {
			return s.tagsvc.Update(ctx, ac.User.ID, req.ID, req.Body)
		})

	remove := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req tagIDRequest) (gin.H, error) {
			if err := s.tagsvc.Delete(ctx, ac.User.ID, req.ID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	todosByTag := access.NewAuthPaginatedQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req todosByTagRequest, p pagination.Pagination) (*tagdomain.TodosByTagResult, error) {
			return s.tagsvc.TodosByTag(ctx, ac.User.ID, req.TagID, req.Completed, p)
		})

	tags := g.Group("/tags")
	tags.POST("", handle(s, create, bindJSON[tagdomain.CreateTagRequest], http.StatusCreated))
	tags.GET("", handle(s, list, bindNothing, http.StatusOK))
	tags.GET("/popular", handle(s, popular, func(c *gin.Context) (limitedTagsRequest, error) {
		return limitedTagsRequest{Limit: queryInt(c, "limit", 0)}, nil
	}, http.StatusOK))
	tags.GET("/search", handle(s, search, func(c *gin.Context) (searchTagsRequest, error) {
		return searchTagsRequest{
			Prefix: strings.TrimSpace(c.Query("q")),
			Limit:  queryInt(c, "limit", 0),
		}, nil
	}, http.StatusOK))
	tags.PATCH("/:id", handle(s, update, func(c *gin.Context) (updateTagPayload, error) {
		id, err := pathID(c, "id")
		if err != nil {
			return updateTagPayload{}, err
		}
		body, err := bindJSON[tagdomain.UpdateTagRequest](c)
		if err != nil {
			return updateTagPayload{}, err
		}
		return updateTagPayload{ID: id, Body: body}, nil
	}, http.StatusOK))
	tags.DELETE("/:id", handle(s, remove, bindTagID, http.StatusOK))
	tags.GET("/:id/todos", handlePaged(s, todosByTag, func(c *gin.Context) (todosByTagRequest, error) {
		id, err := pathID(c, "id")
		if err != nil {
			return todosByTagRequest{}, err
		}
		completed, err := queryBool(c, "completed")
		if err != nil {
			return todosByTagRequest{}, err
		}
		return todosByTagRequest{TagID: id, Completed: completed}, nil
	}, http.StatusOK))
}

func bindTagID(c *gin.Context) (tagIDRequest, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return tagIDRequest{}, err
	}
	return tagIDRequest{ID: id}, nil
}
