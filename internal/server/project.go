package server

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/internal/access"
	projectdomain "github.com/pankaj-raikar/taskhive/internal/project/domain"
)

type projectIDRequest struct {
	ID snowflake.ID
}

type projectMemberRequest struct {
	ProjectID snowflake.ID
	UserID    snowflake.ID `json:"userId"`
}

type updateProjectPayload struct {
	ID   snowflake.ID
	Body projectdomain.UpdateProjectRequest
}

func (s *Server) registerProjectRoutes(g *gin.RouterGroup) {
	create := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req projectdomain.CreateProjectRequest) (*projectdomain.Project, error) {
			return s.projectsvc.Create(ctx, ac.User.ID, req)
		})

	list := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, _ struct{}) ([]projectdomain.ProjectView, error) {
			return s.projectsvc.List(ctx, ac.User.ID)
		})

	get := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req projectIDRequest) (*projectdomain.ProjectView, error) {
			return s.projectsvc.Get(ctx, ac.User.ID, req.ID)
		})

	update := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req updateProjectPayload) (*projectdomain.Project, error) {
			return s.projectsvc.Update(ctx, ac.User.ID, req.ID, req.Body)
		})

	archive := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req projectIDRequest) (gin.H, error) {
			if err := s.projectsvc.Archive(ctx, ac.User.ID, req.ID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	unarchive := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req projectIDRequest) (gin.H, error) {
			if err := s.projectsvc.Unarchive(ctx, ac.User.ID, req.ID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	addMember := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req projectMemberRequest) (gin.H, error) {
			if err := s.projectsvc.AddMember(ctx, ac.User.ID, req.ProjectID, req.UserID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	removeMember := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req projectMemberRequest) (gin.H, error) {
			if err := s.projectsvc.RemoveMember(ctx, ac.User.ID, req.ProjectID, req.UserID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	projects := g.Group("/projects")
	projects.POST("", handle(s, create, bindJSON[projectdomain.CreateProjectRequest], http.StatusCreated))
	projects.GET("", handle(s, list, bindNothing, http.StatusOK))
	projects.GET("/:id", handle(s, get, bindProjectID, http.StatusOK))
	projects.PATCH("/:id", handle(s, update, func(c *gin.Context) (updateProjectPayload, error) {
		id, err := pathID(c, "id")
		if err != nil {
			return updateProjectPayload{}, err
		}
		body, err := bindJSON[projectdomain.UpdateProjectRequest](c)
		if err != nil {
			return updateProjectPayload{}, err
		}
		return updateProjectPayload{ID: id, Body: body}, nil
	}, http.StatusOK))
	projects.POST("/:id/archive", handle(s, archive, bindProjectID, http.StatusOK))
	projects.POST("/:id/unarchive", handle(s, unarchive, bindProjectID, http.StatusOK))
	projects.POST("/:id/members", handle(s, addMember, func(c *gin.Context) (projectMemberRequest, error) {
		id, err := pathID(c, "id")
		if err != nil {
			return projectMemberRequest{}, err
		}
		req, err := bindJSON[projectMemberRequest](c)
		if err != nil {
			return projectMemberRequest{}, err
		}
		req.ProjectID = id
		return req, nil
	}, http.StatusOK))
	projects.DELETE("/:id/members/:userId", handle(s, removeMember, func(c *gin.Context) (projectMemberRequest, error) {
		projectID, err := pathID(c, "id")
		if err != nil {
			return projectMemberRequest{}, err
		}
		userID, err := pathID(c, "userId")
		if err != nil {
			return projectMemberRequest{}, err
		}
		return projectMemberRequest{ProjectID: projectID, UserID: userID}, nil
	}, http.StatusOK))
}

func bindProjectID(c *gin.Context) (projectIDRequest, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return projectIDRequest{}, err
	}
	return projectIDRequest{ID: id}, nil
}
