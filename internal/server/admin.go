package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/internal/access"
	admindomain "github.com/pankaj-raikar/taskhive/internal/admin/domain"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
)

type updateUserRoleRequest struct {
	ID   snowflake.ID
	Role string `json:"role"`
}

type grantAdminRequest struct {
	Email string `json:"email"`
}

func (s *Server) registerAdminRoutes(g *gin.RouterGroup) {
	status := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, _ struct{}) (gin.H, error) {
			isAdmin, err := s.adminsvc.CheckUserAdminStatus(ctx, ac.User.ID)
			if err != nil {
				return nil, err
			}
			return gin.H{"isAdmin": isAdmin}, nil
		})

	listUsers := access.NewAuthPaginatedQuery(s.builder, access.Config{Role: authdomain.RoleAdmin},
		func(ctx context.Context, ac *access.Context, req admindomain.ListUsersRequest, p pagination.Pagination) (*admindomain.ListUsersResult, error) {
			req.Pagination = p
			return s.adminsvc.ListUsers(ctx, req)
		})

	updateRole := access.NewAuthMutation(s.builder, access.Config{Role: authdomain.RoleAdmin},
		func(ctx context.Context, ac *access.Context, req updateUserRoleRequest) (gin.H, error) {
			if err := s.adminsvc.UpdateUserRole(ctx, req.ID, req.Role); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	grant := access.NewAuthMutation(s.builder, access.Config{Role: authdomain.RoleAdmin},
		func(ctx context.Context, ac *access.Context, req grantAdminRequest) (*admindomain.GrantResult, error) {
			return s.adminsvc.GrantAdminByEmail(ctx, req.Email)
		})

	dashboard := access.NewAuthQuery(s.builder, access.Config{Role: authdomain.RoleAdmin},
		func(ctx context.Context, ac *access.Context, _ struct{}) (*admindomain.DashboardStats, error) {
			return s.adminsvc.DashboardStats(ctx)
		})

	admin := g.Group("/admin")
	admin.GET("/status", handle(s, status, bindNothing, http.StatusOK))
	admin.GET("/users", handlePaged(s, listUsers, func(c *gin.Context) (admindomain.ListUsersRequest, error) {
		return admindomain.ListUsersRequest{
			Role:   strings.TrimSpace(c.Query("role")),
			Search: strings.TrimSpace(c.Query("search")),
		}, nil
	}, http.StatusOK))
	admin.PATCH("/users/:id/role", handle(s, updateRole, func(c *gin.Context) (updateUserRoleRequest, error) {
		id, err := pathID(c, "id")
		if err != nil {
			return updateUserRoleRequest{}, err
		}
		req, err := bindJSON[updateUserRoleRequest](c)
		if err != nil {
			return updateUserRoleRequest{}, err
		}
		req.ID = id
		return req, nil
	}, http.StatusOK))
	admin.POST("/grant", handle(s, grant, bindJSON[grantAdminRequest], http.StatusOK))
	admin.GET("/dashboard", handle(s, dashboard, bindNothing, http.StatusOK))
}
