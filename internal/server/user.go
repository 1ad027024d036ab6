package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/internal/access"
	orgdomain "github.com/pankaj-raikar/taskhive/internal/organization/domain"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
)

type setActiveOrganizationRequest struct {
	OrganizationID snowflake.ID `json:"organizationId"`
}

func (s *Server) registerUserRoutes(g *gin.RouterGroup) {
	me := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, _ struct{}) (*userdomain.User, error) {
			user, err := s.usersvc.Get(ctx, ac.User.ID)
			if err != nil {
				if errors.Is(err, userdomain.ErrUserNotFound) {
					return nil, apperr.NotFound("user not found")
				}
				return nil, err
			}
			return user, nil
		})

	updateProfile := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req userdomain.UpdateProfileRequest) (*userdomain.User, error) {
			return s.usersvc.UpdateProfile(ctx, ac.User.ID, req)
		})

	setActiveOrg := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req setActiveOrganizationRequest) (gin.H, error) {
			// Membership first, then the session and the sticky preference.
			if _, err := s.orgsvc.MemberRole(ctx, req.OrganizationID, ac.User.ID); err != nil {
				if errors.Is(err, orgdomain.ErrMemberNotFound) {
					return nil, apperr.Forbidden("not a member of this organization")
				}
				return nil, err
			}
			if err := s.authsvc.UpdateActiveOrganization(ctx, ac.SessionID, &req.OrganizationID); err != nil {
				return nil, err
			}
			if err := s.usersvc.SetLastActiveOrganization(ctx, ac.User.ID, req.OrganizationID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	users := g.Group("/users")
	users.GET("/me", handle(s, me, bindNothing, http.StatusOK))
	users.PATCH("/me", handle(s, updateProfile, bindJSON[userdomain.UpdateProfileRequest], http.StatusOK))
	users.POST("/me/active-organization", handle(s, setActiveOrg, bindJSON[setActiveOrganizationRequest], http.StatusOK))
}
