package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/internal/access"
	orgdomain "github.com/pankaj-raikar/taskhive/internal/organization/domain"
)

type inviteRequest struct {
	ID    snowflake.ID
	Email string `json:"email"`
	Role  string `json:"role"`
}

type updateMemberRoleRequest struct {
	OrgID  snowflake.ID
	UserID snowflake.ID
	Role   string `json:"role"`
}

type orgIDRequest struct {
	ID snowflake.ID
}

type orgMemberRequest struct {
	OrgID  snowflake.ID
	UserID snowflake.ID
}

type updateOrgPayload struct {
	ID   snowflake.ID
	Body orgdomain.UpdateOrganizationRequest
}

func (s *Server) registerOrganizationRoutes(g *gin.RouterGroup) {
	create := access.NewAuthMutation(s.builder, access.Config{RateLimit: "organizations.create"},
		func(ctx context.Context, ac *access.Context, req orgdomain.CreateOrganizationRequest) (*orgdomain.Organization, error) {
			return s.orgsvc.Create(ctx, ac.User.ID, req)
		})

	list := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, _ struct{}) ([]orgdomain.OrganizationListItem, error) {
			user, err := s.usersvc.Get(ctx, ac.User.ID)
			if err != nil {
				return nil, err
			}
			// The active organization is excluded from the switcher list.
			var exclude *snowflake.ID
			if ac.HasOrganization() {
				id := ac.Organization.ID
				exclude = &id
			}
			return s.orgsvc.ListByUser(ctx, ac.User.ID, exclude, user.PersonalOrganizationID)
		})

	getBySlug := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, slug string) (*orgdomain.OrganizationDetail, error) {
			return s.orgsvc.GetBySlug(ctx, ac.User.ID, slug)
		})

	update := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req updateOrgPayload) (*orgdomain.Organization, error) {
			return s.orgsvc.Update(ctx, ac.User.ID, req.ID, req.Body)
		})

	remove := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req orgIDRequest) (gin.H, error) {
			if err := s.orgsvc.Delete(ctx, ac.User.ID, req.ID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	leave := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req orgIDRequest) (gin.H, error) {
			if err := s.orgsvc.Leave(ctx, ac.User.ID, req.ID); err != nil {
				return nil, err
			}
			// The session falls back to the personal workspace so the next
			// request does not resolve against the departed organization.
			user, err := s.usersvc.Get(ctx, ac.User.ID)
			if err != nil {
				return nil, err
			}
			if user.PersonalOrganizationID != nil {
				if err := s.authsvc.UpdateActiveOrganization(ctx, ac.SessionID, user.PersonalOrganizationID); err != nil {
					return nil, err
				}
				if err := s.usersvc.SetLastActiveOrganization(ctx, ac.User.ID, *user.PersonalOrganizationID); err != nil {
					return nil, err
				}
			}
			return gin.H{"success": true}, nil
		})

	members := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req orgIDRequest) ([]orgdomain.MemberDetail, error) {
			return s.orgsvc.ListMembers(ctx, ac.User.ID, req.ID)
		})

	removeMember := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req orgMemberRequest) (gin.H, error) {
			if err := s.orgsvc.RemoveMember(ctx, ac.User.ID, req.OrgID, req.UserID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	updateMemberRole := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req updateMemberRoleRequest) (gin.H, error) {
			if err := s.orgsvc.UpdateMemberRole(ctx, ac.User.ID, req.OrgID, req.UserID, req.Role); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	invite := access.NewAuthMutation(s.builder, access.Config{RateLimit: "invitations.send"},
		func(ctx context.Context, ac *access.Context, req inviteRequest) (*orgdomain.Invitation, error) {
			return s.orgsvc.Invite(ctx, ac.User.ID, req.ID, req.Email, req.Role)
		})

	pendingInvites := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req orgIDRequest) ([]orgdomain.Invitation, error) {
			return s.orgsvc.ListPendingInvitations(ctx, ac.User.ID, req.ID)
		})

	getInvitation := access.NewAuthQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req orgIDRequest) (*orgdomain.Invitation, error) {
			return s.orgsvc.GetInvitation(ctx, req.ID)
		})

	acceptInvitation := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req orgIDRequest) (*orgdomain.Invitation, error) {
			return s.orgsvc.AcceptInvitation(ctx, ac.User.ID, ac.User.Email, req.ID)
		})

	rejectInvitation := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req orgIDRequest) (gin.H, error) {
			if err := s.orgsvc.RejectInvitation(ctx, ac.User.Email, req.ID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	cancelInvitation := access.NewAuthMutation(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, req orgIDRequest) (gin.H, error) {
			if err := s.orgsvc.CancelInvitation(ctx, ac.User.ID, req.ID); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	orgs := g.Group("/organizations")
	orgs.POST("", handle(s, create, bindJSON[orgdomain.CreateOrganizationRequest], http.StatusCreated))
	orgs.GET("", handle(s, list, bindNothing, http.StatusOK))
	orgs.GET("/by-slug/:slug", handle(s, getBySlug, func(c *gin.Context) (string, error) {
		return strings.TrimSpace(c.Param("slug")), nil
	}, http.StatusOK))
	orgs.PATCH("/:id", handle(s, update, func(c *gin.Context) (updateOrgPayload, error) {
		id, err := pathID(c, "id")
		if err != nil {
			return updateOrgPayload{}, err
		}
		body, err := bindJSON[orgdomain.UpdateOrganizationRequest](c)
		if err != nil {
			return updateOrgPayload{}, err
		}
		return updateOrgPayload{ID: id, Body: body}, nil
	}, http.StatusOK))
	orgs.DELETE("/:id", handle(s, remove, bindOrgID, http.StatusOK))
	orgs.POST("/:id/leave", handle(s, leave, bindOrgID, http.StatusOK))
	orgs.GET("/:id/members", handle(s, members, bindOrgID, http.StatusOK))
	orgs.DELETE("/:id/members/:userId", handle(s, removeMember, bindOrgMember, http.StatusOK))
	orgs.PATCH("/:id/members/:userId", handle(s, updateMemberRole, func(c *gin.Context) (updateMemberRoleRequest, error) {
		orgID, err := pathID(c, "id")
		if err != nil {
			return updateMemberRoleRequest{}, err
		}
		userID, err := pathID(c, "userId")
		if err != nil {
			return updateMemberRoleRequest{}, err
		}
		req, err := bindJSON[updateMemberRoleRequest](c)
		if err != nil {
			return updateMemberRoleRequest{}, err
		}
		req.OrgID = orgID
		req.UserID = userID
		return req, nil
	}, http.StatusOK))
	orgs.POST("/:id/invitations", handle(s, invite, func(c *gin.Context) (inviteRequest, error) {
		id, err := pathID(c, "id")
		if err != nil {
			return inviteRequest{}, err
		}
		req, err := bindJSON[inviteRequest](c)
		if err != nil {
			return inviteRequest{}, err
		}
		req.ID = id
		return req, nil
	}, http.StatusCreated))
	orgs.GET("/:id/invitations", handle(s, pendingInvites, bindOrgID, http.StatusOK))

	invitations := g.Group("/invitations")
	invitations.GET("/:id", handle(s, getInvitation, bindOrgID, http.StatusOK))
	invitations.POST("/:id/accept", handle(s, acceptInvitation, bindOrgID, http.StatusOK))
	invitations.POST("/:id/reject", handle(s, rejectInvitation, bindOrgID, http.StatusOK))
	invitations.POST("/:id/cancel", handle(s, cancelInvitation, bindOrgID, http.StatusOK))
}

func bindOrgID(c *gin.Context) (orgIDRequest, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return orgIDRequest{}, err
	}
	return orgIDRequest{ID: id}, nil
}

func bindOrgMember(c *gin.Context) (orgMemberRequest, error) {
	orgID, err := pathID(c, "id")
	if err != nil {
		return orgMemberRequest{}, err
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return orgMemberRequest{}, err
	}
	return orgMemberRequest{OrgID: orgID, UserID: userID}, nil
}
