package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*Organization, error)
	// EnsurePersonal creates the user's personal organization unless the
	// user already belongs to any organization.
	EnsurePersonal(ctx context.Context, userID snowflake.ID, displayName string) (*Organization, error)
	Get(ctx context.Context, orgID snowflake.ID) (*Organization, error)
	GetBySlug(ctx context.Context, userID snowflake.ID, slug string) (*OrganizationDetail, error)
	ListByUser(ctx context.Context, userID snowflake.ID, excludeOrgID *snowflake.ID, personalOrgID *snowflake.ID) ([]OrganizationListItem, error)
	Update(ctx context.Context, userID, orgID snowflake.ID, req UpdateOrganizationRequest) (*Organization, error)
	Delete(ctx context.Context, userID, orgID snowflake.ID) error

	MemberRole(ctx context.Context, orgID, userID snowflake.ID) (string, error)
	ListMembers(ctx context.Context, userID, orgID snowflake.ID) ([]MemberDetail, error)
	RemoveMember(ctx context.Context, userID, orgID, targetUserID snowflake.ID) error
	UpdateMemberRole(ctx context.Context, userID, orgID, targetUserID snowflake.ID, role string) error
	// Leave removes the caller's own membership. The personal organization
	// cannot be left.
	Leave(ctx context.Context, userID, orgID snowflake.ID) error

	Invite(ctx context.Context, userID, orgID snowflake.ID, email, role string) (*Invitation, error)
	ListPendingInvitations(ctx context.Context, userID, orgID snowflake.ID) ([]Invitation, error)
	GetInvitation(ctx context.Context, invitationID snowflake.ID) (*Invitation, error)
	AcceptInvitation(ctx context.Context, userID snowflake.ID, email string, invitationID snowflake.ID) (*Invitation, error)
	RejectInvitation(ctx context.Context, email string, invitationID snowflake.ID) error
	CancelInvitation(ctx context.Context, userID snowflake.ID, invitationID snowflake.ID) error
}

type CreateOrganizationRequest struct {
	Name string
	Logo string
}

type UpdateOrganizationRequest struct {
	Name *string
	Slug *string
	Logo *string
}

type OrganizationListItem struct {
	Organization `gorm:"embedded"`
	Role         string `json:"role"`
	IsPersonal   bool   `json:"is_personal"`
}

type OrganizationDetail struct {
	Organization `gorm:"embedded"`
	Role         string `json:"role"`
	MemberCount  int64  `json:"member_count"`
	IsPersonal   bool   `json:"is_personal"`
}

type MemberDetail struct {
	Member `gorm:"embedded"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Image  string `json:"image"`
}

var (
	ErrOrgNotFound        = errors.New("organization not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvitationNotFound = errors.New("invitation not found")
)
