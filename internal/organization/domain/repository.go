package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, orgID snowflake.ID) (*Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	UpdateOrganization(ctx context.Context, orgID snowflake.ID, fields map[string]any) error
	DeleteOrganization(ctx context.Context, orgID snowflake.ID) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	AddMember(ctx context.Context, member *Member) error
	GetMember(ctx context.Context, orgID, userID snowflake.ID) (*Member, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberDetail, error)
	CountMembers(ctx context.Context, orgID snowflake.ID) (int64, error)
	CountMembershipsByUser(ctx context.Context, userID snowflake.ID) (int64, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)
	UpdateMemberRole(ctx context.Context, orgID, userID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error

	CreateInvitation(ctx context.Context, invitation *Invitation) error
	GetInvitation(ctx context.Context, invitationID snowflake.ID) (*Invitation, error)
	UpdateInvitationStatus(ctx context.Context, invitationID snowflake.ID, status string) error
	ListInvitationsByStatus(ctx context.Context, orgID snowflake.ID, status string) ([]Invitation, error)
	CancelPendingInvitations(ctx context.Context, orgID snowflake.ID, email string) error
	CountPendingInvitations(ctx context.Context, orgID snowflake.ID) (int64, error)
}
