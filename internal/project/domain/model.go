package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrMemberNotFound  = errors.New("project member not found")
)

type Project struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OwnerID     snowflake.ID `gorm:"index;not null"`
	Name        string       `gorm:"size:255;not null"`
	Description string       `gorm:"type:text"`
	IsPublic    bool         `gorm:"not null;default:false"`
	Archived    bool         `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Project) TableName() string { return "projects" }

type Member struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ProjectID snowflake.ID `gorm:"uniqueIndex:ux_project_member;not null"`
	UserID    snowflake.ID `gorm:"uniqueIndex:ux_project_member;not null"`
	CreatedAt time.Time
}

func (Member) TableName() string { return "project_members" }

// ProjectView annotates a project with the caller's relationship to it.
type ProjectView struct {
	Project
	// Role is "owner", "member" or "viewer" (public project, no
	// membership).
	Role string `json:"role"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

type Repository interface {
	Create(ctx context.Context, project *Project) error
	FindByID(ctx context.Context, id snowflake.ID) (*Project, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	ListVisible(ctx context.Context, userID snowflake.ID) ([]Project, error)

	AddMember(ctx context.Context, member *Member) error
	GetMember(ctx context.Context, projectID, userID snowflake.ID) (*Member, error)
	RemoveMember(ctx context.Context, projectID, userID snowflake.ID) error
	ListMemberIDs(ctx context.Context, projectID snowflake.ID) ([]snowflake.ID, error)
}

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateProjectRequest) (*Project, error)
	Get(ctx context.Context, userID, projectID snowflake.ID) (*ProjectView, error)
	List(ctx context.Context, userID snowflake.ID) ([]ProjectView, error)
	Update(ctx context.Context, userID, projectID snowflake.ID, req UpdateProjectRequest) (*Project, error)
	Archive(ctx context.Context, userID, projectID snowflake.ID) error
	Unarchive(ctx context.Context, userID, projectID snowflake.ID) error
	AddMember(ctx context.Context, userID, projectID, memberUserID snowflake.ID) error
	RemoveMember(ctx context.Context, userID, projectID, memberUserID snowflake.ID) error

	// CanAccess reports whether userID may attach work to the project:
	// owner, member, or anyone for public projects.
	CanAccess(ctx context.Context, userID, projectID snowflake.ID) (bool, error)
}
