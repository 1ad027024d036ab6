package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
)

// roleSampleSize bounds the scan used to estimate the admin count on the
// dashboard. Exact counts over the whole identity table are not worth it
// for a cosmetic number.
const RoleSampleSize = 100

// UserView is the admin-facing projection of an identity.
type UserView struct {
	ID        snowflake.ID  `json:"id"`
	UserID    *snowflake.ID `json:"userId,omitempty"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Image     string        `json:"image,omitempty"`
	Role      string        `json:"role"`
	Banned    bool          `json:"banned"`
	CreatedAt time.Time     `json:"createdAt"`
}

type ListUsersRequest struct {
	// Role filters to a single identity role when set.
	Role string
	// Search matches name or email, case-insensitive substring.
	Search     string
	Pagination pagination.Pagination
}

type ListUsersResult struct {
	Users    []UserView           `json:"users"`
	PageInfo *pagination.PageInfo `json:"pageInfo"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type DashboardStats struct {
	TotalUsers int64 `json:"totalUsers"`

	// AdminCount comes from a bounded sample; Estimated is true when the
	// table is larger than the sample.
	AdminCount int64 `json:"adminCount"`
	Estimated  bool  `json:"estimated"`

	RecentUsers  []UserView `json:"recentUsers"`
	SignupsByDay []DayCount `json:"signupsByDay"`
}

type GrantResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type Repository interface {
	ListIdentities(ctx context.Context, req ListUsersRequest) ([]authdomain.AuthUser, error)
	CountIdentities(ctx context.Context) (int64, error)
	RecentIdentities(ctx context.Context, limit int) ([]authdomain.AuthUser, error)
	IdentitiesCreatedSince(ctx context.Context, since time.Time) ([]time.Time, error)
	SampleRoles(ctx context.Context, limit int) ([]string, error)
}

type Service interface {
	// CheckUserAdminStatus reports whether the identity behind userID holds
	// the admin role.
	CheckUserAdminStatus(ctx context.Context, userID snowflake.ID) (bool, error)

	// UpdateUserRole changes a non-admin identity's role. Admin identities
	// cannot be modified through this path.
	UpdateUserRole(ctx context.Context, targetAuthID snowflake.ID, role string) error

	// GrantAdminByEmail promotes the identity registered under email.
	// Unknown addresses report failure without error; already-admin
	// identities succeed idempotently.
	GrantAdminByEmail(ctx context.Context, email string) (*GrantResult, error)

	ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResult, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}
