package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*AuthUser, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, *AuthUser, error)
	UpdateActiveOrganization(ctx context.Context, sessionID snowflake.ID, orgID *snowflake.ID) error
	UpdateRole(ctx context.Context, id snowflake.ID, role string) error
	FindByEmail(ctx context.Context, email string) (*AuthUser, error)
	FindByUserID(ctx context.Context, userID snowflake.ID) (*AuthUser, error)
	FindByAuthID(ctx context.Context, id snowflake.ID) (*AuthUser, error)
}

// LifecycleSink receives identity lifecycle notifications. The application
// side implements it to keep its user projection in step with the identity
// store.
type LifecycleSink interface {
	// OnUserCreated provisions the application user for a new identity and
	// returns its id.
	OnUserCreated(ctx context.Context, identity *AuthUser) (snowflake.ID, error)
	OnUserUpdated(ctx context.Context, identity *AuthUser) error
	OnUserDeleted(ctx context.Context, identity *AuthUser) error
}

type CreateUserRequest struct {
	Email    string
	Name     string
	Image    string
	Password string
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	User      *AuthUser
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
