package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, user *AuthUser) error
	FindOne(ctx context.Context, user AuthUser) (*AuthUser, error)
	FindByID(ctx context.Context, id snowflake.ID) (*AuthUser, error)
	FindByEmail(ctx context.Context, email string) (*AuthUser, error)
	FindByUserID(ctx context.Context, userID snowflake.ID) (*AuthUser, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error
	UpdateActiveOrg(ctx context.Context, sessionID snowflake.ID, activeOrgID *snowflake.ID) error
	RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error
	RevokeSessionsForUser(ctx context.Context, authUserID snowflake.ID, revokedAt time.Time) error
}
