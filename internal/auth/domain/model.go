// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AuthUser is the identity record owned by the auth provider.
type AuthUser struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	UserID        *snowflake.ID     `gorm:"column:user_id;index"`
	Email         string            `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name          string            `gorm:"column:name;type:text"`
	Image         string            `gorm:"column:image;type:text"`
	Role          string            `gorm:"column:role;type:text;not null;default:user"`
	Banned        bool              `gorm:"column:banned;not null;default:false"`
	BanReason     *string           `gorm:"column:ban_reason;type:text"`
	BanExpires    *time.Time        `gorm:"column:ban_expires"`
	EmailVerified bool              `gorm:"column:email_verified;not null;default:false"`
	PasswordHash  *string           `gorm:"column:password_hash;type:text"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuthUser) TableName() string { return "auth_users" }

// IsBanned reports whether the ban is currently in effect.
func (u *AuthUser) IsBanned(now time.Time) bool {
	if !u.Banned {
		return false
	}
	if u.BanExpires != nil && now.After(*u.BanExpires) {
		return false
	}
	return true
}

// Session represents a persisted login session.
type Session struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	AuthUserID     snowflake.ID  `gorm:"column:auth_user_id;not null;index"`
	TokenHash      string        `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	ActiveOrgID    *snowflake.ID `gorm:"column:active_org_id"`
	ImpersonatedBy *snowflake.ID `gorm:"column:impersonated_by"`
	UserAgent      string        `gorm:"column:user_agent;type:text"`
	IPAddress      string        `gorm:"column:ip_address;type:text"`
	ExpiresAt      time.Time     `gorm:"column:expires_at;not null;index"`
	RevokedAt      *time.Time    `gorm:"column:revoked_at"`
	CreatedAt      time.Time     `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt     time.Time     `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "auth_sessions" }
