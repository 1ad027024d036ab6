// Package domain contains core types for the application user projection.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is the application-side user row. Identity fields (email
// verification, role, bans) live on the auth side; this row carries
// profile data and organization pointers.
type User struct {
	ID                       snowflake.ID  `gorm:"primaryKey"`
	Email                    string        `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name                     string        `gorm:"column:name;type:text"`
	Bio                      string        `gorm:"column:bio;type:text"`
	Image                    string        `gorm:"column:image;type:text"`
	PersonalOrganizationID   *snowflake.ID `gorm:"column:personal_organization_id"`
	LastActiveOrganizationID *snowflake.ID `gorm:"column:last_active_organization_id"`
	DeletedAt                *time.Time    `gorm:"column:deleted_at;index"`
	CreatedAt                time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt                time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

type UpdateProfileRequest struct {
	Name  *string
	Bio   *string
	Image *string
}
