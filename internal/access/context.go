// Package access resolves the caller of an operation into a session
// context and wraps handlers with the authentication, role and rate-limit
// checks they declare.
package access

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SessionUser is the projection of the caller exposed to handlers. It
// never carries credentials or identity-store internals.
type SessionUser struct {
	ID    snowflake.ID `json:"id"`
	Email string       `json:"email"`
	Name  string       `json:"name"`
	Image string       `json:"image,omitempty"`
	Role  string       `json:"role"`
}

// OrganizationSummary describes the caller's active organization. The zero
// value means the caller has no usable active organization.
type OrganizationSummary struct {
	ID         snowflake.ID `json:"id"`
	Name       string       `json:"name"`
	Slug       string       `json:"slug"`
	Logo       string       `json:"logo,omitempty"`
	Role       string       `json:"role"`
	IsPersonal bool         `json:"isPersonal"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// Context is the resolved caller state handed to every wrapped handler.
// User is nil for anonymous callers.
type Context struct {
	User         *SessionUser
	Organization OrganizationSummary
	SessionID    snowflake.ID
	IsAdmin      bool
}

func (c *Context) Authenticated() bool {
	return c != nil && c.User != nil
}

func (c *Context) HasOrganization() bool {
	return c != nil && c.Organization.ID != 0
}
