// Package signup provisions the application-side user record when an
// identity is created. It bridges the identity store and the workspace
// model: first sign-up gets exactly one user row and one personal
// organization, already marked active.
package signup

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	orgdomain "github.com/pankaj-raikar/taskhive/internal/organization/domain"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
	"go.uber.org/zap"
)

type Provisioner struct {
	log   *zap.Logger
	users userdomain.Repository
	orgs  orgdomain.Service
	genID *snowflake.Node
}

func NewProvisioner(log *zap.Logger, users userdomain.Repository, orgs orgdomain.Service, genID *snowflake.Node) *Provisioner {
	return &Provisioner{
		log:   log.Named("signup"),
		users: users,
		orgs:  orgs,
		genID: genID,
	}
}

var _ authdomain.LifecycleSink = (*Provisioner)(nil)

// OnUserCreated creates the application user and, for a brand-new account,
// a personal organization set as both the personal and the active one.
// Re-running for an already-provisioned email is a no-op that returns the
// existing user id.
func (p *Provisioner) OnUserCreated(ctx context.Context, identity *authdomain.AuthUser) (snowflake.ID, error) {
	if existing, err := p.users.FindByEmail(ctx, identity.Email); err == nil {
		return existing.ID, nil
	} else if !errors.Is(err, userdomain.ErrUserNotFound) {
		return 0, err
	}

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:        p.genID.Generate(),
		Email:     identity.Email,
		Name:      identity.Name,
		Image:     identity.Image,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return 0, err
	}

	org, err := p.orgs.EnsurePersonal(ctx, user.ID, user.Name)
	if err != nil {
		return 0, err
	}
	if org != nil {
		if err := p.users.UpdateFields(ctx, user.ID, map[string]any{
			"personal_organization_id":    org.ID,
			"last_active_organization_id": org.ID,
			"updated_at":                  time.Now().UTC(),
		}); err != nil {
			return 0, err
		}
		p.log.Info("provisioned personal organization",
			zap.String("user_id", user.ID.String()),
			zap.String("org_id", org.ID.String()),
		)
	}

	return user.ID, nil
}

func (p *Provisioner) OnUserUpdated(ctx context.Context, identity *authdomain.AuthUser) error {
	if identity.UserID == nil {
		return nil
	}
	return p.users.UpdateFields(ctx, *identity.UserID, map[string]any{
		"name":       identity.Name,
		"image":      identity.Image,
		"updated_at": time.Now().UTC(),
	})
}

func (p *Provisioner) OnUserDeleted(ctx context.Context, identity *authdomain.AuthUser) error {
	if identity.UserID == nil {
		return nil
	}
	return p.users.UpdateFields(ctx, *identity.UserID, map[string]any{
		"deleted_at": time.Now().UTC(),
		"updated_at": time.Now().UTC(),
	})
}
