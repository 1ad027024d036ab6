package access

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"github.com/pankaj-raikar/taskhive/internal/observability/metrics"
	orgdomain "github.com/pankaj-raikar/taskhive/internal/organization/domain"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	outcomeAnonymous       = "anonymous"
	outcomeUnauthenticated = "unauthenticated"
	outcomeResolved        = "resolved"
)

type Resolver struct {
	log     *zap.Logger
	auth    authdomain.Service
	users   userdomain.Repository
	orgs    orgdomain.Service
	metrics *metrics.Metrics
}

func NewResolver(log *zap.Logger, auth authdomain.Service, users userdomain.Repository, orgs orgdomain.Service, m *metrics.Metrics) *Resolver {
	return &Resolver{
		log:     log.Named("access.resolver"),
		auth:    auth,
		users:   users,
		orgs:    orgs,
		metrics: m,
	}
}

// Resolve turns a raw session token into the caller's Context. Every
// failure mode short of an infrastructure error degrades to an anonymous
// context rather than an error, so public operations keep working.
func (r *Resolver) Resolve(ctx context.Context, rawToken string) (*Context, error) {
	if rawToken == "" {
		r.metrics.RecordSessionResolution(ctx, outcomeAnonymous)
		return &Context{}, nil
	}

	session, identity, err := r.auth.Authenticate(ctx, rawToken)
	if err != nil {
		if isAuthFailure(err) {
			r.metrics.RecordSessionResolution(ctx, outcomeUnauthenticated)
			return &Context{}, nil
		}
		return nil, err
	}

	user, err := r.appUser(ctx, identity)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			r.metrics.RecordSessionResolution(ctx, outcomeUnauthenticated)
			return &Context{}, nil
		}
		return nil, err
	}

	ac := &Context{
		User: &SessionUser{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Image: user.Image,
			Role:  identity.Role,
		},
		SessionID: session.ID,
		IsAdmin:   identity.Role == authdomain.RoleAdmin,
	}

	orgID := activeOrgID(session, user)
	if orgID != nil {
		summary, err := r.organizationSummary(ctx, *orgID, user)
		if err != nil {
			return nil, err
		}
		ac.Organization = summary
	}

	r.metrics.RecordSessionResolution(ctx, outcomeResolved)
	return ac, nil
}

// appUser maps the identity to the application user, tolerating identities
// created before provisioning linked the two by falling back to email.
func (r *Resolver) appUser(ctx context.Context, identity *authdomain.AuthUser) (*userdomain.User, error) {
	var user *userdomain.User
	var err error
	if identity.UserID != nil {
		user, err = r.users.FindByID(ctx, *identity.UserID)
	} else {
		user, err = r.users.FindByEmail(ctx, identity.Email)
	}
	if err != nil {
		return nil, err
	}
	if user.DeletedAt != nil {
		return nil, userdomain.ErrUserNotFound
	}
	return user, nil
}

// organizationSummary loads the organization and the caller's membership
// concurrently. A dangling reference or a lost membership falls back to the
// personal organization, then to the zero summary.
func (r *Resolver) organizationSummary(ctx context.Context, orgID snowflake.ID, user *userdomain.User) (OrganizationSummary, error) {
	var (
		org  *orgdomain.Organization
		role string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		org, err = r.orgs.Get(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		role, err = r.orgs.MemberRole(gctx, orgID, user.ID)
		return err
	})

	err := g.Wait()
	if err == nil {
		return OrganizationSummary{
			ID:         org.ID,
			Name:       org.Name,
			Slug:       org.Slug,
			Logo:       org.Logo,
			Role:       role,
			IsPersonal: org.IsPersonal,
			CreatedAt:  org.CreatedAt,
		}, nil
	}

	if !isMissingOrg(err) {
		return OrganizationSummary{}, err
	}

	if user.PersonalOrganizationID != nil && *user.PersonalOrganizationID != orgID {
		r.log.Debug("active organization unusable, falling back to personal",
			zap.String("org_id", orgID.String()),
			zap.String("user_id", user.ID.String()),
		)
		return r.organizationSummary(ctx, *user.PersonalOrganizationID, user)
	}
	return OrganizationSummary{}, nil
}

func activeOrgID(session *authdomain.Session, user *userdomain.User) *snowflake.ID {
	if session.ActiveOrgID != nil {
		return session.ActiveOrgID
	}
	if user.LastActiveOrganizationID != nil {
		return user.LastActiveOrganizationID
	}
	return user.PersonalOrganizationID
}

func isAuthFailure(err error) bool {
	return errors.Is(err, authdomain.ErrSessionNotFound) ||
		errors.Is(err, authdomain.ErrSessionExpired) ||
		errors.Is(err, authdomain.ErrSessionRevoked) ||
		errors.Is(err, authdomain.ErrInvalidSession) ||
		errors.Is(err, authdomain.ErrUserBanned) ||
		errors.Is(err, authdomain.ErrUserNotFound)
}

func isMissingOrg(err error) bool {
	return errors.Is(err, orgdomain.ErrOrgNotFound) ||
		errors.Is(err, orgdomain.ErrMemberNotFound) ||
		apperr.CodeOf(err) == apperr.CodeNotFound
}
