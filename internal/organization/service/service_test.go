package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/organization/domain"
	"github.com/pankaj-raikar/taskhive/internal/organization/repository"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
	userrepository "github.com/pankaj-raikar/taskhive/internal/user/repository"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   domain.Service
	users userdomain.Repository
	conn  *gorm.DB
	genID *snowflake.Node
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&domain.Organization{},
		&domain.Member{},
		&domain.Invitation{},
		&userdomain.User{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	users := userrepository.New(conn)
	repo := repository.New(conn)
	svc := New(zap.NewNop(), conn, repo, users, node)

	return &testEnv{svc: svc, users: users, conn: conn, genID: node}
}

func (e *testEnv) createUser(t *testing.T, email string) *userdomain.User {
	t.Helper()
	u := &userdomain.User{ID: e.genID.Generate(), Email: email, Name: "Test User"}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func TestCreateAssignsOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")

	org, err := env.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Acme Inc"})
	require.NoError(t, err)
	assert.Equal(t, "acme-inc", org.Slug)
	assert.False(t, org.IsPersonal)

	role, err := env.svc.MemberRole(ctx, org.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, role)
}

func TestCreateDisambiguatesSlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")

	first, err := env.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Acme"})
	require.NoError(t, err)

	second, err := env.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Acme"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "acme-")
}

func TestEnsurePersonalSkipsExistingMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "jane@example.com")

	org, err := env.svc.EnsurePersonal(ctx, user.ID, "Jane")
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.True(t, org.IsPersonal)
	assert.Equal(t, "Jane's Organization", org.Name)

	again, err := env.svc.EnsurePersonal(ctx, user.ID, "Jane")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestInviteEnforcesMemberCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")

	org, err := env.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Capped"})
	require.NoError(t, err)

	// Owner plus four invites fills the limit of five seats.
	for i := 0; i < domain.MemberLimit-1; i++ {
		_, err := env.svc.Invite(ctx, owner.ID, org.ID, fmt.Sprintf("invitee%d@example.com", i), domain.RoleMember)
		require.NoError(t, err)
	}

	_, err = env.svc.Invite(ctx, owner.ID, org.ID, "onetoomany@example.com", domain.RoleMember)
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeLimitExceeded, appErr.Code)
}

func TestInviteExistingMemberConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	invitee := env.createUser(t, "invitee@example.com")

	org, err := env.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Team"})
	require.NoError(t, err)

	invitation, err := env.svc.Invite(ctx, owner.ID, org.ID, invitee.Email, domain.RoleMember)
	require.NoError(t, err)

	_, err = env.svc.AcceptInvitation(ctx, invitee.ID, invitee.Email, invitation.ID)
	require.NoError(t, err)

	_, err = env.svc.Invite(ctx, owner.ID, org.ID, invitee.Email, domain.RoleMember)
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeConflict, appErr.Code)
}

func TestReinviteCancelsPriorPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")

	org, err := env.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Team"})
	require.NoError(t, err)

	first, err := env.svc.Invite(ctx, owner.ID, org.ID, "new@example.com", domain.RoleMember)
	require.NoError(t, err)

	second, err := env.svc.Invite(ctx, owner.ID, org.ID, "new@example.com", domain.RoleMember)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	stale, err := env.svc.GetInvitation(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationCanceled, stale.Status)

	pending, err := env.svc.ListPendingInvitations(ctx, owner.ID, org.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}

func TestAcceptInvitationRechecksMemberCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	invitee := env.createUser(t, "invitee@example.com")

	org, err := env.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Full House"})
	require.NoError(t, err)

	// Issued while seats were free.
	invitation, err := env.svc.Invite(ctx, owner.ID, org.ID, invitee.Email, domain.RoleMember)
	require.NoError(t, err)

	// Fill the remaining seats before the accept lands, the way a burst
	// of concurrent accepts would.
	for i := 0; i < domain.MemberLimit-1; i++ {
		require.NoError(t, env.conn.Create(&domain.Member{
			ID:        env.genID.Generate(),
			OrgID:     org.ID,
			UserID:    env.genID.Generate(),
			Role:      domain.RoleMember,
			CreatedAt: time.Now().UTC(),
		}).Error)
	}

	_, err = env.svc.AcceptInvitation(ctx, invitee.ID, invitee.Email, invitation.ID)
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeLimitExceeded, appErr.Code)

	// The invitation stays pending and no membership row was written.
	kept, err := env.svc.GetInvitation(ctx, invitation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationPending, kept.Status)

	_, err = env.svc.MemberRole(ctx, org.ID, invitee.ID)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestAcceptInvitationRequiresMatchingEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	stranger := env.createUser(t, "stranger@example.com")

	org, err := env.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Team"})
	require.NoError(t, err)

	invitation, err := env.svc.Invite(ctx, owner.ID, org.ID, "invitee@example.com", domain.RoleMember)
	require.NoError(t, err)

	_, err = env.svc.AcceptInvitation(ctx, stranger.ID, stranger.Email, invitation.ID)
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeForbidden, appErr.Code)
}

func TestPersonalOrganizationIsProtected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "jane@example.com")

	org, err := env.svc.EnsurePersonal(ctx, user.ID, "Jane")
	require.NoError(t, err)

	err = env.svc.Delete(ctx, user.ID, org.ID)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeForbidden, appErr.Code)

	err = env.svc.Leave(ctx, user.ID, org.ID)
	require.Error(t, err)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeBadRequest, appErr.Code)
}

func TestUpdateRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	member := env.createUser(t, "member@example.com")

	org, err := env.svc.Create(ctx, owner.ID, domain.CreateOrganizationRequest{Name: "Team"})
	require.NoError(t, err)

	invitation, err := env.svc.Invite(ctx, owner.ID, org.ID, member.Email, domain.RoleMember)
	require.NoError(t, err)
	_, err = env.svc.AcceptInvitation(ctx, member.ID, member.Email, invitation.ID)
	require.NoError(t, err)

	name := "Renamed"
	_, err = env.svc.Update(ctx, member.ID, org.ID, domain.UpdateOrganizationRequest{Name: &name})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeForbidden, appErr.Code)

	updated, err := env.svc.Update(ctx, owner.ID, org.ID, domain.UpdateOrganizationRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}
