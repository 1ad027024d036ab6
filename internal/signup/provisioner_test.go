package signup

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	orgdomain "github.com/pankaj-raikar/taskhive/internal/organization/domain"
	orgrepository "github.com/pankaj-raikar/taskhive/internal/organization/repository"
	orgservice "github.com/pankaj-raikar/taskhive/internal/organization/service"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
	userrepository "github.com/pankaj-raikar/taskhive/internal/user/repository"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvisioner(t *testing.T) (*Provisioner, userdomain.Repository, orgdomain.Service) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&userdomain.User{},
		&orgdomain.Organization{},
		&orgdomain.Member{},
		&orgdomain.Invitation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	users := userrepository.New(conn)
	orgs := orgservice.New(zap.NewNop(), conn, orgrepository.New(conn), users, node)

	return NewProvisioner(zap.NewNop(), users, orgs, node), users, orgs
}

func TestFirstSignupProvisionsPersonalWorkspace(t *testing.T) {
	p, users, orgs := newTestProvisioner(t)
	ctx := context.Background()

	identity := &authdomain.AuthUser{
		ID:    42,
		Email: "jane@example.com",
		Name:  "Jane",
	}

	userID, err := p.OnUserCreated(ctx, identity)
	require.NoError(t, err)

	user, err := users.FindByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, user.PersonalOrganizationID)
	require.NotNil(t, user.LastActiveOrganizationID)
	assert.Equal(t, *user.PersonalOrganizationID, *user.LastActiveOrganizationID)

	org, err := orgs.Get(ctx, *user.PersonalOrganizationID)
	require.NoError(t, err)
	assert.True(t, org.IsPersonal)
	assert.Equal(t, "Jane's Organization", org.Name)

	role, err := orgs.MemberRole(ctx, org.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, orgdomain.RoleOwner, role)
}

func TestOnUserCreatedIsIdempotent(t *testing.T) {
	p, _, _ := newTestProvisioner(t)
	ctx := context.Background()

	identity := &authdomain.AuthUser{ID: 42, Email: "jane@example.com", Name: "Jane"}

	first, err := p.OnUserCreated(ctx, identity)
	require.NoError(t, err)

	second, err := p.OnUserCreated(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOnUserDeletedSoftDeletes(t *testing.T) {
	p, users, _ := newTestProvisioner(t)
	ctx := context.Background()

	identity := &authdomain.AuthUser{ID: 42, Email: "jane@example.com", Name: "Jane"}
	userID, err := p.OnUserCreated(ctx, identity)
	require.NoError(t, err)
	identity.UserID = &userID

	require.NoError(t, p.OnUserDeleted(ctx, identity))

	user, err := users.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.NotNil(t, user.DeletedAt)
}
