package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/project/domain"
	"github.com/pankaj-raikar/taskhive/internal/project/repository"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Project{}, &domain.Member{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(zap.NewNop(), repository.New(conn), node), node
}

func TestArchiveIsOwnerOnly(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	owner := node.Generate()
	member := node.Generate()

	project, err := svc.Create(ctx, owner, domain.CreateProjectRequest{Name: "Roadmap"})
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, owner, project.ID, member))

	err = svc.Archive(ctx, member, project.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	require.NoError(t, svc.Archive(ctx, owner, project.ID))

	name := "Renamed"
	_, err = svc.Update(ctx, owner, project.ID, domain.UpdateProjectRequest{Name: &name})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
}

func TestDuplicateMemberConflicts(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	owner := node.Generate()
	member := node.Generate()

	project, err := svc.Create(ctx, owner, domain.CreateProjectRequest{Name: "Roadmap"})
	require.NoError(t, err)

	require.NoError(t, svc.AddMember(ctx, owner, project.ID, member))

	err = svc.AddMember(ctx, owner, project.ID, member)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestListVisibleProjects(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	owner := node.Generate()
	viewer := node.Generate()

	mine, err := svc.Create(ctx, viewer, domain.CreateProjectRequest{Name: "Mine"})
	require.NoError(t, err)

	public, err := svc.Create(ctx, owner, domain.CreateProjectRequest{Name: "Public", IsPublic: true})
	require.NoError(t, err)

	_, err = svc.Create(ctx, owner, domain.CreateProjectRequest{Name: "Private"})
	require.NoError(t, err)

	shared, err := svc.Create(ctx, owner, domain.CreateProjectRequest{Name: "Shared"})
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, owner, shared.ID, viewer))

	views, err := svc.List(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, views, 3)

	roles := map[snowflake.ID]string{}
	for _, v := range views {
		roles[v.ID] = v.Role
	}
	assert.Equal(t, "owner", roles[mine.ID])
	assert.Equal(t, "viewer", roles[public.ID])
	assert.Equal(t, "member", roles[shared.ID])
}

func TestPrivateProjectHiddenFromOutsiders(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	owner := node.Generate()
	outsider := node.Generate()

	project, err := svc.Create(ctx, owner, domain.CreateProjectRequest{Name: "Private"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, outsider, project.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	ok, err := svc.CanAccess(ctx, outsider, project.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
