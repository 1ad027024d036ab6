package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/project/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"go.uber.org/zap"
)

const (
	roleOwner  = "owner"
	roleMember = "member"
	roleViewer = "viewer"
)

type service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(log *zap.Logger, repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		log:   log.Named("project.service"),
		repo:  repo,
		genID: genID,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateProjectRequest) (*domain.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.BadRequest("project name is required")
	}

	now := time.Now().UTC()
	project := &domain.Project{
		ID:          s.genID.Generate(),
		OwnerID:     userID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		IsPublic:    req.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *service) Get(ctx context.Context, userID, projectID snowflake.ID) (*domain.ProjectView, error) {
	project, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}

	role, visible, err := s.roleFor(ctx, project, userID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperr.NotFound("project not found")
	}

	return &domain.ProjectView{Project: *project, Role: role}, nil
}

func (s *service) List(ctx context.Context, userID snowflake.ID) ([]domain.ProjectView, error) {
	projects, err := s.repo.ListVisible(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ProjectView, 0, len(projects))
	for i := range projects {
		role, _, err := s.roleFor(ctx, &projects[i], userID)
		if err != nil {
			return nil, err
		}
		views = append(views, domain.ProjectView{Project: projects[i], Role: role})
	}
	return views, nil
}

func (s *service) Update(ctx context.Context, userID, projectID snowflake.ID, req domain.UpdateProjectRequest) (*domain.Project, error) {
	project, err := s.requireOwner(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if project.Archived {
		return nil, apperr.BadRequest("archived projects cannot be modified")
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.BadRequest("project name is required")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.IsPublic != nil {
		fields["is_public"] = *req.IsPublic
	}

	if err := s.repo.UpdateFields(ctx, projectID, fields); err != nil {
		return nil, err
	}
	return s.find(ctx, projectID)
}

func (s *service) Archive(ctx context.Context, userID, projectID snowflake.ID) error {
	if _, err := s.requireOwner(ctx, projectID, userID); err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, projectID, map[string]any{
		"archived":   true,
		"updated_at": time.Now().UTC(),
	})
}

func (s *service) Unarchive(ctx context.Context, userID, projectID snowflake.ID) error {
	if _, err := s.requireOwner(ctx, projectID, userID); err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, projectID, map[string]any{
		"archived":   false,
		"updated_at": time.Now().UTC(),
	})
}

func (s *service) AddMember(ctx context.Context, userID, projectID, memberUserID snowflake.ID) error {
	project, err := s.requireOwner(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if project.Archived {
		return apperr.BadRequest("archived projects cannot be modified")
	}
	if memberUserID == project.OwnerID {
		return apperr.Conflict("user is already a member of this project")
	}

	err = s.repo.AddMember(ctx, &domain.Member{
		ID:        s.genID.Generate(),
		ProjectID: projectID,
		UserID:    memberUserID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return apperr.Conflict("user is already a member of this project")
		}
		return err
	}
	return nil
}

func (s *service) RemoveMember(ctx context.Context, userID, projectID, memberUserID snowflake.ID) error {
	// Members may remove themselves; everyone else needs the owner.
	if userID != memberUserID {
		if _, err := s.requireOwner(ctx, projectID, userID); err != nil {
			return err
		}
	} else if _, err := s.find(ctx, projectID); err != nil {
		return err
	}

	if _, err := s.repo.GetMember(ctx, projectID, memberUserID); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return apperr.NotFound("project member not found")
		}
		return err
	}
	return s.repo.RemoveMember(ctx, projectID, memberUserID)
}

func (s *service) CanAccess(ctx context.Context, userID, projectID snowflake.ID) (bool, error) {
	project, err := s.find(ctx, projectID)
	if err != nil {
		return false, err
	}
	_, visible, err := s.roleFor(ctx, project, userID)
	return visible, err
}

func (s *service) find(ctx context.Context, projectID snowflake.ID) (*domain.Project, error) {
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, apperr.NotFound("project not found")
		}
		return nil, err
	}
	return project, nil
}

func (s *service) requireOwner(ctx context.Context, projectID, userID snowflake.ID) (*domain.Project, error) {
	project, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != userID {
		return nil, apperr.Forbidden("only the project owner may do this")
	}
	return project, nil
}

// roleFor reports the caller's role on the project and whether they can
// see it at all.
func (s *service) roleFor(ctx context.Context, project *domain.Project, userID snowflake.ID) (string, bool, error) {
	if project.OwnerID == userID {
		return roleOwner, true, nil
	}
	if _, err := s.repo.GetMember(ctx, project.ID, userID); err == nil {
		return roleMember, true, nil
	} else if !errors.Is(err, domain.ErrMemberNotFound) {
		return "", false, err
	}
	if project.IsPublic {
		return roleViewer, true, nil
	}
	return "", false, nil
}
