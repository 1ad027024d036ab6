package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/user/domain"
	"go.uber.org/zap"
)

type Service struct {
	log  *zap.Logger
	repo domain.Repository
}

func New(log *zap.Logger, repo domain.Repository) domain.Service {
	return &Service{
		log:  log.Named("user.service"),
		repo: repo,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id snowflake.ID, req domain.UpdateProfileRequest) (*domain.User, error) {
	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Bio != nil {
		fields["bio"] = *req.Bio
	}
	if req.Image != nil {
		fields["image"] = *req.Image
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) SetLastActiveOrganization(ctx context.Context, id snowflake.ID, orgID snowflake.ID) error {
	return s.repo.UpdateFields(ctx, id, map[string]any{
		"last_active_organization_id": orgID,
		"updated_at":                  time.Now().UTC(),
	})
}

func (s *Service) SetPersonalOrganization(ctx context.Context, id snowflake.ID, orgID snowflake.ID) error {
	return s.repo.UpdateFields(ctx, id, map[string]any{
		"personal_organization_id": orgID,
		"updated_at":               time.Now().UTC(),
	})
}

func (s *Service) SoftDelete(ctx context.Context, id snowflake.ID) error {
	now := time.Now().UTC()
	return s.repo.UpdateFields(ctx, id, map[string]any{
		"deleted_at": now,
		"updated_at": now,
	})
}
