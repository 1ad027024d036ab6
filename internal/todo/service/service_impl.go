package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/pankaj-raikar/taskhive/internal/project/domain"
	"github.com/pankaj-raikar/taskhive/internal/todo/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"go.uber.org/zap"
)

type service struct {
	log      *zap.Logger
	repo     domain.Repository
	projects projectdomain.Service
	genID    *snowflake.Node
}

func New(log *zap.Logger, repo domain.Repository, projects projectdomain.Service, genID *snowflake.Node) domain.Service {
	return &service{
		log:      log.Named("todo.service"),
		repo:     repo,
		projects: projects,
		genID:    genID,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateTodoRequest) (*domain.Todo, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.BadRequest("todo title is required")
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperr.BadRequest("priority must be low, medium or high")
	}

	if req.ProjectID != nil {
		if err := s.assertProjectUsable(ctx, userID, *req.ProjectID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	todo := &domain.Todo{
		ID:          s.genID.Generate(),
		UserID:      userID,
		ProjectID:   req.ProjectID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Priority:    priority,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

func (s *service) Get(ctx context.Context, userID, todoID snowflake.ID) (*domain.Todo, error) {
	return s.findOwned(ctx, userID, todoID)
}

func (s *service) List(ctx context.Context, userID snowflake.ID, filter domain.ListFilter, p pagination.Pagination) (*domain.ListResult, error) {
	if filter.DueAfter != nil && filter.DueBefore != nil && filter.DueAfter.After(*filter.DueBefore) {
		return nil, apperr.BadRequest("due date range is inverted")
	}
	if filter.Priority != "" && !domain.ValidPriority(filter.Priority) {
		return nil, apperr.BadRequest("priority must be low, medium or high")
	}

	todos, err := s.repo.List(ctx, userID, filter, p)
	if err != nil {
		return nil, err
	}

	page := make([]*domain.Todo, len(todos))
	for i := range todos {
		page[i] = &todos[i]
	}
	page, pageInfo := pagination.BuildCursorPageInfo(page, p.Limit(), func(t *domain.Todo) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        t.ID.String(),
			CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	out := make([]domain.Todo, 0, len(page))
	for _, t := range page {
		out = append(out, *t)
	}
	return &domain.ListResult{Todos: out, PageInfo: pageInfo}, nil
}

func (s *service) Update(ctx context.Context, userID, todoID snowflake.ID, req domain.UpdateTodoRequest) (*domain.Todo, error) {
	if _, err := s.findOwned(ctx, userID, todoID); err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.BadRequest("todo title is required")
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		if !domain.ValidPriority(*req.Priority) {
			return nil, apperr.BadRequest("priority must be low, medium or high")
		}
		fields["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		fields["due_date"] = *req.DueDate
	} else if req.ClearDueDate {
		fields["due_date"] = nil
	}
	if req.ProjectID != nil {
		if err := s.assertProjectUsable(ctx, userID, *req.ProjectID); err != nil {
			return nil, err
		}
		fields["project_id"] = *req.ProjectID
	}

	if err := s.repo.UpdateFields(ctx, todoID, fields); err != nil {
		return nil, err
	}
	return s.findOwned(ctx, userID, todoID)
}

func (s *service) ToggleComplete(ctx context.Context, userID, todoID snowflake.ID) (*domain.Todo, error) {
	todo, err := s.findOwned(ctx, userID, todoID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateFields(ctx, todoID, map[string]any{
		"completed":  !todo.Completed,
		"updated_at": time.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	todo.Completed = !todo.Completed
	return todo, nil
}

func (s *service) Delete(ctx context.Context, userID, todoID snowflake.ID) error {
	if _, err := s.findOwned(ctx, userID, todoID); err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.repo.UpdateFields(ctx, todoID, map[string]any{
		"deleted_at": now,
		"updated_at": now,
	})
}

// findOwned resolves a todo and hides other users' todos behind NOT_FOUND
// rather than FORBIDDEN, so ids cannot be probed.
func (s *service) findOwned(ctx context.Context, userID, todoID snowflake.ID) (*domain.Todo, error) {
	todo, err := s.repo.FindByID(ctx, todoID)
	if err != nil {
		if errors.Is(err, domain.ErrTodoNotFound) {
			return nil, apperr.NotFound("todo not found")
		}
		return nil, err
	}
	if todo.UserID != userID {
		return nil, apperr.NotFound("todo not found")
	}
	return todo, nil
}

func (s *service) assertProjectUsable(ctx context.Context, userID, projectID snowflake.ID) error {
	view, err := s.projects.Get(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if view.Archived {
		return apperr.BadRequest("archived projects cannot receive todos")
	}
	return nil
}
