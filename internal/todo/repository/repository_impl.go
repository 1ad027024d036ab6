package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/todo/domain"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Todo, error) {
	var todo domain.Todo
	err := r.db.WithContext(ctx).
		First(&todo, "id = ? AND deleted_at IS NULL", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTodoNotFound
		}
		return nil, err
	}
	return &todo, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&domain.Todo{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// List fetches one page plus one row, newest first, applying the filter.
func (r *repository) List(ctx context.Context, userID snowflake.ID, filter domain.ListFilter, p pagination.Pagination) ([]domain.Todo, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.Todo{}).
		Where("user_id = ? AND deleted_at IS NULL", userID)

	if filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.ProjectID != nil {
		q = q.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.DueAfter != nil {
		q = q.Where("due_date >= ?", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		q = q.Where("due_date <= ?", *filter.DueBefore)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	if p.PageToken != "" {
		cursor, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, err
		}
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}

	var todos []domain.Todo
	err := q.Order("created_at DESC, id DESC").
		Limit(p.Limit() + 1).
		Find(&todos).Error
	return todos, err
}

func (r *repository) FindByIDs(ctx context.Context, userID snowflake.ID, ids []snowflake.ID) ([]domain.Todo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var todos []domain.Todo
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL AND id IN ?", userID, ids).
		Find(&todos).Error
	return todos, err
}
