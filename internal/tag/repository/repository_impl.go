package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/tag/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, tag *domain.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Tag, error) {
	var tag domain.Tag
	err := r.db.WithContext(ctx).First(&tag, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

func (r *repository) FindByName(ctx context.Context, userID snowflake.ID, name string) (*domain.Tag, error) {
	var tag domain.Tag
	err := r.db.WithContext(ctx).
		First(&tag, "user_id = ? AND name = ?", userID, name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []snowflake.ID) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []domain.Tag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error
	return tags, err
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&domain.Tag{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&domain.Tag{}, "id = ?", id).Error
}

func (r *repository) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.TagWithCount, error) {
	var tags []domain.TagWithCount
	err := r.db.WithContext(ctx).
		Model(&domain.Tag{}).
		Select("tags.*, COUNT(todo_tags.id) AS usage_count").
		Joins("LEFT JOIN todo_tags ON todo_tags.tag_id = tags.id").
		Where("tags.user_id = ?", userID).
		Group("tags.id").
		Order("tags.name ASC").
		Find(&tags).Error
	return tags, err
}

func (r *repository) SearchByPrefix(ctx context.Context, userID snowflake.ID, prefix string, limit int) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND name LIKE ?", userID, strings.ToLower(prefix)+"%").
		Order("name ASC").
		Limit(limit).
		Find(&tags).Error
	return tags, err
}

func (r *repository) Popular(ctx context.Context, userID snowflake.ID, limit int) ([]domain.TagWithCount, error) {
	var tags []domain.TagWithCount
	err := r.db.WithContext(ctx).
		Model(&domain.Tag{}).
		Select("tags.*, COUNT(todo_tags.id) AS usage_count").
		Joins("JOIN todo_tags ON todo_tags.tag_id = tags.id").
		Where("tags.user_id = ?", userID).
		Group("tags.id").
		Order("usage_count DESC, tags.name ASC").
		Limit(limit).
		Find(&tags).Error
	return tags, err
}

func (r *repository) UsageCount(ctx context.Context, tagID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.TodoTag{}).
		Where("tag_id = ?", tagID).
		Count(&count).Error
	return count, err
}

func (r *repository) Attach(ctx context.Context, link *domain.TodoTag) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) Detach(ctx context.Context, todoID, tagID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("todo_id = ? AND tag_id = ?", todoID, tagID).
		Delete(&domain.TodoTag{}).Error
}

func (r *repository) DetachAll(ctx context.Context, todoID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("todo_id = ?", todoID).
		Delete(&domain.TodoTag{}).Error
}

func (r *repository) TagIDsOfTodo(ctx context.Context, todoID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).
		Model(&domain.TodoTag{}).
		Where("todo_id = ?", todoID).
		Pluck("tag_id", &ids).Error
	return ids, err
}

func (r *repository) TodoIDsOfTag(ctx context.Context, tagID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).
		Model(&domain.TodoTag{}).
		Where("tag_id = ?", tagID).
		Pluck("todo_id", &ids).Error
	return ids, err
}

func (r *repository) TagsOfTodos(ctx context.Context, todoIDs []snowflake.ID) ([]domain.TodoTag, error) {
	if len(todoIDs) == 0 {
		return nil, nil
	}
	var links []domain.TodoTag
	err := r.db.WithContext(ctx).
		Where("todo_id IN ?", todoIDs).
		Find(&links).Error
	return links, err
}
