package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	tododomain "github.com/pankaj-raikar/taskhive/internal/todo/domain"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
)

var (
	ErrTagNotFound     = errors.New("tag not found")
	ErrTodoTagNotFound = errors.New("todo tag not found")
)

// MaxSuggestions caps the suggested-tags result.
const MaxSuggestions = 5

type Tag struct {
	ID snowflake.ID `gorm:"primaryKey"`
	// UserID is the creator; names are unique per creator.
	UserID    snowflake.ID `gorm:"uniqueIndex:ux_tag_user_name;not null"`
	Name      string       `gorm:"uniqueIndex:ux_tag_user_name;size:50;not null"`
	Color     string       `gorm:"size:7;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Tag) TableName() string { return "tags" }

type TodoTag struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TodoID    snowflake.ID `gorm:"uniqueIndex:ux_todo_tag;not null"`
	TagID     snowflake.ID `gorm:"uniqueIndex:ux_todo_tag;not null"`
	CreatedAt time.Time
}

func (TodoTag) TableName() string { return "todo_tags" }

// TagWithCount pairs a tag with how many todos currently use it.
type TagWithCount struct {
	Tag        `gorm:"embedded"`
	UsageCount int64 `json:"usageCount"`
}

// SuggestedTag carries the co-occurrence score used for ordering.
type SuggestedTag struct {
	Tag
	Score float64 `json:"score"`
}

type CreateTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type UpdateTagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// AttachResult reports how an add-tags call went: Added were newly
// attached, Skipped were already present.
type AttachResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

type TodosByTagResult struct {
	Tag      *Tag                 `json:"tag"`
	Todos    []tododomain.Todo    `json:"todos"`
	PageInfo *pagination.PageInfo `json:"pageInfo"`
}

type Repository interface {
	Create(ctx context.Context, tag *Tag) error
	FindByID(ctx context.Context, id snowflake.ID) (*Tag, error)
	FindByName(ctx context.Context, userID snowflake.ID, name string) (*Tag, error)
	FindByIDs(ctx context.Context, ids []snowflake.ID) ([]Tag, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, id snowflake.ID) error

	ListByUser(ctx context.Context, userID snowflake.ID) ([]TagWithCount, error)
	SearchByPrefix(ctx context.Context, userID snowflake.ID, prefix string, limit int) ([]Tag, error)
	Popular(ctx context.Context, userID snowflake.ID, limit int) ([]TagWithCount, error)

	UsageCount(ctx context.Context, tagID snowflake.ID) (int64, error)
	Attach(ctx context.Context, link *TodoTag) error
	Detach(ctx context.Context, todoID, tagID snowflake.ID) error
	DetachAll(ctx context.Context, todoID snowflake.ID) error
	TagIDsOfTodo(ctx context.Context, todoID snowflake.ID) ([]snowflake.ID, error)
	TodoIDsOfTag(ctx context.Context, tagID snowflake.ID) ([]snowflake.ID, error)
	TagsOfTodos(ctx context.Context, todoIDs []snowflake.ID) ([]TodoTag, error)
}

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateTagRequest) (*Tag, error)
	Update(ctx context.Context, userID, tagID snowflake.ID, req UpdateTagRequest) (*Tag, error)
	// Delete refuses while the tag is attached anywhere, naming the count.
	Delete(ctx context.Context, userID, tagID snowflake.ID) error

	ListMine(ctx context.Context, userID snowflake.ID) ([]TagWithCount, error)
	Popular(ctx context.Context, userID snowflake.ID, limit int) ([]TagWithCount, error)
	Search(ctx context.Context, userID snowflake.ID, prefix string, limit int) ([]Tag, error)

	TagsOfTodo(ctx context.Context, userID, todoID snowflake.ID) ([]Tag, error)
	TodosByTag(ctx context.Context, userID, tagID snowflake.ID, completed *bool, p pagination.Pagination) (*TodosByTagResult, error)

	AddTags(ctx context.Context, userID, todoID snowflake.ID, tagIDs []snowflake.ID) (*AttachResult, error)
	RemoveTag(ctx context.Context, userID, todoID, tagID snowflake.ID) error
	// SetTags reconciles the todo's tags to exactly tagIDs.
	SetTags(ctx context.Context, userID, todoID snowflake.ID, tagIDs []snowflake.ID) error

	Suggested(ctx context.Context, userID, todoID snowflake.ID, limit int) ([]SuggestedTag, error)
}
