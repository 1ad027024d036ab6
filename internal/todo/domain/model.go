package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
)

var ErrTodoNotFound = errors.New("todo not found")

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Todo struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	UserID      snowflake.ID  `gorm:"index;not null"`
	ProjectID   *snowflake.ID `gorm:"index"`
	Title       string        `gorm:"size:500;not null"`
	Description string        `gorm:"type:text"`
	Completed   bool          `gorm:"not null;default:false"`
	Priority    string        `gorm:"size:10;not null;default:medium"`
	DueDate     *time.Time
	DeletedAt   *time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Todo) TableName() string { return "todos" }

type CreateTodoRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    string        `json:"priority"`
	DueDate     *time.Time    `json:"dueDate"`
	ProjectID   *snowflake.ID `json:"projectId"`
}

type UpdateTodoRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	// ClearDueDate removes the due date; DueDate wins when both are set.
	ClearDueDate bool          `json:"clearDueDate"`
	ProjectID    *snowflake.ID `json:"projectId"`
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Completed *bool
	Priority  string
	ProjectID *snowflake.ID
	DueAfter  *time.Time
	DueBefore *time.Time
	Search    string
}

type ListResult struct {
	Todos    []Todo               `json:"todos"`
	PageInfo *pagination.PageInfo `json:"pageInfo"`
}

type Repository interface {
	Create(ctx context.Context, todo *Todo) error
	FindByID(ctx context.Context, id snowflake.ID) (*Todo, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	List(ctx context.Context, userID snowflake.ID, filter ListFilter, p pagination.Pagination) ([]Todo, error)
	FindByIDs(ctx context.Context, userID snowflake.ID, ids []snowflake.ID) ([]Todo, error)
}

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateTodoRequest) (*Todo, error)
	Get(ctx context.Context, userID, todoID snowflake.ID) (*Todo, error)
	List(ctx context.Context, userID snowflake.ID, filter ListFilter, p pagination.Pagination) (*ListResult, error)
	Update(ctx context.Context, userID, todoID snowflake.ID, req UpdateTodoRequest) (*Todo, error)
	ToggleComplete(ctx context.Context, userID, todoID snowflake.ID) (*Todo, error)
	Delete(ctx context.Context, userID, todoID snowflake.ID) error
}
