package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pankaj-raikar/taskhive/internal/admin/domain"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

// ListIdentities fetches one page plus one extra row so the caller can
// detect whether more pages exist.
func (r *repository) ListIdentities(ctx context.Context, req domain.ListUsersRequest) ([]authdomain.AuthUser, error) {
	q := r.db.WithContext(ctx).Model(&authdomain.AuthUser{})

	if req.Role != "" {
		q = q.Where("role = ?", req.Role)
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	if req.Pagination.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.Pagination.PageToken)
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

	var identities []authdomain.AuthUser
	err := q.Order("created_at DESC, id DESC").
		Limit(req.Pagination.Limit() + 1).
		Find(&identities).Error
	return identities, err
}

func (r *repository) CountIdentities(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&authdomain.AuthUser{}).Count(&count).Error
	return count, err
}

func (r *repository) RecentIdentities(ctx context.Context, limit int) ([]authdomain.AuthUser, error) {
	var identities []authdomain.AuthUser
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&identities).Error
	return identities, err
}

func (r *repository) IdentitiesCreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).
		Model(&authdomain.AuthUser{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &stamps).Error
	return stamps, err
}

func (r *repository) SampleRoles(ctx context.Context, limit int) ([]string, error) {
	var roles []string
	err := r.db.WithContext(ctx).
		Model(&authdomain.AuthUser{}).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Pluck("role", &roles).Error
	return roles, err
}
