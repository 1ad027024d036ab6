package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/admin/domain"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db/pagination"
	"go.uber.org/zap"
)

const (
	recentUserCount = 5
	signupWindow    = 7 * 24 * time.Hour
)

type service struct {
	log  *zap.Logger
	repo domain.Repository
	auth authdomain.Service
}

func New(log *zap.Logger, repo domain.Repository, auth authdomain.Service) domain.Service {
	return &service{
		log:  log.Named("admin.service"),
		repo: repo,
		auth: auth,
	}
}

func (s *service) CheckUserAdminStatus(ctx context.Context, userID snowflake.ID) (bool, error) {
	identity, err := s.auth.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return identity.Role == authdomain.RoleAdmin, nil
}

func (s *service) UpdateUserRole(ctx context.Context, targetAuthID snowflake.ID, role string) error {
	if role != authdomain.RoleUser && role != authdomain.RoleAdmin {
		return apperr.BadRequest("invalid role")
	}

	// Callers reach this behind the admin role guard, so admins may demote
	// each other; only the target's existence is checked here.
	if _, err := s.auth.FindByAuthID(ctx, targetAuthID); err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}

	return s.auth.UpdateRole(ctx, targetAuthID, role)
}

func (s *service) GrantAdminByEmail(ctx context.Context, email string) (*domain.GrantResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	identity, err := s.auth.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			return &domain.GrantResult{Success: false, Message: "No user registered under that email"}, nil
		}
		return nil, err
	}

	if identity.Role == authdomain.RoleAdmin {
		return &domain.GrantResult{Success: true, Message: "User is already an admin"}, nil
	}

	if err := s.auth.UpdateRole(ctx, identity.ID, authdomain.RoleAdmin); err != nil {
		return nil, err
	}

	s.log.Info("granted admin role", zap.String("auth_id", identity.ID.String()))
	return &domain.GrantResult{Success: true}, nil
}

func (s *service) ListUsers(ctx context.Context, req domain.ListUsersRequest) (*domain.ListUsersResult, error) {
	if req.Role != "" && req.Role != authdomain.RoleUser && req.Role != authdomain.RoleAdmin {
		return nil, apperr.BadRequest("invalid role filter")
	}

	identities, err := s.repo.ListIdentities(ctx, req)
	if err != nil {
		return nil, err
	}

	limit := req.Pagination.Limit()
	page := make([]*authdomain.AuthUser, len(identities))
	for i := range identities {
		page[i] = &identities[i]
	}

	page, pageInfo := pagination.BuildCursorPageInfo(page, limit, func(u *authdomain.AuthUser) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        u.ID.String(),
			CreatedAt: u.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	users := make([]domain.UserView, 0, len(page))
	for _, identity := range page {
		users = append(users, toUserView(identity))
	}

	return &domain.ListUsersResult{Users: users, PageInfo: pageInfo}, nil
}

func (s *service) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	total, err := s.repo.CountIdentities(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.RecentIdentities(ctx, recentUserCount)
	if err != nil {
		return nil, err
	}
	recentViews := make([]domain.UserView, 0, len(recent))
	for i := range recent {
		recentViews = append(recentViews, toUserView(&recent[i]))
	}

	now := time.Now().UTC()
	since := now.Add(-signupWindow).Truncate(24 * time.Hour)
	stamps, err := s.repo.IdentitiesCreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	roles, err := s.repo.SampleRoles(ctx, domain.RoleSampleSize)
	if err != nil {
		return nil, err
	}
	var adminCount int64
	for _, role := range roles {
		if role == authdomain.RoleAdmin {
			adminCount++
		}
	}

	return &domain.DashboardStats{
		TotalUsers:   total,
		AdminCount:   adminCount,
		Estimated:    total > domain.RoleSampleSize,
		RecentUsers:  recentViews,
		SignupsByDay: bucketByDay(stamps, now),
	}, nil
}

// bucketByDay produces one entry per day for the trailing week, oldest
// first, with zero-filled gaps.
func bucketByDay(stamps []time.Time, now time.Time) []domain.DayCount {
	counts := make(map[string]int64, 7)
	for _, ts := range stamps {
		counts[ts.UTC().Format("2006-01-02")]++
	}

	out := make([]domain.DayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		out = append(out, domain.DayCount{Date: day, Count: counts[day]})
	}
	return out
}

func toUserView(identity *authdomain.AuthUser) domain.UserView {
	return domain.UserView{
		ID:        identity.ID,
		UserID:    identity.UserID,
		Email:     identity.Email,
		Name:      identity.Name,
		Image:     identity.Image,
		Role:      identity.Role,
		Banned:    identity.Banned,
		CreatedAt: identity.CreatedAt,
	}
}
