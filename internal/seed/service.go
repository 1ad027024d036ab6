package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/config"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	projectdomain "github.com/pankaj-raikar/taskhive/internal/project/domain"
	tagdomain "github.com/pankaj-raikar/taskhive/internal/tag/domain"
	tododomain "github.com/pankaj-raikar/taskhive/internal/todo/domain"
)

const (
	demoEmail    = "demo@taskhive.dev"
	demoPassword = "demo1234"
	demoName     = "Demo User"
)

// Result summarizes what a seeding run created.
type Result struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Projects int    `json:"projects"`
	Todos    int    `json:"todos"`
	Tags     int    `json:"tags"`
}

// Service populates a development database with demo data and wipes it
// again. Every entry point refuses to run in production.
type Service struct {
	log      *zap.Logger
	cfg      *config.Config
	conn     *gorm.DB
	auth     authdomain.Service
	projects projectdomain.Service
	todos    tododomain.Service
	tags     tagdomain.Service
}

func New(
	log *zap.Logger,
	cfg *config.Config,
	conn *gorm.DB,
	auth authdomain.Service,
	projects projectdomain.Service,
	todos tododomain.Service,
	tags tagdomain.Service,
) *Service {
	return &Service{
		log:      log.Named("seed.service"),
		cfg:      cfg,
		conn:     conn,
		auth:     auth,
		projects: projects,
		todos:    todos,
		tags:     tags,
	}
}

// Seed provisions the demo account with a handful of projects, todos and
// tags. Running it twice is safe: the demo identity is reused and the fixture
// rows are re-created on top of whatever is already there.
func (s *Service) Seed(ctx context.Context) (*Result, error) {
	if s.cfg.IsProduction() {
		return nil, apperr.Forbidden("seeding is not available")
	}

	identity, err := s.ensureDemoIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if identity.UserID == nil {
		return nil, errors.New("demo identity was not provisioned")
	}
	userID := *identity.UserID

	work, err := s.projects.Create(ctx, userID, projectdomain.CreateProjectRequest{
		Name:        "Getting Started",
		Description: "A tour of taskhive",
		IsPublic:    true,
	})
	if err != nil {
		return nil, err
	}
	home, err := s.projects.Create(ctx, userID, projectdomain.CreateProjectRequest{
		Name: "Personal",
	})
	if err != nil {
		return nil, err
	}

	tagIDs := map[string]tagdomain.Tag{}
	for _, t := range []tagdomain.CreateTagRequest{
		{Name: "urgent", Color: "#ef4444"},
		{Name: "later", Color: "#3b82f6"},
		{Name: "chore", Color: "#10b981"},
	} {
		tag, err := s.tags.Create(ctx, userID, t)
		if err != nil {
			return nil, err
		}
		tagIDs[tag.Name] = *tag
	}

	due := time.Now().Add(48 * time.Hour)
	fixtures := []struct {
		req  tododomain.CreateTodoRequest
		tags []string
	}{
		{tododomain.CreateTodoRequest{Title: "Explore your workspace", Priority: "high", ProjectID: &work.ID, DueDate: &due}, []string{"urgent"}},
		{tododomain.CreateTodoRequest{Title: "Invite a teammate", Priority: "medium", ProjectID: &work.ID}, []string{"later"}},
		{tododomain.CreateTodoRequest{Title: "Create your first tag", Priority: "low", ProjectID: &work.ID}, nil},
		{tododomain.CreateTodoRequest{Title: "Water the plants", Priority: "low", ProjectID: &home.ID}, []string{"chore"}},
		{tododomain.CreateTodoRequest{Title: "Plan the week", Priority: "medium"}, []string{"urgent", "later"}},
	}
	for _, f := range fixtures {
		todo, err := s.todos.Create(ctx, userID, f.req)
		if err != nil {
			return nil, err
		}
		for _, name := range f.tags {
			tag := tagIDs[name]
			if _, err := s.tags.AddTags(ctx, userID, todo.ID, []snowflake.ID{tag.ID}); err != nil {
				return nil, err
			}
		}
	}

	s.log.Info("demo data seeded", zap.String("email", demoEmail))
	return &Result{
		UserID:   userID.String(),
		Email:    demoEmail,
		Projects: 2,
		Todos:    len(fixtures),
		Tags:     len(tagIDs),
	}, nil
}

// Reset wipes the task-domain tables. Identities, workspaces and sessions
// stay put so a reset never logs anyone out.
func (s *Service) Reset(ctx context.Context) error {
	if s.cfg.IsProduction() {
		return apperr.Forbidden("reset is not available")
	}

	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"todo_tags", "todos", "tags", "project_members", "projects"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("task data reset")
	return nil
}

func (s *Service) ensureDemoIdentity(ctx context.Context) (*authdomain.AuthUser, error) {
	existing, err := s.auth.FindByEmail(ctx, demoEmail)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, authdomain.ErrUserNotFound) {
		return nil, err
	}
	return s.auth.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    demoEmail,
		Name:     demoName,
		Password: demoPassword,
	})
}
