package migration

import (
	"github.com/pankaj-raikar/taskhive/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"

	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	orgdomain "github.com/pankaj-raikar/taskhive/internal/organization/domain"
	projectdomain "github.com/pankaj-raikar/taskhive/internal/project/domain"
	tagdomain "github.com/pankaj-raikar/taskhive/internal/tag/domain"
	tododomain "github.com/pankaj-raikar/taskhive/internal/todo/domain"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg *config.Config) error {
		if cfg.DBDriver == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		return conn.AutoMigrate(
			&authdomain.AuthUser{},
			&authdomain.Session{},
			&userdomain.User{},
			&orgdomain.Organization{},
			&orgdomain.Member{},
			&orgdomain.Invitation{},
			&projectdomain.Project{},
			&projectdomain.Member{},
			&tododomain.Todo{},
			&tagdomain.Tag{},
			&tagdomain.TodoTag{},
		)
	}),
)
