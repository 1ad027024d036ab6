package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateProfile(ctx context.Context, id snowflake.ID, req UpdateProfileRequest) (*User, error)
	SetLastActiveOrganization(ctx context.Context, id snowflake.ID, orgID snowflake.ID) error
	SetPersonalOrganization(ctx context.Context, id snowflake.ID, orgID snowflake.ID) error
	SoftDelete(ctx context.Context, id snowflake.ID) error
}
