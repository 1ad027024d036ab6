package access

import (
	"context"

	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
)

// AssertAuthenticated rejects anonymous callers.
func (b *Builder) AssertAuthenticated(ctx context.Context, ac *Context) error {
	if !ac.Authenticated() {
		b.metrics.RecordGuardDenial(ctx, "authenticated")
		return apperr.Unauthenticated()
	}
	return nil
}

// AssertRole rejects callers whose identity role does not satisfy the
// required one. Admin satisfies every role.
func (b *Builder) AssertRole(ctx context.Context, ac *Context, role string) error {
	if err := b.AssertAuthenticated(ctx, ac); err != nil {
		return err
	}
	if role == "" || role == authdomain.RoleUser {
		return nil
	}
	if role == authdomain.RoleAdmin && ac.IsAdmin {
		return nil
	}
	b.metrics.RecordGuardDenial(ctx, "role:"+role)
	return apperr.Forbidden("Insufficient permissions")
}
