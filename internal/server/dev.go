package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/internal/access"
	"github.com/pankaj-raikar/taskhive/internal/seed"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
)

// Dev routes are bound unconditionally; the DevOnly wrapper rejects them
// in production so route visibility never depends on deploy environment.
func (s *Server) registerDevRoutes(g *gin.RouterGroup) {
	seedOp := access.NewPublicMutation(s.builder, access.Config{DevOnly: true},
		func(ctx context.Context, _ *access.Context, _ struct{}) (*seed.Result, error) {
			if s.seedsvc == nil {
				return nil, apperr.Forbidden("seeding is not available")
			}
			return s.seedsvc.Seed(ctx)
		})

	resetOp := access.NewPublicMutation(s.builder, access.Config{DevOnly: true},
		func(ctx context.Context, _ *access.Context, _ struct{}) (gin.H, error) {
			if s.seedsvc == nil {
				return nil, apperr.Forbidden("reset is not available")
			}
			if err := s.seedsvc.Reset(ctx); err != nil {
				return nil, err
			}
			return gin.H{"success": true}, nil
		})

	dev := g.Group("/dev")
	dev.POST("/seed", handle(s, seedOp, bindNothing, http.StatusOK))
	dev.POST("/reset", handle(s, resetOp, bindNothing, http.StatusOK))
}
