package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/internal/access"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionUserResponse struct {
	User         *access.SessionUser         `json:"user"`
	Organization *access.OrganizationSummary `json:"organization,omitempty"`
	IsAdmin      bool                        `json:"isAdmin"`
}

func (s *Server) registerAuthRoutes(g *gin.RouterGroup) {
	currentSession := access.NewPublicQuery(s.builder, access.Config{},
		func(ctx context.Context, ac *access.Context, _ struct{}) (*sessionUserResponse, error) {
			resp := &sessionUserResponse{User: ac.User, IsAdmin: ac.IsAdmin}
			if ac.HasOrganization() {
				org := ac.Organization
				resp.Organization = &org
			}
			return resp, nil
		})

	auth := g.Group("/auth")
	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/session", handle(s, currentSession, bindNothing, http.StatusOK))
}

// Signup provisions the account and signs the new user straight in.
func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	_, err := s.authsvc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, mapAuthError(err))
		return
	}

	result, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, mapAuthError(err))
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusCreated, gin.H{
		"user": gin.H{
			"email": result.User.Email,
			"name":  result.User.Name,
		},
	})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, mapAuthError(err))
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"email": result.User.Email,
			"name":  result.User.Name,
		},
	})
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		_ = s.authsvc.Logout(c.Request.Context(), token)
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// mapAuthError keeps credential failures indistinguishable from unknown
// accounts.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrUserNotFound):
		return apperr.New(apperr.CodeUnauthenticated, "invalid email or password")
	case errors.Is(err, authdomain.ErrUserExists):
		return apperr.Conflict("an account with this email already exists")
	case errors.Is(err, authdomain.ErrUserBanned):
		return apperr.Forbidden("this account is suspended")
	default:
		return err
	}
}
