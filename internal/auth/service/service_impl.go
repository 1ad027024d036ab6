package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"github.com/pankaj-raikar/taskhive/internal/auth/password"
	"github.com/pankaj-raikar/taskhive/internal/config"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32
	sessionTTL        = 7 * 24 * time.Hour

	minPasswordLength = 8
)

type Service struct {
	log         *zap.Logger
	cfg         *config.Config
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	sink        domain.LifecycleSink
	genID       *snowflake.Node
}

func New(log *zap.Logger, cfg *config.Config, repo domain.Repository, sessionRepo domain.SessionRepository, sink domain.LifecycleSink, genID *snowflake.Node) domain.Service {
	return &Service{
		log:         log.Named("auth.service"),
		cfg:         cfg,
		repo:        repo,
		sessionRepo: sessionRepo,
		sink:        sink,
		genID:       genID,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.AuthUser, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrInvalidCredentials
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	role := domain.RoleUser
	if s.cfg.IsAdminEmail(email) {
		role = domain.RoleAdmin
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultName(email)
	}
	now := time.Now().UTC()
	user := &domain.AuthUser{
		ID:           s.genID.Generate(),
		Email:        email,
		Name:         name,
		Image:        strings.TrimSpace(req.Image),
		Role:         role,
		PasswordHash: &hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.sink != nil {
		appUserID, err := s.sink.OnUserCreated(ctx, user)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{"user_id": appUserID}); err != nil {
			return nil, err
		}
		user.UserID = &appUserID
	}

	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if user.IsBanned(now) {
		return nil, domain.ErrUserBanned
	}

	// Promote on sign-in when the address joined the ADMIN list after
	// the account was created. Skipped when already admin.
	if user.Role != domain.RoleAdmin && s.cfg.IsAdminEmail(email) {
		if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{"role": domain.RoleAdmin}); err != nil {
			return nil, err
		}
		user.Role = domain.RoleAdmin
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:         s.genID.Generate(),
		AuthUserID: user.ID,
		TokenHash:  hashToken(rawToken),
		UserAgent:  strings.TrimSpace(req.UserAgent),
		IPAddress:  strings.TrimSpace(req.IPAddress),
		ExpiresAt:  now.Add(sessionTTL),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		User:      user,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}

	now := time.Now().UTC()
	return s.sessionRepo.RevokeSession(ctx, session.ID, now)
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Session, *domain.AuthUser, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil, domain.ErrInvalidSession
		}
		return nil, nil, err
	}

	now := time.Now().UTC()
	if session.RevokedAt != nil {
		return nil, nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, session.AuthUserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidSession
		}
		return nil, nil, err
	}
	if user.IsBanned(now) {
		return nil, nil, domain.ErrUserBanned
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

func (s *Service) UpdateActiveOrganization(ctx context.Context, sessionID snowflake.ID, orgID *snowflake.ID) error {
	return s.sessionRepo.UpdateActiveOrg(ctx, sessionID, orgID)
}

func (s *Service) UpdateRole(ctx context.Context, id snowflake.ID, role string) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return domain.ErrInvalidRole
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == role {
		return nil
	}

	if err := s.repo.UpdateFields(ctx, id, map[string]any{"role": role}); err != nil {
		return err
	}

	user.Role = role
	if s.sink != nil {
		if err := s.sink.OnUserUpdated(ctx, user); err != nil {
			s.log.Warn("lifecycle sink update failed", zap.Error(err), zap.String("auth_user_id", id.String()))
		}
	}
	return nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*domain.AuthUser, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return s.repo.FindByEmail(ctx, normalized)
}

func (s *Service) FindByUserID(ctx context.Context, userID snowflake.ID) (*domain.AuthUser, error) {
	return s.repo.FindByUserID(ctx, userID)
}

func (s *Service) FindByAuthID(ctx context.Context, id snowflake.ID) (*domain.AuthUser, error) {
	return s.repo.FindByID(ctx, id)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func defaultName(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
