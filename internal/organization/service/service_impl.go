package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/pankaj-raikar/taskhive/internal/organization/domain"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const slugAttempts = 10

type service struct {
	log   *zap.Logger
	db    *gorm.DB
	repo  domain.Repository
	users userdomain.Repository
	genID *snowflake.Node
}

func New(log *zap.Logger, conn *gorm.DB, repo domain.Repository, users userdomain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		log:   log.Named("organization.service"),
		db:    conn,
		repo:  repo,
		users: users,
		genID: genID,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.BadRequest("organization name is required")
	}

	orgSlug, err := s.generateSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	org := &domain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      orgSlug,
		Logo:      strings.TrimSpace(req.Logo),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}
		return repo.AddMember(ctx, &domain.Member{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			UserID:    userID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		})
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, apperr.BadRequest("organization slug is already taken")
		}
		return nil, err
	}

	return org, nil
}

func (s *service) EnsurePersonal(ctx context.Context, userID snowflake.ID, displayName string) (*domain.Organization, error) {
	memberships, err := s.repo.CountMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if memberships > 0 {
		return nil, nil
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "Personal"
	}

	now := time.Now().UTC()
	org := &domain.Organization{
		ID:         s.genID.Generate(),
		Name:       fmt.Sprintf("%s's Organization", name),
		Slug:       "personal-" + randomSuffix(),
		IsPersonal: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}
		return repo.AddMember(ctx, &domain.Member{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			UserID:    userID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

func (s *service) Get(ctx context.Context, orgID snowflake.ID) (*domain.Organization, error) {
	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrOrgNotFound) {
			return nil, apperr.NotFound("organization not found")
		}
		return nil, err
	}
	return org, nil
}

func (s *service) GetBySlug(ctx context.Context, userID snowflake.ID, orgSlug string) (*domain.OrganizationDetail, error) {
	org, err := s.repo.GetOrganizationBySlug(ctx, orgSlug)
	if err != nil {
		if errors.Is(err, domain.ErrOrgNotFound) {
			return nil, apperr.NotFound("organization not found")
		}
		return nil, err
	}

	member, err := s.repo.GetMember(ctx, org.ID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, apperr.NotFound("organization not found")
		}
		return nil, err
	}

	count, err := s.repo.CountMembers(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	return &domain.OrganizationDetail{
		Organization: *org,
		Role:         member.Role,
		MemberCount:  count,
		IsPersonal:   org.IsPersonal,
	}, nil
}

func (s *service) ListByUser(ctx context.Context, userID snowflake.ID, excludeOrgID *snowflake.ID, personalOrgID *snowflake.ID) ([]domain.OrganizationListItem, error) {
	items, err := s.repo.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OrganizationListItem, 0, len(items))
	for _, item := range items {
		if excludeOrgID != nil && item.ID == *excludeOrgID {
			continue
		}
		item.IsPersonal = item.Organization.IsPersonal
		if personalOrgID != nil && item.ID == *personalOrgID {
			item.IsPersonal = true
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, userID, orgID snowflake.ID, req domain.UpdateOrganizationRequest) (*domain.Organization, error) {
	org, err := s.requireOwner(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.BadRequest("organization name is required")
		}
		fields["name"] = name
	}
	if req.Slug != nil {
		if org.IsPersonal {
			return nil, apperr.BadRequest("personal organization slug cannot be changed")
		}
		newSlug := slug.Make(strings.TrimSpace(*req.Slug))
		if newSlug == "" {
			return nil, apperr.BadRequest("organization slug is required")
		}
		if newSlug != org.Slug {
			exists, err := s.repo.SlugExists(ctx, newSlug)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, apperr.BadRequest("organization slug is already taken")
			}
			fields["slug"] = newSlug
		}
	}
	if req.Logo != nil {
		fields["logo"] = strings.TrimSpace(*req.Logo)
	}

	if err := s.repo.UpdateOrganization(ctx, orgID, fields); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, apperr.BadRequest("organization slug is already taken")
		}
		return nil, err
	}
	return s.repo.GetOrganization(ctx, orgID)
}

func (s *service) Delete(ctx context.Context, userID, orgID snowflake.ID) error {
	org, err := s.requireOwner(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if org.IsPersonal {
		return apperr.Forbidden("personal organization cannot be deleted")
	}
	return s.repo.DeleteOrganization(ctx, orgID)
}

func (s *service) MemberRole(ctx context.Context, orgID, userID snowflake.ID) (string, error) {
	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (s *service) ListMembers(ctx context.Context, userID, orgID snowflake.ID) ([]domain.MemberDetail, error) {
	if _, err := s.repo.GetMember(ctx, orgID, userID); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, apperr.Forbidden("not a member of this organization")
		}
		return nil, err
	}
	return s.repo.ListMembers(ctx, orgID)
}

func (s *service) RemoveMember(ctx context.Context, userID, orgID, targetUserID snowflake.ID) error {
	if _, err := s.requireOwner(ctx, orgID, userID); err != nil {
		return err
	}
	if targetUserID == userID {
		return apperr.BadRequest("owners cannot remove themselves; leave or delete the organization instead")
	}

	target, err := s.repo.GetMember(ctx, orgID, targetUserID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return apperr.NotFound("member not found")
		}
		return err
	}
	if target.Role == domain.RoleOwner {
		return apperr.BadRequest("owners cannot be removed")
	}
	return s.repo.RemoveMember(ctx, orgID, targetUserID)
}

func (s *service) UpdateMemberRole(ctx context.Context, userID, orgID, targetUserID snowflake.ID, role string) error {
	if role != domain.RoleOwner && role != domain.RoleMember {
		return apperr.BadRequest("invalid member role")
	}
	if _, err := s.requireOwner(ctx, orgID, userID); err != nil {
		return err
	}
	if targetUserID == userID {
		return apperr.BadRequest("cannot change your own role")
	}

	if _, err := s.repo.GetMember(ctx, orgID, targetUserID); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return apperr.NotFound("member not found")
		}
		return err
	}
	return s.repo.UpdateMemberRole(ctx, orgID, targetUserID, role)
}

func (s *service) Leave(ctx context.Context, userID, orgID snowflake.ID) error {
	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrOrgNotFound) {
			return apperr.NotFound("organization not found")
		}
		return err
	}
	if org.IsPersonal {
		return apperr.BadRequest("personal organization cannot be left")
	}

	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return apperr.BadRequest("not a member of this organization")
		}
		return err
	}
	if member.Role == domain.RoleOwner {
		return apperr.BadRequest("owners cannot leave; transfer ownership or delete the organization")
	}
	return s.repo.RemoveMember(ctx, orgID, userID)
}

func (s *service) Invite(ctx context.Context, userID, orgID snowflake.ID, email, role string) (*domain.Invitation, error) {
	if _, err := s.requireOwner(ctx, orgID, userID); err != nil {
		return nil, err
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, apperr.BadRequest("invalid email address")
	}
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleOwner && role != domain.RoleMember {
		return nil, apperr.BadRequest("invalid member role")
	}

	// The cap counts current members plus outstanding invites.
	members, err := s.repo.CountMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.CountPendingInvitations(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if members+pending >= domain.MemberLimit {
		return nil, apperr.LimitExceeded(fmt.Sprintf("organization member limit of %d reached", domain.MemberLimit))
	}

	if invitee, err := s.users.FindByEmail(ctx, normalized); err == nil {
		if _, err := s.repo.GetMember(ctx, orgID, invitee.ID); err == nil {
			return nil, apperr.Conflict("user is already a member of this organization")
		} else if !errors.Is(err, domain.ErrMemberNotFound) {
			return nil, err
		}
	} else if !errors.Is(err, userdomain.ErrUserNotFound) {
		return nil, err
	}

	if err := s.repo.CancelPendingInvitations(ctx, orgID, normalized); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	invitation := &domain.Invitation{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Email:     normalized,
		Role:      role,
		Status:    domain.InvitationPending,
		InviterID: userID,
		ExpiresAt: now.Add(domain.InvitationTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateInvitation(ctx, invitation); err != nil {
		return nil, err
	}

	// Delivery is best effort. A failed email never rolls back the invite.
	s.log.Info("invitation created",
		zap.String("org_id", orgID.String()),
		zap.String("email", normalized),
		zap.String("invitation_id", invitation.ID.String()),
	)

	return invitation, nil
}

func (s *service) ListPendingInvitations(ctx context.Context, userID, orgID snowflake.ID) ([]domain.Invitation, error) {
	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil || member.Role != domain.RoleOwner {
		// Non-owners see an empty list rather than an error.
		return []domain.Invitation{}, nil
	}
	return s.repo.ListInvitationsByStatus(ctx, orgID, domain.InvitationPending)
}

func (s *service) GetInvitation(ctx context.Context, invitationID snowflake.ID) (*domain.Invitation, error) {
	invitation, err := s.repo.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			return nil, apperr.NotFound("invitation not found")
		}
		return nil, err
	}
	return invitation, nil
}

func (s *service) AcceptInvitation(ctx context.Context, userID snowflake.ID, email string, invitationID snowflake.ID) (*domain.Invitation, error) {
	invitation, err := s.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(invitation.Email, strings.TrimSpace(email)) {
		return nil, apperr.Forbidden("invitation belongs to a different email address")
	}
	if invitation.Status != domain.InvitationPending {
		return nil, apperr.BadRequest("invitation is no longer pending")
	}
	if time.Now().UTC().After(invitation.ExpiresAt) {
		return nil, apperr.BadRequest("invitation has expired")
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// Counting inside the transaction keeps two concurrent accepts
		// from both landing under the cap.
		members, err := repo.CountMembers(ctx, invitation.OrgID)
		if err != nil {
			return err
		}
		if members >= domain.MemberLimit {
			return apperr.LimitExceeded(fmt.Sprintf("organization member limit of %d reached", domain.MemberLimit))
		}
		if err := repo.AddMember(ctx, &domain.Member{
			ID:        s.genID.Generate(),
			OrgID:     invitation.OrgID,
			UserID:    userID,
			Role:      invitation.Role,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return repo.UpdateInvitationStatus(ctx, invitationID, domain.InvitationAccepted)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, apperr.Conflict("user is already a member of this organization")
		}
		return nil, err
	}

	invitation.Status = domain.InvitationAccepted
	return invitation, nil
}

func (s *service) RejectInvitation(ctx context.Context, email string, invitationID snowflake.ID) error {
	invitation, err := s.GetInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(invitation.Email, strings.TrimSpace(email)) {
		return apperr.Forbidden("invitation belongs to a different email address")
	}
	if invitation.Status != domain.InvitationPending {
		return apperr.BadRequest("invitation is no longer pending")
	}
	return s.repo.UpdateInvitationStatus(ctx, invitationID, domain.InvitationRejected)
}

func (s *service) CancelInvitation(ctx context.Context, userID snowflake.ID, invitationID snowflake.ID) error {
	invitation, err := s.GetInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	if _, err := s.requireOwner(ctx, invitation.OrgID, userID); err != nil {
		return err
	}
	if invitation.Status != domain.InvitationPending {
		return apperr.BadRequest("invitation is no longer pending")
	}
	return s.repo.UpdateInvitationStatus(ctx, invitationID, domain.InvitationCanceled)
}

func (s *service) requireOwner(ctx context.Context, orgID, userID snowflake.ID) (*domain.Organization, error) {
	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrOrgNotFound) {
			return nil, apperr.NotFound("organization not found")
		}
		return nil, err
	}

	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, apperr.Forbidden("only organization owners may do this")
		}
		return nil, err
	}
	if member.Role != domain.RoleOwner {
		return nil, apperr.Forbidden("only organization owners may do this")
	}
	return org, nil
}

func (s *service) generateSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "org"
	}

	candidate := base
	for i := 0; i < slugAttempts; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + randomSuffix()
	}
	return "", apperr.BadRequest("could not generate a unique organization slug")
}

func randomSuffix() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano()%1_000_000)
	}
	return hex.EncodeToString(buf)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
