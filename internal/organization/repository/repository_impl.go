package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/pankaj-raikar/taskhive/internal/organization/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{db: tx}
}

func (r *repo) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repo) GetOrganization(ctx context.Context, orgID snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Where("id = ?", orgID).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrgNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repo) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrgNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repo) UpdateOrganization(ctx context.Context, orgID snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.Organization{}).Where("id = ?", orgID).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrOrgNotFound
	}
	return nil
}

func (r *repo) DeleteOrganization(ctx context.Context, orgID snowflake.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("org_id = ?", orgID).Delete(&domain.Member{}).Error; err != nil {
			return err
		}
		if err := tx.Where("org_id = ?", orgID).Delete(&domain.Invitation{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", orgID).Delete(&domain.Organization{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrOrgNotFound
		}
		return nil
	})
}

func (r *repo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Organization{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repo) AddMember(ctx context.Context, member *domain.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repo) GetMember(ctx context.Context, orgID, userID snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := r.db.WithContext(ctx).Where("org_id = ? AND user_id = ?", orgID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repo) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.MemberDetail, error) {
	var members []domain.MemberDetail
	err := r.db.WithContext(ctx).
		Model(&domain.Member{}).
		Select("organization_members.*, users.name AS name, users.email AS email, users.image AS image").
		Joins("JOIN users ON users.id = organization_members.user_id").
		Where("organization_members.org_id = ?", orgID).
		Order("organization_members.created_at ASC").
		Scan(&members).Error
	return members, err
}

func (r *repo) CountMembers(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Member{}).Where("org_id = ?", orgID).Count(&count).Error
	return count, err
}

func (r *repo) CountMembershipsByUser(ctx context.Context, userID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Member{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *repo) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	var items []domain.OrganizationListItem
	err := r.db.WithContext(ctx).
		Model(&domain.Organization{}).
		Select("organizations.*, organization_members.role AS role").
		Joins("JOIN organization_members ON organization_members.org_id = organizations.id").
		Where("organization_members.user_id = ?", userID).
		Order("organizations.created_at ASC").
		Scan(&items).Error
	return items, err
}

func (r *repo) UpdateMemberRole(ctx context.Context, orgID, userID snowflake.ID, role string) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Update("role", role)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repo) RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error {
	tx := r.db.WithContext(ctx).Where("org_id = ? AND user_id = ?", orgID, userID).Delete(&domain.Member{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repo) CreateInvitation(ctx context.Context, invitation *domain.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *repo) GetInvitation(ctx context.Context, invitationID snowflake.ID) (*domain.Invitation, error) {
	var invitation domain.Invitation
	err := r.db.WithContext(ctx).Where("id = ?", invitationID).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repo) UpdateInvitationStatus(ctx context.Context, invitationID snowflake.ID, status string) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ?", invitationID).
		Update("status", status)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

func (r *repo) ListInvitationsByStatus(ctx context.Context, orgID snowflake.ID, status string) ([]domain.Invitation, error) {
	var invitations []domain.Invitation
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status = ?", orgID, status).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

func (r *repo) CancelPendingInvitations(ctx context.Context, orgID snowflake.ID, email string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("org_id = ? AND email = ? AND status = ?", orgID, email, domain.InvitationPending).
		Update("status", domain.InvitationCanceled).Error
}

func (r *repo) CountPendingInvitations(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("org_id = ? AND status = ?", orgID, domain.InvitationPending).
		Count(&count).Error
	return count, err
}
