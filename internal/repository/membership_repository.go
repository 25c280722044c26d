package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
)

// MembershipRepository reads and writes organization memberships. GetRole is the
// role store behind every organization access decision and is never cached.
type MembershipRepository interface {
	GetRole(ctx context.Context, userID, organizationID string) (models.OrgRole, bool, error)
	Add(ctx context.Context, member *models.OrganizationMember) error
	Get(ctx context.Context, organizationID, userID string) (*models.OrganizationMember, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.OrganizationMember, error)
	ListByUser(ctx context.Context, userID string) ([]models.OrganizationMember, error)
	UpdateRole(ctx context.Context, organizationID, userID string, role models.OrgRole) error
	Remove(ctx context.Context, organizationID, userID string) error
	CountByRole(ctx context.Context, organizationID string, role models.OrgRole) (int64, error)
	SoleOwnedOrganizations(ctx context.Context, userID string) ([]string, error)
	WithTx(tx *gorm.DB) MembershipRepository
}

type gormMembershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository returns a gorm-backed MembershipRepository.
func NewMembershipRepository(db *gorm.DB) (MembershipRepository, error) {
	if db == nil {
		return nil, errors.New("membership repository: db is required")
	}
	return &gormMembershipRepository{db: db}, nil
}

func (r *gormMembershipRepository) WithTx(tx *gorm.DB) MembershipRepository {
	return &gormMembershipRepository{db: tx}
}

func (r *gormMembershipRepository) GetRole(ctx context.Context, userID, organizationID string) (models.OrgRole, bool, error) {
	var member models.OrganizationMember
	err := r.db.WithContext(ctx).
		Select("role").
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("membership repository: get role: %w", err)
	}
	return member.Role, true, nil
}

func (r *gormMembershipRepository) Add(ctx context.Context, member *models.OrganizationMember) error {
	if err := r.db.WithContext(ctx).Omit("Organization", "User").Create(member).Error; err != nil {
		return fmt.Errorf("membership repository: add: %w", err)
	}
	return nil
}

func (r *gormMembershipRepository) Get(ctx context.Context, organizationID, userID string) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Take(&member).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &member, nil
}

func (r *gormMembershipRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", organizationID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("membership repository: list members: %w", err)
	}
	return members, nil
}

func (r *gormMembershipRepository) ListByUser(ctx context.Context, userID string) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("membership repository: list memberships: %w", err)
	}
	return members, nil
}

func (r *gormMembershipRepository) UpdateRole(ctx context.Context, organizationID, userID string, role models.OrgRole) error {
	res := r.db.WithContext(ctx).
		Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("membership repository: update role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormMembershipRepository) Remove(ctx context.Context, organizationID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Delete(&models.OrganizationMember{})
	if res.Error != nil {
		return fmt.Errorf("membership repository: remove: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormMembershipRepository) CountByRole(ctx context.Context, organizationID string, role models.OrgRole) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND role = ?", organizationID, role).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("membership repository: count: %w", err)
	}
	return count, nil
}

// SoleOwnedOrganizations lists the organizations in which userID is the only owner.
func (r *gormMembershipRepository) SoleOwnedOrganizations(ctx context.Context, userID string) ([]string, error) {
	db := r.db.WithContext(ctx)
	singleOwner := db.Model(&models.OrganizationMember{}).
		Select("organization_id").
		Where("role = ?", models.OrgRoleOwner).
		Group("organization_id").
		Having("COUNT(*) = 1")

	var ids []string
	if err := db.Model(&models.OrganizationMember{}).
		Where("user_id = ? AND role = ?", userID, models.OrgRoleOwner).
		Where("organization_id IN (?)", singleOwner).
		Order("organization_id").
		Pluck("organization_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("membership repository: sole owned organizations: %w", err)
	}
	return ids, nil
}
