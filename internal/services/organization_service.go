package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/permissions"
	"github.com/charlesng35/estatehub/internal/repository"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/validator"
)

// MsgLastOwner is returned when a change would leave an organization without an owner.
const MsgLastOwner = "An organization must keep at least one owner"

// CreateOrganizationInput captures the attributes required to register an organization.
type CreateOrganizationInput struct {
	Name        string         `json:"name" validate:"required,max=120"`
	Slug        string         `json:"slug" validate:"omitempty,slug,max=120"`
	Description string         `json:"description" validate:"max=2000"`
	Settings    map[string]any `json:"settings"`
}

// UpdateOrganizationInput represents mutable organization fields.
type UpdateOrganizationInput struct {
	Name        *string        `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string        `json:"description" validate:"omitempty,max=2000"`
	Settings    map[string]any `json:"settings"`
}

// OrganizationMembership pairs an organization with the caller's role in it.
type OrganizationMembership struct {
	Organization models.Organization `json:"organization"`
	Role         models.OrgRole      `json:"role"`
}

// OrganizationService manages organizations and their memberships.
//
// Holders of the org.manage_all platform permission may inspect and delete any
// organization without a membership; every other operation follows org roles.
type OrganizationService struct {
	db      *gorm.DB
	members repository.MembershipRepository
	authz   *AuthorizationService
	checker PermissionChecker
	audit   *AuditService
}

// NewOrganizationService constructs an OrganizationService instance.
func NewOrganizationService(db *gorm.DB, members repository.MembershipRepository, authz *AuthorizationService, checker PermissionChecker, audit *AuditService) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	if members == nil {
		return nil, errors.New("organization service: membership repository is required")
	}
	if authz == nil {
		return nil, errors.New("organization service: authorization service is required")
	}
	return &OrganizationService{db: db, members: members, authz: authz, checker: checker, audit: audit}, nil
}

// Create registers a new organization with the caller as its first owner.
func (s *OrganizationService) Create(ctx context.Context, input CreateOrganizationInput, auth AuthContext) (*models.Organization, error) {
	ctx = ensureContext(ctx)
	if auth.UserID == "" {
		return nil, apperrors.NewUnauthorized(MsgAuthRequired)
	}

	input.Slug = strings.TrimSpace(input.Slug)
	if input.Slug == "" {
		input.Slug = slugify(input.Name)
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if input.Slug == "" {
		return nil, apperrors.NewValidation("slug could not be derived from name")
	}

	org := &models.Organization{
		Name:        sanitizePlain(input.Name),
		Slug:        input.Slug,
		Description: sanitizePlain(input.Description),
	}
	if input.Settings != nil {
		data, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, apperrors.NewValidation("settings must be a JSON object")
		}
		org.Settings = datatypes.JSON(data)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Create(org).Error; err != nil {
			return err
		}
		return s.members.WithTx(tx).Add(ctx, &models.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         auth.UserID,
			Role:           models.OrgRoleOwner,
		})
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("An organization with this slug already exists")
		}
		return nil, internalError(fmt.Errorf("organization service: create organization: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "organization.create", "organization:"+org.ID, "success", map[string]any{
		"name": org.Name,
		"slug": org.Slug,
	}))
	return org, nil
}

// ListForUser returns every organization the caller belongs to with their role.
func (s *OrganizationService) ListForUser(ctx context.Context, auth AuthContext) ([]OrganizationMembership, error) {
	ctx = ensureContext(ctx)
	if auth.UserID == "" {
		return nil, apperrors.NewUnauthorized(MsgAuthRequired)
	}

	memberships, err := s.members.ListByUser(ctx, auth.UserID)
	if err != nil {
		return nil, internalError(err)
	}
	out := make([]OrganizationMembership, 0, len(memberships))
	for _, m := range memberships {
		if m.Organization == nil {
			continue
		}
		out = append(out, OrganizationMembership{Organization: *m.Organization, Role: m.Role})
	}
	return out, nil
}

// ListAll pages through every organization. Requires org.manage_all.
func (s *OrganizationService) ListAll(ctx context.Context, query string, page repository.Pagination, auth AuthContext) (Page[models.Organization], error) {
	ctx = ensureContext(ctx)
	if err := requirePermission(ctx, s.checker, auth, permissions.OrgManageAll); err != nil {
		return Page[models.Organization]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.Organization{})
	if term := strings.ToLower(strings.TrimSpace(query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR slug LIKE ?", like, like)
	}
	return paginate[models.Organization](q, "created_at ASC", page)
}

// Get returns an organization to any of its members.
func (s *OrganizationService) Get(ctx context.Context, id string, auth AuthContext) (*models.Organization, error) {
	ctx = ensureContext(ctx)
	if err := s.memberOrPlatform(ctx, auth, id, s.authz.CanViewOrganizationProperties); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Update modifies organization metadata. Owners and admins only.
func (s *OrganizationService) Update(ctx context.Context, id string, input UpdateOrganizationInput, auth AuthContext) (*models.Organization, error) {
	ctx = ensureContext(ctx)
	if _, err := s.authz.CanManageOrganization(ctx, auth, id); err != nil {
		return nil, err
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	org, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if name := sanitizePlain(*input.Name); name != "" && name != org.Name {
			updates["name"] = name
		}
	}
	if input.Description != nil {
		updates["description"] = sanitizePlain(*input.Description)
	}
	if input.Settings != nil {
		data, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, apperrors.NewValidation("settings must be a JSON object")
		}
		updates["settings"] = datatypes.JSON(data)
	}
	if len(updates) == 0 {
		return org, nil
	}

	if err := s.db.WithContext(ctx).Model(org).Updates(updates).Error; err != nil {
		return nil, internalError(fmt.Errorf("organization service: update organization: %w", err))
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	recordAudit(s.audit, ctx, auditFor(auth, "organization.update", "organization:"+id, "success", map[string]any{
		"fields": fields,
	}))
	return s.load(ctx, id)
}

// Delete removes an organization, its memberships and invitations. Resources
// it owned are detached and stay with their creators.
func (s *OrganizationService) Delete(ctx context.Context, id string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	if err := s.memberOrPlatform(ctx, auth, id, s.authz.RequireOrganizationOwner); err != nil {
		return err
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Property{}, &models.Developer{}, &models.Project{}, &models.Article{}} {
			if err := tx.Model(model).Where("organization_id = ?", id).Update("organization_id", nil).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("organization_id = ?", id).Delete(&models.OrganizationInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", id).Delete(&models.OrganizationMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Organization{}).Error
	})
	if err != nil {
		return internalError(fmt.Errorf("organization service: delete organization: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "organization.delete", "organization:"+id, "success", nil))
	return nil
}

// ListMembers returns the members of an organization to any member.
func (s *OrganizationService) ListMembers(ctx context.Context, id string, auth AuthContext) ([]models.OrganizationMember, error) {
	ctx = ensureContext(ctx)
	if err := s.memberOrPlatform(ctx, auth, id, s.authz.CanViewOrganizationProperties); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	members, err := s.members.ListByOrganization(ctx, id)
	if err != nil {
		return nil, internalError(err)
	}
	return members, nil
}

// UpdateMemberRole changes a member's role. Admins manage admins, members and
// viewers; granting or revoking the owner role takes an owner.
func (s *OrganizationService) UpdateMemberRole(ctx context.Context, orgID, userID string, role models.OrgRole, auth AuthContext) (*models.OrganizationMember, error) {
	ctx = ensureContext(ctx)
	if !role.Valid() {
		return nil, apperrors.NewValidation("Invalid organization role")
	}
	orgCtx, err := s.authz.CanManageOrganization(ctx, auth, orgID)
	if err != nil {
		return nil, err
	}

	target, err := s.member(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}
	touchesOwner := role == models.OrgRoleOwner || target.Role == models.OrgRoleOwner
	if touchesOwner && orgCtx.UserRole != models.OrgRoleOwner {
		return nil, apperrors.NewForbidden("Only owners can grant or revoke the owner role")
	}
	if target.Role == models.OrgRoleOwner {
		if err := s.ensureAnotherOwner(ctx, orgID); err != nil {
			return nil, err
		}
	}

	if err := s.members.UpdateRole(ctx, orgID, userID, role); err != nil {
		return nil, internalError(err)
	}

	recordAudit(s.audit, ctx, auditFor(auth, "organization.member.role", "organization:"+orgID, "success", map[string]any{
		"user_id": userID,
		"from":    target.Role,
		"to":      role,
	}))
	target.Role = role
	return target, nil
}

// RemoveMember removes someone else from the organization.
func (s *OrganizationService) RemoveMember(ctx context.Context, orgID, userID string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	if userID == auth.UserID {
		return s.Leave(ctx, orgID, auth)
	}
	orgCtx, err := s.authz.CanManageOrganization(ctx, auth, orgID)
	if err != nil {
		return err
	}

	target, err := s.member(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if target.Role == models.OrgRoleOwner {
		if orgCtx.UserRole != models.OrgRoleOwner {
			return apperrors.NewForbidden("Only owners can remove an owner")
		}
		if err := s.ensureAnotherOwner(ctx, orgID); err != nil {
			return err
		}
	}

	if err := s.members.Remove(ctx, orgID, userID); err != nil {
		return internalError(err)
	}

	recordAudit(s.audit, ctx, auditFor(auth, "organization.member.remove", "organization:"+orgID, "success", map[string]any{
		"user_id": userID,
	}))
	return nil
}

// Leave removes the caller's own membership. The last owner cannot leave.
func (s *OrganizationService) Leave(ctx context.Context, orgID string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	if auth.UserID == "" {
		return apperrors.NewUnauthorized(MsgAuthRequired)
	}

	self, err := s.member(ctx, orgID, auth.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewForbidden(MsgNotOrgMember)
		}
		return err
	}
	if self.Role == models.OrgRoleOwner {
		if err := s.ensureAnotherOwner(ctx, orgID); err != nil {
			return err
		}
	}

	if err := s.members.Remove(ctx, orgID, auth.UserID); err != nil {
		return internalError(err)
	}

	recordAudit(s.audit, ctx, auditFor(auth, "organization.leave", "organization:"+orgID, "success", nil))
	return nil
}

type organizationGate func(ctx context.Context, auth AuthContext, organizationID string) (*OrganizationContext, error)

// memberOrPlatform runs gate and, when it refuses a signed-in caller, admits
// holders of org.manage_all instead.
func (s *OrganizationService) memberOrPlatform(ctx context.Context, auth AuthContext, id string, gate organizationGate) error {
	_, err := gate(ctx, auth, id)
	if err == nil || !errors.Is(err, apperrors.ErrForbidden) {
		return err
	}
	if requirePermission(ctx, s.checker, auth, permissions.OrgManageAll) != nil {
		return err
	}
	return nil
}

func (s *OrganizationService) load(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	err := s.db.WithContext(ctx).Take(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound(MsgOrganizationNotFound)
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("organization service: load organization: %w", err))
	}
	return &org, nil
}

func (s *OrganizationService) member(ctx context.Context, orgID, userID string) (*models.OrganizationMember, error) {
	member, err := s.members.Get(ctx, orgID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("Member not found")
		}
		return nil, internalError(err)
	}
	return member, nil
}

func (s *OrganizationService) ensureAnotherOwner(ctx context.Context, orgID string) error {
	owners, err := s.members.CountByRole(ctx, orgID, models.OrgRoleOwner)
	if err != nil {
		return internalError(err)
	}
	if owners <= 1 {
		return apperrors.NewConflict(MsgLastOwner)
	}
	return nil
}
