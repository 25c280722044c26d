package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/repository"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/validator"
)

// DeveloperInput describes a property developer profile.
type DeveloperInput struct {
	Name           string  `json:"name" validate:"required,max=150"`
	Slug           string  `json:"slug" validate:"omitempty,slug,max=150"`
	Description    string  `json:"description" validate:"max=10000"`
	Website        string  `json:"website" validate:"omitempty,url"`
	LogoURL        string  `json:"logo_url" validate:"omitempty,url"`
	OrganizationID *string `json:"organization_id"`
}

// DeveloperService manages developer profiles. Profiles are publicly readable;
// changes follow the same owner-or-organization rule as properties.
type DeveloperService struct {
	db    *gorm.DB
	authz *AuthorizationService
	audit *AuditService
}

func NewDeveloperService(db *gorm.DB, authz *AuthorizationService, audit *AuditService) (*DeveloperService, error) {
	if db == nil || authz == nil {
		return nil, errors.New("developer service: db and authorization service are required")
	}
	return &DeveloperService{db: db, authz: authz, audit: audit}, nil
}

func (s *DeveloperService) Create(ctx context.Context, input DeveloperInput, auth AuthContext) (*models.Developer, error) {
	ctx = ensureContext(ctx)
	if auth.UserID == "" {
		return nil, apperrors.NewUnauthorized(MsgAuthRequired)
	}
	if input.Slug = strings.TrimSpace(input.Slug); input.Slug == "" {
		input.Slug = slugify(input.Name)
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	orgID := trimmedPtr(input.OrganizationID)
	if orgID != nil {
		if _, err := s.authz.CanEditOrganizationProperties(ctx, auth, *orgID); err != nil {
			return nil, err
		}
	}

	developer := &models.Developer{
		Name:        sanitizePlain(input.Name),
		Slug:        input.Slug,
		Description: sanitizeRichText(input.Description),
		Website:     strings.TrimSpace(input.Website),
		LogoURL:     strings.TrimSpace(input.LogoURL),
		UserID:      auth.UserID,
		OrgID:       orgID,
	}
	if err := s.db.WithContext(ctx).Create(developer).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("A developer with this slug already exists")
		}
		return nil, internalError(fmt.Errorf("developer service: create: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "developer.create", "developer:"+developer.ID, "success", nil))
	return developer, nil
}

// Get looks a developer up by ID or slug.
func (s *DeveloperService) Get(ctx context.Context, idOrSlug string) (*models.Developer, error) {
	var developer models.Developer
	err := s.db.WithContext(ensureContext(ctx)).
		Scopes(func(db *gorm.DB) *gorm.DB { return byIDOrSlug(db, idOrSlug) }).
		Take(&developer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("Developer not found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return &developer, nil
}

// List returns developers, optionally for one organization, by name.
func (s *DeveloperService) List(ctx context.Context, organizationID, search string, page repository.Pagination) (Page[models.Developer], error) {
	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Developer{})
	if organizationID != "" {
		query = query.Where("organization_id = ?", organizationID)
	}
	if search = strings.TrimSpace(search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	return paginate[models.Developer](query, "name ASC", page)
}

func (s *DeveloperService) Update(ctx context.Context, id string, input DeveloperInput, auth AuthContext) (*models.Developer, error) {
	ctx = ensureContext(ctx)
	developer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanEditOwned(ctx, auth, developer.UserID, developer.OrgID) {
		return nil, apperrors.NewForbidden("Unauthorized to edit this developer")
	}
	if input.Slug = strings.TrimSpace(input.Slug); input.Slug == "" {
		input.Slug = developer.Slug
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	updates := map[string]any{
		"name":        sanitizePlain(input.Name),
		"slug":        input.Slug,
		"description": sanitizeRichText(input.Description),
		"website":     strings.TrimSpace(input.Website),
		"logo_url":    strings.TrimSpace(input.LogoURL),
	}
	if err := s.db.WithContext(ctx).Model(developer).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("A developer with this slug already exists")
		}
		return nil, internalError(fmt.Errorf("developer service: update: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "developer.update", "developer:"+developer.ID, "success", nil))
	return s.Get(ctx, developer.ID)
}

// Delete removes a developer. Projects and properties referencing it are detached.
func (s *DeveloperService) Delete(ctx context.Context, id string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	developer, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.authz.CanEditOwned(ctx, auth, developer.UserID, developer.OrgID) {
		return apperrors.NewForbidden("Unauthorized to edit this developer")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Project{}).Where("developer_id = ?", developer.ID).Update("developer_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Property{}).Where("developer_id = ?", developer.ID).Update("developer_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(developer).Error
	})
	if err != nil {
		return internalError(fmt.Errorf("developer service: delete: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "developer.delete", "developer:"+developer.ID, "success", nil))
	return nil
}

// paginate counts and fetches one page of query results.
func paginate[T any](query *gorm.DB, order string, page repository.Pagination) (Page[T], error) {
	page = page.Normalize()

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return Page[T]{}, internalError(err)
	}
	items := make([]T, 0)
	if err := query.Order(order).Offset((page.Page - 1) * page.PerPage).Limit(page.PerPage).Find(&items).Error; err != nil {
		return Page[T]{}, internalError(err)
	}
	return Page[T]{Items: items, Total: total, Page: page.Page, PerPage: page.PerPage}, nil
}
