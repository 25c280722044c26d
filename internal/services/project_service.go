package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/repository"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/validator"
)

// ProjectInput describes a development project grouping several properties.
type ProjectInput struct {
	Name           string               `json:"name" validate:"required,max=150"`
	Slug           string               `json:"slug" validate:"omitempty,slug,max=150"`
	Description    string               `json:"description" validate:"max=20000"`
	DeveloperID    *string              `json:"developer_id"`
	City           string               `json:"city" validate:"max=100"`
	Status         models.ProjectStatus `json:"status" validate:"omitempty,oneof=planned under_construction completed"`
	CompletionDate *time.Time           `json:"completion_date"`
	OrganizationID *string              `json:"organization_id"`
}

// ProjectFilters narrows project listings.
type ProjectFilters struct {
	OrganizationID string
	DeveloperID    string
	City           string
	Status         models.ProjectStatus
}

type ProjectService struct {
	db    *gorm.DB
	authz *AuthorizationService
	audit *AuditService
}

func NewProjectService(db *gorm.DB, authz *AuthorizationService, audit *AuditService) (*ProjectService, error) {
	if db == nil || authz == nil {
		return nil, errors.New("project service: db and authorization service are required")
	}
	return &ProjectService{db: db, authz: authz, audit: audit}, nil
}

func (s *ProjectService) Create(ctx context.Context, input ProjectInput, auth AuthContext) (*models.Project, error) {
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
	developerID := trimmedPtr(input.DeveloperID)
	if err := s.ensureDeveloper(ctx, developerID); err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:           sanitizePlain(input.Name),
		Slug:           input.Slug,
		Description:    sanitizeRichText(input.Description),
		DeveloperID:    developerID,
		City:           strings.TrimSpace(input.City),
		Status:         input.Status,
		CompletionDate: input.CompletionDate,
		UserID:         auth.UserID,
		OrgID:          orgID,
	}
	if project.Status == "" {
		project.Status = models.ProjectPlanned
	}
	if err := s.db.WithContext(ctx).Omit("Developer").Create(project).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("A project with this slug already exists")
		}
		return nil, internalError(fmt.Errorf("project service: create: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "project.create", "project:"+project.ID, "success", nil))
	return project, nil
}

// Get looks a project up by ID or slug with its developer.
func (s *ProjectService) Get(ctx context.Context, idOrSlug string) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ensureContext(ctx)).
		Preload("Developer").
		Scopes(func(db *gorm.DB) *gorm.DB { return byIDOrSlug(db, idOrSlug) }).
		Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("Project not found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return &project, nil
}

func (s *ProjectService) List(ctx context.Context, filters ProjectFilters, page repository.Pagination) (Page[models.Project], error) {
	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Project{})
	if filters.OrganizationID != "" {
		query = query.Where("organization_id = ?", filters.OrganizationID)
	}
	if filters.DeveloperID != "" {
		query = query.Where("developer_id = ?", filters.DeveloperID)
	}
	if filters.City != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(filters.City))
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	return paginate[models.Project](query, "created_at DESC", page)
}

func (s *ProjectService) Update(ctx context.Context, id string, input ProjectInput, auth AuthContext) (*models.Project, error) {
	ctx = ensureContext(ctx)
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanEditOwned(ctx, auth, project.UserID, project.OrgID) {
		return nil, apperrors.NewForbidden("Unauthorized to edit this project")
	}
	if input.Slug = strings.TrimSpace(input.Slug); input.Slug == "" {
		input.Slug = project.Slug
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	developerID := trimmedPtr(input.DeveloperID)
	if err := s.ensureDeveloper(ctx, developerID); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"name":            sanitizePlain(input.Name),
		"slug":            input.Slug,
		"description":     sanitizeRichText(input.Description),
		"developer_id":    developerID,
		"city":            strings.TrimSpace(input.City),
		"completion_date": input.CompletionDate,
	}
	if input.Status != "" {
		updates["status"] = input.Status
	}
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("A project with this slug already exists")
		}
		return nil, internalError(fmt.Errorf("project service: update: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "project.update", "project:"+project.ID, "success", nil))
	return s.Get(ctx, project.ID)
}

// Delete removes a project; its properties stay and lose the reference.
func (s *ProjectService) Delete(ctx context.Context, id string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	project, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.authz.CanEditOwned(ctx, auth, project.UserID, project.OrgID) {
		return apperrors.NewForbidden("Unauthorized to edit this project")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Property{}).Where("project_id = ?", project.ID).Update("project_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", project.ID).Delete(&models.Project{}).Error
	})
	if err != nil {
		return internalError(fmt.Errorf("project service: delete: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "project.delete", "project:"+project.ID, "success", nil))
	return nil
}

func (s *ProjectService) ensureDeveloper(ctx context.Context, developerID *string) error {
	if developerID == nil {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Developer{}).Where("id = ?", *developerID).Count(&count).Error; err != nil {
		return internalError(err)
	}
	if count == 0 {
		return apperrors.NewValidation("Developer not found")
	}
	return nil
}
