package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/permissions"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/validator"
)

// AmenityInput describes a catalog amenity.
type AmenityInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Category string `json:"category" validate:"max=50"`
	Icon     string `json:"icon" validate:"max=100"`
}

// AmenityService manages the platform-wide amenity catalog. Reads are public;
// writes require the amenity.manage permission.
type AmenityService struct {
	db      *gorm.DB
	checker PermissionChecker
	audit   *AuditService
}

func NewAmenityService(db *gorm.DB, checker PermissionChecker, audit *AuditService) (*AmenityService, error) {
	if db == nil {
		return nil, errors.New("amenity service: db is required")
	}
	return &AmenityService{db: db, checker: checker, audit: audit}, nil
}

// GetAmenity returns the amenity or a NotFound AppError.
func (s *AmenityService) GetAmenity(ctx context.Context, id string) (*models.Amenity, error) {
	var amenity models.Amenity
	err := s.db.WithContext(ensureContext(ctx)).Take(&amenity, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("Amenity not found")
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("amenity service: get: %w", err))
	}
	return &amenity, nil
}

// List returns the catalog ordered by category then name, optionally for one category.
func (s *AmenityService) List(ctx context.Context, category string) ([]models.Amenity, error) {
	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Amenity{})
	if category = strings.TrimSpace(category); category != "" {
		query = query.Where("category = ?", category)
	}
	var amenities []models.Amenity
	if err := query.Order("category ASC, name ASC").Find(&amenities).Error; err != nil {
		return nil, internalError(fmt.Errorf("amenity service: list: %w", err))
	}
	return amenities, nil
}

func (s *AmenityService) Create(ctx context.Context, input AmenityInput, auth AuthContext) (*models.Amenity, error) {
	ctx = ensureContext(ctx)
	if err := requirePermission(ctx, s.checker, auth, permissions.AmenityManage); err != nil {
		return nil, err
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	amenity := &models.Amenity{
		Name:     sanitizePlain(input.Name),
		Category: strings.ToLower(strings.TrimSpace(input.Category)),
		Icon:     strings.TrimSpace(input.Icon),
	}
	if err := s.db.WithContext(ctx).Create(amenity).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("Amenity already exists")
		}
		return nil, internalError(fmt.Errorf("amenity service: create: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "amenity.create", "amenity:"+amenity.ID, "success", map[string]any{
		"name": amenity.Name,
	}))
	return amenity, nil
}

func (s *AmenityService) Update(ctx context.Context, id string, input AmenityInput, auth AuthContext) (*models.Amenity, error) {
	ctx = ensureContext(ctx)
	if err := requirePermission(ctx, s.checker, auth, permissions.AmenityManage); err != nil {
		return nil, err
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	amenity, err := s.GetAmenity(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{
		"name":     sanitizePlain(input.Name),
		"category": strings.ToLower(strings.TrimSpace(input.Category)),
		"icon":     strings.TrimSpace(input.Icon),
	}
	if err := s.db.WithContext(ctx).Model(amenity).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("Amenity already exists")
		}
		return nil, internalError(fmt.Errorf("amenity service: update: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "amenity.update", "amenity:"+amenity.ID, "success", nil))
	return s.GetAmenity(ctx, id)
}

// Delete removes the amenity; property links go with it.
func (s *AmenityService) Delete(ctx context.Context, id string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	if err := requirePermission(ctx, s.checker, auth, permissions.AmenityManage); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("amenity_id = ?", id).Delete(&models.PropertyAmenity{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Amenity{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFound("Amenity not found")
		}
		return nil
	})
	if err != nil {
		if apperrors.IsOperational(err) {
			return err
		}
		return internalError(fmt.Errorf("amenity service: delete: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "amenity.delete", "amenity:"+id, "success", nil))
	return nil
}
