package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
)

// PropertyFilter narrows property listings. Exactly one of UserID or
// OrganizationID is expected to scope the query.
type PropertyFilter struct {
	UserID         string
	OrganizationID string
	Status         models.PropertyStatus
	ListingType    models.ListingType
	PropertyType   string
	City           string
	MinPrice       *float64
	MaxPrice       *float64
	Search         string
}

// PropertyRepository is pure data access for properties and their children.
type PropertyRepository interface {
	GetPropertyOwnership(ctx context.Context, propertyID string) (*models.PropertyOwnership, error)
	GetDetails(ctx context.Context, propertyID string) (*models.Property, error)
	Create(ctx context.Context, property *models.Property) error
	Update(ctx context.Context, propertyID string, changes map[string]any) (*models.Property, error)
	Delete(ctx context.Context, propertyID string) ([]models.PropertyImage, error)
	List(ctx context.Context, filter PropertyFilter, page Pagination) ([]models.Property, int64, error)

	AddImage(ctx context.Context, image *models.PropertyImage) error
	GetImage(ctx context.Context, propertyID, imageID string) (*models.PropertyImage, error)
	DeleteImage(ctx context.Context, imageID string) error

	AddAmenity(ctx context.Context, propertyID, amenityID string) (*models.PropertyAmenity, error)
	RemoveAmenity(ctx context.Context, propertyID, amenityID string) (bool, error)
}

type gormPropertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository returns a gorm-backed PropertyRepository.
func NewPropertyRepository(db *gorm.DB) (PropertyRepository, error) {
	if db == nil {
		return nil, errors.New("property repository: db is required")
	}
	return &gormPropertyRepository{db: db}, nil
}

// GetPropertyOwnership returns the owner tuple, or nil when the property does
// not exist or has neither an owning user nor an owning organization.
func (r *gormPropertyRepository) GetPropertyOwnership(ctx context.Context, propertyID string) (*models.PropertyOwnership, error) {
	var row struct {
		UserID         *string
		OrganizationID *string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Property{}).
		Select("user_id", "organization_id").
		Where("id = ?", propertyID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("property repository: ownership: %w", err)
	}

	if row.UserID == nil && row.OrganizationID == nil {
		return nil, nil
	}
	ownership := &models.PropertyOwnership{OrganizationID: row.OrganizationID}
	if row.UserID != nil {
		ownership.UserID = *row.UserID
	}
	return ownership, nil
}

func (r *gormPropertyRepository) GetDetails(ctx context.Context, propertyID string) (*models.Property, error) {
	var property models.Property
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Preload("Amenities.Amenity").
		Take(&property, "id = ?", propertyID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &property, nil
}

func (r *gormPropertyRepository) Create(ctx context.Context, property *models.Property) error {
	if err := r.db.WithContext(ctx).Omit("Images", "Amenities").Create(property).Error; err != nil {
		return fmt.Errorf("property repository: create: %w", err)
	}
	return nil
}

func (r *gormPropertyRepository) Update(ctx context.Context, propertyID string, changes map[string]any) (*models.Property, error) {
	if len(changes) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", propertyID).Updates(changes)
		if res.Error != nil {
			return nil, fmt.Errorf("property repository: update: %w", res.Error)
		}
	}
	return r.GetDetails(ctx, propertyID)
}

// Delete removes the property and its children, returning the images that were
// attached so their blobs can be cleaned up.
func (r *gormPropertyRepository) Delete(ctx context.Context, propertyID string) ([]models.PropertyImage, error) {
	var images []models.PropertyImage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", propertyID).Find(&images).Error; err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", propertyID).Delete(&models.PropertyImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", propertyID).Delete(&models.PropertyAmenity{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", propertyID).Delete(&models.Property{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("property repository: delete: %w", err)
	}
	return images, nil
}

func (r *gormPropertyRepository) List(ctx context.Context, filter PropertyFilter, page Pagination) ([]models.Property, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Property{})

	switch {
	case filter.OrganizationID != "":
		query = query.Where("organization_id = ?", filter.OrganizationID)
	case filter.UserID != "":
		query = query.Where("user_id = ?", filter.UserID)
	default:
		return nil, 0, errors.New("property repository: list requires an owner scope")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ListingType != "" {
		query = query.Where("listing_type = ?", filter.ListingType)
	}
	if filter.PropertyType != "" {
		query = query.Where("property_type = ?", filter.PropertyType)
	}
	if filter.City != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(filter.City))
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(address) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("property repository: count: %w", err)
	}

	var properties []models.Property
	if err := query.Scopes(page.scope).Order("created_at DESC").Find(&properties).Error; err != nil {
		return nil, 0, fmt.Errorf("property repository: list: %w", err)
	}
	return properties, total, nil
}

func (r *gormPropertyRepository) AddImage(ctx context.Context, image *models.PropertyImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if image.IsPrimary {
			if err := tx.Model(&models.PropertyImage{}).
				Where("property_id = ?", image.PropertyID).
				Update("is_primary", false).Error; err != nil {
				return fmt.Errorf("property repository: reset primary image: %w", err)
			}
		}
		if err := tx.Create(image).Error; err != nil {
			return fmt.Errorf("property repository: add image: %w", err)
		}
		return nil
	})
}

// GetImage only matches images that belong to propertyID.
func (r *gormPropertyRepository) GetImage(ctx context.Context, propertyID, imageID string) (*models.PropertyImage, error) {
	var image models.PropertyImage
	err := r.db.WithContext(ctx).
		Where("id = ? AND property_id = ?", imageID, propertyID).
		Take(&image).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &image, nil
}

func (r *gormPropertyRepository) DeleteImage(ctx context.Context, imageID string) error {
	if err := r.db.WithContext(ctx).Delete(&models.PropertyImage{}, "id = ?", imageID).Error; err != nil {
		return fmt.Errorf("property repository: delete image: %w", err)
	}
	return nil
}

func (r *gormPropertyRepository) AddAmenity(ctx context.Context, propertyID, amenityID string) (*models.PropertyAmenity, error) {
	link := &models.PropertyAmenity{PropertyID: propertyID, AmenityID: amenityID}
	if err := r.db.WithContext(ctx).Omit("Amenity").Create(link).Error; err != nil {
		return nil, fmt.Errorf("property repository: add amenity: %w", err)
	}
	if err := r.db.WithContext(ctx).Preload("Amenity").Take(link, "id = ?", link.ID).Error; err != nil {
		return nil, fmt.Errorf("property repository: load amenity: %w", err)
	}
	return link, nil
}

func (r *gormPropertyRepository) RemoveAmenity(ctx context.Context, propertyID, amenityID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("property_id = ? AND amenity_id = ?", propertyID, amenityID).
		Delete(&models.PropertyAmenity{})
	if res.Error != nil {
		return false, fmt.Errorf("property repository: remove amenity: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
