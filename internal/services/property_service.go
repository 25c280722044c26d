package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/charlesng35/estatehub/internal/auditctx"
	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/repository"
	"github.com/charlesng35/estatehub/internal/storage"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/logger"
	"github.com/charlesng35/estatehub/pkg/metrics"
	"github.com/charlesng35/estatehub/pkg/validator"
)

// AmenityLookup resolves catalog amenities by ID.
type AmenityLookup interface {
	GetAmenity(ctx context.Context, id string) (*models.Amenity, error)
}

// CreatePropertyInput is the payload for a new listing. UserID is accepted for
// wire compatibility but never trusted: the creator is always the caller.
type CreatePropertyInput struct {
	Title        string                `json:"title" validate:"required,max=200"`
	Description  string                `json:"description" validate:"max=20000"`
	PropertyType string                `json:"property_type" validate:"omitempty,max=50"`
	ListingType  models.ListingType    `json:"listing_type" validate:"omitempty,oneof=sale rent"`
	Status       models.PropertyStatus `json:"status" validate:"omitempty,oneof=draft published sold rented archived"`
	Price        float64               `json:"price" validate:"gte=0"`
	Currency     string                `json:"currency" validate:"omitempty,currency"`
	Bedrooms     int                   `json:"bedrooms" validate:"gte=0"`
	Bathrooms    int                   `json:"bathrooms" validate:"gte=0"`
	AreaSqm      float64               `json:"area_sqm" validate:"gte=0"`
	Address      string                `json:"address" validate:"max=300"`
	City         string                `json:"city" validate:"max=100"`
	Country      string                `json:"country" validate:"max=100"`
	Latitude     *float64              `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64              `json:"longitude" validate:"omitempty,longitude"`
	Features     map[string]any        `json:"features"`

	UserID         *string `json:"user_id"`
	OrganizationID *string `json:"organization_id"`
	ProjectID      *string `json:"project_id"`
	DeveloperID    *string `json:"developer_id"`
}

// UpdatePropertyInput carries optional changes. A non-nil empty OrganizationID
// detaches the property from its organization.
type UpdatePropertyInput struct {
	Title        *string                `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string                `json:"description" validate:"omitempty,max=20000"`
	PropertyType *string                `json:"property_type" validate:"omitempty,max=50"`
	ListingType  *models.ListingType    `json:"listing_type" validate:"omitempty,oneof=sale rent"`
	Status       *models.PropertyStatus `json:"status" validate:"omitempty,oneof=draft published sold rented archived"`
	Price        *float64               `json:"price" validate:"omitempty,gte=0"`
	Currency     *string                `json:"currency" validate:"omitempty,currency"`
	Bedrooms     *int                   `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms    *int                   `json:"bathrooms" validate:"omitempty,gte=0"`
	AreaSqm      *float64               `json:"area_sqm" validate:"omitempty,gte=0"`
	Address      *string                `json:"address" validate:"omitempty,max=300"`
	City         *string                `json:"city" validate:"omitempty,max=100"`
	Country      *string                `json:"country" validate:"omitempty,max=100"`
	Latitude     *float64               `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64               `json:"longitude" validate:"omitempty,longitude"`
	Features     map[string]any         `json:"features"`

	OrganizationID *string `json:"organization_id"`
	ProjectID      *string `json:"project_id"`
	DeveloperID    *string `json:"developer_id"`
}

// PropertyFilters scopes GetUserProperties. Without OrganizationID the caller's
// own properties are listed.
type PropertyFilters struct {
	OrganizationID string
	Status         models.PropertyStatus
	ListingType    models.ListingType
	PropertyType   string
	City           string
	MinPrice       *float64
	MaxPrice       *float64
	Search         string
}

// AddImageInput describes an already uploaded image.
type AddImageInput struct {
	URL        string `json:"url" validate:"required,url"`
	StorageKey string `json:"storage_key" validate:"max=500"`
	Caption    string `json:"caption" validate:"max=300"`
	SortOrder  int    `json:"sort_order"`
	IsPrimary  bool   `json:"is_primary"`
}

// PropertyService implements listing operations behind ownership and role checks.
type PropertyService struct {
	repo      repository.PropertyRepository
	authz     *AuthorizationService
	amenities AmenityLookup
	store     storage.Store
	audit     *AuditService
	log       *zap.Logger
}

// NewPropertyService wires the property service. A nil store disables blob cleanup.
func NewPropertyService(repo repository.PropertyRepository, authz *AuthorizationService, amenities AmenityLookup, store storage.Store, audit *AuditService) (*PropertyService, error) {
	if repo == nil {
		return nil, errors.New("property service: repository is required")
	}
	if authz == nil {
		return nil, errors.New("property service: authorization service is required")
	}
	if amenities == nil {
		return nil, errors.New("property service: amenity lookup is required")
	}
	if store == nil {
		store = storage.NoopStore{}
	}
	return &PropertyService{
		repo:      repo,
		authz:     authz,
		amenities: amenities,
		store:     store,
		audit:     audit,
		log:       logger.WithModule("property"),
	}, nil
}

// CreateProperty stores a listing owned by the caller, optionally on behalf of
// an organization in which the caller can edit properties.
func (s *PropertyService) CreateProperty(ctx context.Context, input CreatePropertyInput, auth AuthContext) (res Result[*models.Property]) {
	defer recoverResult(&res, "create")
	defer s.observe("create", &res.Success)
	ctx = ensureContext(ctx)

	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if err := validator.ValidateStruct(input); err != nil {
		return fail[*models.Property](apperrors.NewValidation(err.Error()))
	}

	orgID := trimmedPtr(input.OrganizationID)
	if orgID != nil {
		if _, err := s.authz.CanEditOrganizationProperties(ctx, auth, *orgID); err != nil {
			return fail[*models.Property](err)
		}
	}

	features, err := encodeFeatures(input.Features)
	if err != nil {
		return fail[*models.Property](err)
	}

	property := &models.Property{
		Title:          sanitizePlain(input.Title),
		Description:    sanitizeRichText(input.Description),
		PropertyType:   strings.TrimSpace(input.PropertyType),
		ListingType:    input.ListingType,
		Status:         input.Status,
		Price:          input.Price,
		Currency:       input.Currency,
		Bedrooms:       input.Bedrooms,
		Bathrooms:      input.Bathrooms,
		AreaSqm:        input.AreaSqm,
		Address:        strings.TrimSpace(input.Address),
		City:           strings.TrimSpace(input.City),
		Country:        strings.TrimSpace(input.Country),
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		Features:       features,
		UserID:         strPtr(auth.UserID),
		OrganizationID: orgID,
		ProjectID:      trimmedPtr(input.ProjectID),
		DeveloperID:    trimmedPtr(input.DeveloperID),
	}
	if property.Status == "" {
		property.Status = models.PropertyDraft
	}

	if err := s.repo.Create(ctx, property); err != nil {
		return fail[*models.Property](internalError(err))
	}

	recordAudit(s.audit, auditctx.WithOrganization(ctx, derefString(orgID)), auditFor(auth, "property.create", "property:"+property.ID, "success", nil))
	return succeed(property)
}

// GetProperty returns the detail record when the caller may view it.
func (s *PropertyService) GetProperty(ctx context.Context, propertyID string, auth AuthContext) (res Result[*models.Property]) {
	defer recoverResult(&res, "get")
	defer s.observe("get", &res.Success)
	ctx = ensureContext(ctx)

	ownership, err := s.repo.GetPropertyOwnership(ctx, propertyID)
	if err != nil {
		return fail[*models.Property](internalError(err))
	}
	if ownership == nil {
		return fail[*models.Property](apperrors.NewNotFound(MsgPropertyNotFound))
	}
	if !s.authz.CanViewProperty(ctx, auth, ownership) {
		return fail[*models.Property](apperrors.NewForbidden(MsgUnauthorizedView))
	}

	property, err := s.repo.GetDetails(ctx, propertyID)
	if err != nil {
		return fail[*models.Property](s.lookupError(err))
	}
	return succeed(property)
}

// UpdateProperty applies changes when the caller may edit the property. Moving
// it into an organization also requires edit rights in that organization, and
// taking it out of one requires an owner or admin there.
func (s *PropertyService) UpdateProperty(ctx context.Context, propertyID string, input UpdatePropertyInput, auth AuthContext) (res Result[*models.Property]) {
	defer recoverResult(&res, "update")
	defer s.observe("update", &res.Success)
	ctx = ensureContext(ctx)

	ownership, err := s.requireEditable(ctx, propertyID, auth)
	if err != nil {
		return fail[*models.Property](err)
	}
	if input.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*input.Currency))
		input.Currency = &currency
	}
	if err := validator.ValidateStruct(input); err != nil {
		return fail[*models.Property](apperrors.NewValidation(err.Error()))
	}

	changes, err := input.changes()
	if err != nil {
		return fail[*models.Property](err)
	}
	if input.OrganizationID != nil {
		target := trimmedPtr(input.OrganizationID)
		source := derefString(ownership.OrganizationID)
		if source != "" && source != derefString(target) {
			if _, err := s.authz.CanManageOrganization(ctx, auth, source); err != nil {
				return fail[*models.Property](err)
			}
		}
		if target != nil {
			if _, err := s.authz.CanEditOrganizationProperties(ctx, auth, *target); err != nil {
				return fail[*models.Property](err)
			}
		}
		changes["organization_id"] = target
	}

	property, err := s.repo.Update(ctx, propertyID, changes)
	if err != nil {
		return fail[*models.Property](s.lookupError(err))
	}

	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	recordAudit(s.audit, ctx, auditFor(auth, "property.update", "property:"+propertyID, "success", map[string]any{
		"fields": fields,
	}))
	return succeed(property)
}

// DeleteProperty removes the property with its images and amenity links, then
// deletes image blobs on a best-effort basis.
func (s *PropertyService) DeleteProperty(ctx context.Context, propertyID string, auth AuthContext) (res Result[string]) {
	defer recoverResult(&res, "delete")
	defer s.observe("delete", &res.Success)
	ctx = ensureContext(ctx)

	if _, err := s.requireEditable(ctx, propertyID, auth); err != nil {
		return fail[string](err)
	}

	images, err := s.repo.Delete(ctx, propertyID)
	if err != nil {
		return fail[string](s.lookupError(err))
	}
	for i := range images {
		s.deleteBlob(ctx, &images[i])
	}

	recordAudit(s.audit, ctx, auditFor(auth, "property.delete", "property:"+propertyID, "success", map[string]any{
		"images": len(images),
	}))
	return succeed(propertyID)
}

// GetUserProperties lists the caller's own properties, or an organization's
// properties when filters.OrganizationID is set and the caller may view them.
// Every listed property carries at most its first image.
func (s *PropertyService) GetUserProperties(ctx context.Context, filters PropertyFilters, page repository.Pagination, auth AuthContext) (res Result[Page[models.Property]]) {
	defer recoverResult(&res, "list")
	defer s.observe("list", &res.Success)
	ctx = ensureContext(ctx)

	if auth.UserID == "" {
		return fail[Page[models.Property]](apperrors.NewUnauthorized(MsgAuthRequired))
	}

	query := repository.PropertyFilter{
		Status:       filters.Status,
		ListingType:  filters.ListingType,
		PropertyType: filters.PropertyType,
		City:         filters.City,
		MinPrice:     filters.MinPrice,
		MaxPrice:     filters.MaxPrice,
		Search:       filters.Search,
	}
	if orgID := strings.TrimSpace(filters.OrganizationID); orgID != "" {
		if _, err := s.authz.CanViewOrganizationProperties(ctx, auth, orgID); err != nil {
			return fail[Page[models.Property]](err)
		}
		query.OrganizationID = orgID
	} else {
		query.UserID = auth.UserID
	}

	page = page.Normalize()
	properties, total, err := s.repo.List(ctx, query, page)
	if err != nil {
		return fail[Page[models.Property]](internalError(err))
	}

	// One detail fetch per listed property supplies its first image.
	for i := range properties {
		details, err := s.repo.GetDetails(ctx, properties[i].ID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return fail[Page[models.Property]](internalError(err))
		}
		if len(details.Images) > 0 {
			properties[i].Images = details.Images[:1]
		}
	}

	return succeed(Page[models.Property]{
		Items:   properties,
		Total:   total,
		Page:    page.Page,
		PerPage: page.PerPage,
	})
}

// AddPropertyImage attaches an uploaded image to an editable property.
func (s *PropertyService) AddPropertyImage(ctx context.Context, propertyID string, input AddImageInput, auth AuthContext) (res Result[*models.PropertyImage]) {
	defer recoverResult(&res, "add_image")
	defer s.observe("add_image", &res.Success)
	ctx = ensureContext(ctx)

	if _, err := s.requireEditable(ctx, propertyID, auth); err != nil {
		return fail[*models.PropertyImage](err)
	}
	if err := validator.ValidateStruct(input); err != nil {
		return fail[*models.PropertyImage](apperrors.NewValidation(err.Error()))
	}

	key := strings.TrimSpace(input.StorageKey)
	if key == "" {
		key, _ = s.store.KeyFromURL(input.URL)
	}
	image := &models.PropertyImage{
		PropertyID: propertyID,
		URL:        strings.TrimSpace(input.URL),
		StorageKey: key,
		Caption:    sanitizePlain(input.Caption),
		SortOrder:  input.SortOrder,
		IsPrimary:  input.IsPrimary,
	}
	if err := s.repo.AddImage(ctx, image); err != nil {
		return fail[*models.PropertyImage](internalError(err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "property.image.add", "property:"+propertyID, "success", map[string]any{
		"image_id": image.ID,
	}))
	return succeed(image)
}

// RemovePropertyImage detaches an image. The backing blob is deleted best-effort:
// storage failures are logged and do not fail the operation.
func (s *PropertyService) RemovePropertyImage(ctx context.Context, propertyID, imageID string, auth AuthContext) (res Result[*models.PropertyImage]) {
	defer recoverResult(&res, "remove_image")
	defer s.observe("remove_image", &res.Success)
	ctx = ensureContext(ctx)

	if _, err := s.requireEditable(ctx, propertyID, auth); err != nil {
		return fail[*models.PropertyImage](err)
	}

	image, err := s.repo.GetImage(ctx, propertyID, imageID)
	if err != nil {
		if isNotFound(err) {
			return fail[*models.PropertyImage](apperrors.NewNotFound(MsgImageNotFound))
		}
		return fail[*models.PropertyImage](internalError(err))
	}
	if err := s.repo.DeleteImage(ctx, image.ID); err != nil {
		return fail[*models.PropertyImage](internalError(err))
	}
	s.deleteBlob(ctx, image)

	recordAudit(s.audit, ctx, auditFor(auth, "property.image.remove", "property:"+propertyID, "success", map[string]any{
		"image_id": image.ID,
	}))
	return succeed(image)
}

// AddPropertyAmenity links a catalog amenity to an editable property.
func (s *PropertyService) AddPropertyAmenity(ctx context.Context, propertyID, amenityID string, auth AuthContext) (res Result[*models.PropertyAmenity]) {
	defer recoverResult(&res, "add_amenity")
	defer s.observe("add_amenity", &res.Success)
	ctx = ensureContext(ctx)

	if _, err := s.requireEditable(ctx, propertyID, auth); err != nil {
		return fail[*models.PropertyAmenity](err)
	}
	if _, err := s.amenities.GetAmenity(ctx, amenityID); err != nil {
		return fail[*models.PropertyAmenity](err)
	}

	link, err := s.repo.AddAmenity(ctx, propertyID, amenityID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fail[*models.PropertyAmenity](apperrors.NewConflict("Amenity already added to this property"))
		}
		return fail[*models.PropertyAmenity](internalError(err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "property.amenity.add", "property:"+propertyID, "success", map[string]any{
		"amenity_id": amenityID,
	}))
	return succeed(link)
}

// RemovePropertyAmenity unlinks an amenity from an editable property.
func (s *PropertyService) RemovePropertyAmenity(ctx context.Context, propertyID, amenityID string, auth AuthContext) (res Result[string]) {
	defer recoverResult(&res, "remove_amenity")
	defer s.observe("remove_amenity", &res.Success)
	ctx = ensureContext(ctx)

	if _, err := s.requireEditable(ctx, propertyID, auth); err != nil {
		return fail[string](err)
	}

	removed, err := s.repo.RemoveAmenity(ctx, propertyID, amenityID)
	if err != nil {
		return fail[string](internalError(err))
	}
	if !removed {
		return fail[string](apperrors.NewNotFound("Amenity not found on this property"))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "property.amenity.remove", "property:"+propertyID, "success", map[string]any{
		"amenity_id": amenityID,
	}))
	return succeed(amenityID)
}

// requireEditable resolves ownership and applies the edit predicate.
func (s *PropertyService) requireEditable(ctx context.Context, propertyID string, auth AuthContext) (*models.PropertyOwnership, error) {
	ownership, err := s.repo.GetPropertyOwnership(ctx, propertyID)
	if err != nil {
		return nil, internalError(err)
	}
	if ownership == nil {
		return nil, apperrors.NewNotFound(MsgPropertyNotFound)
	}
	if !s.authz.CanEditProperty(ctx, auth, ownership) {
		return nil, apperrors.NewForbidden(MsgUnauthorizedEdit)
	}
	return ownership, nil
}

func (s *PropertyService) lookupError(err error) error {
	if isNotFound(err) {
		return apperrors.NewNotFound(MsgPropertyNotFound)
	}
	return internalError(err)
}

func (s *PropertyService) deleteBlob(ctx context.Context, image *models.PropertyImage) {
	key := image.StorageKey
	if key == "" {
		var ok bool
		if key, ok = s.store.KeyFromURL(image.URL); !ok {
			return
		}
	}
	if err := s.store.Delete(ctx, key); err != nil {
		metrics.BlobDeleteFailures.Inc()
		s.log.Warn("failed to delete image blob",
			zap.String("property_id", image.PropertyID),
			zap.String("image_id", image.ID),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (s *PropertyService) observe(operation string, success *bool) {
	result := "failure"
	if *success {
		result = "success"
	}
	metrics.PropertyOperations.WithLabelValues(operation, result).Inc()
}

func (in UpdatePropertyInput) changes() (map[string]any, error) {
	changes := map[string]any{}
	if in.Title != nil {
		changes["title"] = sanitizePlain(*in.Title)
	}
	if in.Description != nil {
		changes["description"] = sanitizeRichText(*in.Description)
	}
	if in.PropertyType != nil {
		changes["property_type"] = strings.TrimSpace(*in.PropertyType)
	}
	if in.ListingType != nil {
		changes["listing_type"] = *in.ListingType
	}
	if in.Status != nil {
		changes["status"] = *in.Status
	}
	if in.Price != nil {
		changes["price"] = *in.Price
	}
	if in.Currency != nil {
		changes["currency"] = *in.Currency
	}
	if in.Bedrooms != nil {
		changes["bedrooms"] = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		changes["bathrooms"] = *in.Bathrooms
	}
	if in.AreaSqm != nil {
		changes["area_sqm"] = *in.AreaSqm
	}
	if in.Address != nil {
		changes["address"] = strings.TrimSpace(*in.Address)
	}
	if in.City != nil {
		changes["city"] = strings.TrimSpace(*in.City)
	}
	if in.Country != nil {
		changes["country"] = strings.TrimSpace(*in.Country)
	}
	if in.Latitude != nil {
		changes["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		changes["longitude"] = *in.Longitude
	}
	if in.ProjectID != nil {
		changes["project_id"] = trimmedPtr(in.ProjectID)
	}
	if in.DeveloperID != nil {
		changes["developer_id"] = trimmedPtr(in.DeveloperID)
	}
	if in.Features != nil {
		features, err := encodeFeatures(in.Features)
		if err != nil {
			return nil, err
		}
		changes["features"] = features
	}
	return changes, nil
}

func encodeFeatures(features map[string]any) (datatypes.JSON, error) {
	if len(features) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(features)
	if err != nil {
		return nil, apperrors.NewValidation("features must be a JSON object")
	}
	return datatypes.JSON(encoded), nil
}
