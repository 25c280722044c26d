package models

import "gorm.io/datatypes"

type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

type PropertyStatus string

const (
	PropertyDraft     PropertyStatus = "draft"
	PropertyPublished PropertyStatus = "published"
	PropertySold      PropertyStatus = "sold"
	PropertyRented    PropertyStatus = "rented"
	PropertyArchived  PropertyStatus = "archived"
)

// Property is a listing owned by a user, an organization, or both.
type Property struct {
	BaseModel

	Title        string         `gorm:"not null" json:"title"`
	Description  string         `json:"description"`
	PropertyType string         `gorm:"index" json:"property_type"`
	ListingType  ListingType    `gorm:"type:varchar(16);index" json:"listing_type"`
	Status       PropertyStatus `gorm:"type:varchar(16);index;default:draft" json:"status"`

	Price     float64 `json:"price"`
	Currency  string  `gorm:"type:varchar(3)" json:"currency"`
	Bedrooms  int     `json:"bedrooms"`
	Bathrooms int     `json:"bathrooms"`
	AreaSqm   float64 `json:"area_sqm"`

	Address   string   `json:"address"`
	City      string   `gorm:"index" json:"city"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Features datatypes.JSON `json:"features,omitempty"`

	UserID         *string `gorm:"type:uuid;index" json:"user_id"`
	OrganizationID *string `gorm:"type:uuid;index" json:"organization_id"`
	ProjectID      *string `gorm:"type:uuid;index" json:"project_id,omitempty"`
	DeveloperID    *string `gorm:"type:uuid;index" json:"developer_id,omitempty"`

	Images    []PropertyImage   `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Amenities []PropertyAmenity `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"amenities,omitempty"`
}

// PropertyOwnership is the owner tuple consulted by every property access decision.
type PropertyOwnership struct {
	UserID         string
	OrganizationID *string
}
