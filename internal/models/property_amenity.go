package models

type PropertyAmenity struct {
	BaseModel

	PropertyID string `gorm:"type:uuid;not null;uniqueIndex:idx_property_amenity" json:"property_id"`
	AmenityID  string `gorm:"type:uuid;not null;uniqueIndex:idx_property_amenity" json:"amenity_id"`

	Amenity *Amenity `gorm:"constraint:OnDelete:CASCADE" json:"amenity,omitempty"`
}
