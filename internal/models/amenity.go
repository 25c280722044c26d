package models

// Amenity is a platform-wide catalog entry such as "Pool" or "Parking".
type Amenity struct {
	BaseModel

	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Category string `gorm:"index" json:"category"`
	Icon     string `json:"icon"`
}
