package models

// PropertyImage references a stored blob; StorageKey is what object storage deletes.
type PropertyImage struct {
	BaseModel

	PropertyID string `gorm:"type:uuid;not null;index" json:"property_id"`
	URL        string `gorm:"not null" json:"url"`
	StorageKey string `json:"storage_key,omitempty"`
	Caption    string `json:"caption"`
	SortOrder  int    `gorm:"default:0" json:"sort_order"`
	IsPrimary  bool   `gorm:"default:false" json:"is_primary"`
}
