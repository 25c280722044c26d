package models

type Developer struct {
	BaseModel

	Name        string  `gorm:"not null" json:"name"`
	Slug        string  `gorm:"uniqueIndex;not null" json:"slug"`
	Description string  `json:"description"`
	Website     string  `json:"website"`
	LogoURL     string  `json:"logo_url"`
	UserID      string  `gorm:"type:uuid;index" json:"user_id"`
	OrgID       *string `gorm:"column:organization_id;type:uuid;index" json:"organization_id"`
}
