package models

import "time"

type ProjectStatus string

const (
	ProjectPlanned           ProjectStatus = "planned"
	ProjectUnderConstruction ProjectStatus = "under_construction"
	ProjectCompleted         ProjectStatus = "completed"
)

type Project struct {
	BaseModel

	Name           string        `gorm:"not null" json:"name"`
	Slug           string        `gorm:"uniqueIndex;not null" json:"slug"`
	Description    string        `json:"description"`
	DeveloperID    *string       `gorm:"type:uuid;index" json:"developer_id"`
	City           string        `gorm:"index" json:"city"`
	Status         ProjectStatus `gorm:"type:varchar(32);default:planned" json:"status"`
	CompletionDate *time.Time    `json:"completion_date,omitempty"`
	UserID         string        `gorm:"type:uuid;index" json:"user_id"`
	OrgID          *string       `gorm:"column:organization_id;type:uuid;index" json:"organization_id"`

	Developer *Developer `gorm:"constraint:OnDelete:SET NULL" json:"developer,omitempty"`
}
