package models

import "gorm.io/datatypes"

// Organization is a tenant grouping users through role memberships.
type Organization struct {
	BaseModel

	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description string         `json:"description"`
	Settings    datatypes.JSON `json:"settings"`

	Members []OrganizationMember `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}
