package models

import "time"

// Permission persists a registered platform permission. ID is the permission key.
type Permission struct {
	ID          string    `gorm:"primaryKey;size:128" json:"id"`
	Module      string    `gorm:"not null;index" json:"module"`
	Description string    `json:"description"`
	DependsOn   string    `gorm:"type:json" json:"depends_on"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}
