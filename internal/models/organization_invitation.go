package models

import "time"

// OrganizationInvitation is a pending offer of membership sent by email.
type OrganizationInvitation struct {
	BaseModel

	OrganizationID string     `gorm:"type:uuid;not null;index" json:"organization_id"`
	Email          string     `gorm:"not null;index" json:"email"`
	Role           OrgRole    `gorm:"type:varchar(16);not null" json:"role"`
	TokenHash      string     `gorm:"not null;uniqueIndex" json:"-"`
	InvitedBy      string     `gorm:"type:uuid" json:"invited_by"`
	ExpiresAt      time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at"`

	Organization *Organization `gorm:"constraint:OnDelete:CASCADE" json:"organization,omitempty"`
}

// Pending reports whether the invitation can still be accepted at now.
func (i *OrganizationInvitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
