package models

// OrgRole is a user's role inside one organization.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
	OrgRoleViewer OrgRole = "viewer"
)

// OrgRoles lists every role from most to least privileged.
var OrgRoles = []OrgRole{OrgRoleOwner, OrgRoleAdmin, OrgRoleMember, OrgRoleViewer}

// Valid reports whether r is one of the known organization roles.
func (r OrgRole) Valid() bool {
	for _, known := range OrgRoles {
		if r == known {
			return true
		}
	}
	return false
}

// OrganizationMember ties one user to one organization. At most one row per pair.
type OrganizationMember struct {
	BaseModel

	OrganizationID string  `gorm:"type:uuid;not null;uniqueIndex:idx_org_member" json:"organization_id"`
	UserID         string  `gorm:"type:uuid;not null;uniqueIndex:idx_org_member;index" json:"user_id"`
	Role           OrgRole `gorm:"type:varchar(16);not null" json:"role"`

	Organization *Organization `json:"organization,omitempty"`
	User         *User         `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
