package services

import "github.com/charlesng35/estatehub/internal/models"

// Session is the verified identity handed over by the transport layer, typically
// built from bearer token claims.
type Session struct {
	UserID string
	Email  string
}

// AuthContext is a validated caller identity.
type AuthContext struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
}

// OrganizationContext exists only as the product of a successful organization
// access check.
type OrganizationContext struct {
	AuthContext
	OrganizationID string         `json:"organization_id"`
	UserRole       models.OrgRole `json:"user_role"`
}

var (
	editorRoles  = []models.OrgRole{models.OrgRoleOwner, models.OrgRoleAdmin, models.OrgRoleMember}
	viewerRoles  = []models.OrgRole{models.OrgRoleOwner, models.OrgRoleAdmin, models.OrgRoleMember, models.OrgRoleViewer}
	managerRoles = []models.OrgRole{models.OrgRoleOwner, models.OrgRoleAdmin}
	ownerRoles   = []models.OrgRole{models.OrgRoleOwner}
)
