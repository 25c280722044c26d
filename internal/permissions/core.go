package permissions

// Platform permission IDs. Organization roles are resolved separately and never
// appear here.
const (
	UserView   = "user.view"
	UserCreate = "user.create"
	UserEdit   = "user.edit"
	UserDelete = "user.delete"

	AmenityManage = "amenity.manage"
	AuditView     = "audit.view"
	OrgManageAll  = "org.manage_all"
)

func init() {
	mustRegister(
		&Permission{ID: UserView, Module: "users", Description: "View user accounts"},
		&Permission{ID: UserCreate, Module: "users", DependsOn: []string{UserView}, Description: "Create user accounts"},
		&Permission{ID: UserEdit, Module: "users", DependsOn: []string{UserView}, Description: "Edit and activate user accounts"},
		&Permission{ID: UserDelete, Module: "users", DependsOn: []string{UserView, UserEdit}, Description: "Delete user accounts"},
		&Permission{ID: AmenityManage, Module: "catalog", Description: "Create, edit and delete amenities"},
		&Permission{ID: AuditView, Module: "audit", Description: "Read the audit log"},
		&Permission{ID: OrgManageAll, Module: "organizations", Description: "List and inspect every organization"},
	)
}
