package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
)

// assignRolePermissions attaches any of permissionIDs the role does not hold yet.
func assignRolePermissions(db *gorm.DB, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	var role models.Role
	if err := db.Preload("Permissions").Where("id = ?", roleID).First(&role).Error; err != nil {
		return err
	}

	held := make(map[string]struct{}, len(role.Permissions))
	for _, perm := range role.Permissions {
		held[perm.ID] = struct{}{}
	}

	missing := make([]string, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		if _, ok := held[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var perms []models.Permission
	if err := db.Where("id IN ?", missing).Find(&perms).Error; err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}
	return db.Model(&role).Association("Permissions").Append(perms)
}
