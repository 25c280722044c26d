package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/permissions"
)

// Seeded platform role identifiers.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.Permission{},
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.OrganizationInvitation{},
		&models.Amenity{},
		&models.Developer{},
		&models.Project{},
		&models.Property{},
		&models.PropertyImage{},
		&models.PropertyAmenity{},
		&models.Article{},
		&models.AuditLog{},
		&models.RateCounter{},
	)
}

// SeedData populates the platform roles and registered permissions. It is idempotent.
func SeedData(db *gorm.DB) error {
	roles := []models.Role{
		{
			ID:          RoleAdmin,
			Name:        "Administrator",
			Description: "Full platform administration",
			IsSystem:    true,
		},
		{
			ID:          RoleUser,
			Name:        "User",
			Description: "Standard account; organization access comes from memberships",
			IsSystem:    true,
		},
	}

	for _, role := range roles {
		if err := db.Where(models.Role{ID: role.ID}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	if err := permissions.Sync(context.Background(), db); err != nil {
		return fmt.Errorf("sync permissions: %w", err)
	}

	return assignRolePermissions(db, RoleAdmin, permissions.IDs())
}
