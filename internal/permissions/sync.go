package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/estatehub/internal/models"
)

// Sync upserts every registered permission into the permissions table.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if err := ValidateDependencies(); err != nil {
		return err
	}

	tx := db.WithContext(ctx)
	for _, id := range IDs() {
		perm, _ := Get(id)
		depends, err := json.Marshal(perm.DependsOn)
		if err != nil {
			return fmt.Errorf("permission: marshal depends_on for %s: %w", id, err)
		}

		record := models.Permission{
			ID:          perm.ID,
			Module:      perm.Module,
			Description: perm.Description,
			DependsOn:   string(depends),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"module", "description", "depends_on", "updated_at"}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("permission: sync %s: %w", id, err)
		}
	}
	return nil
}
