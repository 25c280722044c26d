package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/pkg/metrics"
)

// Checker evaluates platform permissions for a user: root bypasses, everyone
// else needs the permission and all of its dependencies through their roles.
type Checker struct {
	db *gorm.DB
}

// NewChecker constructs a permission checker backed by the provided database.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	return &Checker{db: db}, nil
}

// Check determines whether the user has the specified permission.
func (c *Checker) Check(ctx context.Context, userID, permissionID string) (bool, error) {
	allowed, err := c.check(ctx, userID, permissionID)
	switch {
	case err != nil:
		metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
	case allowed:
		metrics.PermissionChecks.WithLabelValues(permissionID, "allow").Inc()
	default:
		metrics.PermissionChecks.WithLabelValues(permissionID, "deny").Inc()
	}
	return allowed, err
}

func (c *Checker) check(ctx context.Context, userID, permissionID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	permissionID = strings.TrimSpace(permissionID)
	if userID == "" {
		return false, errors.New("permission checker: user id is required")
	}
	if permissionID == "" {
		return false, errors.New("permission checker: permission id is required")
	}

	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.IsRoot {
		return true, nil
	}
	if !user.IsActive {
		return false, nil
	}

	required, err := ResolveDependencies(permissionID)
	if err != nil {
		return false, err
	}
	required = append(required, permissionID)

	granted := grantedSet(user)
	for _, id := range required {
		if _, ok := granted[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// GetUserPermissions returns the distinct permission IDs granted to the user.
func (c *Checker) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	user, err := c.loadUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	if user.IsRoot {
		return IDs(), nil
	}

	granted := grantedSet(user)
	ids := make([]string, 0, len(granted))
	for id := range granted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Checker) loadUser(ctx context.Context, userID string) (*models.User, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if userID == "" {
		return nil, errors.New("permission checker: user id is required")
	}

	var user models.User
	if err := c.db.WithContext(ctx).
		Preload("Roles.Permissions").
		First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("permission checker: load user: %w", err)
	}
	return &user, nil
}

func grantedSet(user *models.User) map[string]struct{} {
	granted := make(map[string]struct{})
	for _, role := range user.Roles {
		for _, perm := range role.Permissions {
			granted[perm.ID] = struct{}{}
		}
	}
	return granted
}
