package services

import (
	"context"

	apperrors "github.com/charlesng35/estatehub/pkg/errors"
)

// PermissionChecker abstracts platform permission evaluation for services.
type PermissionChecker interface {
	Check(ctx context.Context, userID, permissionID string) (bool, error)
}

// requirePermission fails with Forbidden unless the checker grants permissionID.
// A nil checker grants nothing.
func requirePermission(ctx context.Context, checker PermissionChecker, auth AuthContext, permissionID string) error {
	if auth.UserID == "" {
		return apperrors.NewUnauthorized(MsgAuthRequired)
	}
	if checker == nil {
		return apperrors.NewForbidden("Permission denied")
	}
	ok, err := checker.Check(ctx, auth.UserID, permissionID)
	if err != nil {
		return internalError(err)
	}
	if !ok {
		return apperrors.NewForbidden("Permission denied")
	}
	return nil
}
