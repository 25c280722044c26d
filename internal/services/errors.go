package services

import (
	"errors"

	"github.com/charlesng35/estatehub/internal/repository"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
)

// Public failure messages shared by services and asserted by API clients.
const (
	MsgPropertyNotFound     = "Property not found"
	MsgUnauthorizedView     = "Unauthorized to view this property"
	MsgUnauthorizedEdit     = "Unauthorized to edit this property"
	MsgImageNotFound        = "Image not found"
	MsgNotOrgMember         = "Not a member of this organization"
	MsgInsufficientRole     = "Insufficient permissions"
	MsgAuthRequired         = "Authentication required"
	MsgUnexpectedError      = "An unexpected error occurred"
	MsgOrganizationNotFound = "Organization not found"
)

func isUniqueConstraintError(err error) bool {
	return repository.IsUniqueViolation(err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// internalError wraps an unexpected failure while keeping it out of client messages.
func internalError(err error) *apperrors.AppError {
	return apperrors.NewInternal(MsgUnexpectedError, err)
}
