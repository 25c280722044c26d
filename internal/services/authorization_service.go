package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/estatehub/internal/models"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/logger"
	"github.com/charlesng35/estatehub/pkg/metrics"
)

// RoleStore resolves a user's role inside an organization. ok is false when the
// user holds no membership.
type RoleStore interface {
	GetRole(ctx context.Context, userID, organizationID string) (role models.OrgRole, ok bool, err error)
}

// AuthorizationService answers organization and ownership questions.
//
// Gates (ValidateAuthContext, ValidateOrganizationAccess and its wrappers)
// return a typed *AppError the caller must propagate. Predicates
// (CanEditProperty, CanViewProperty, CanEditOwned) return a plain bool and never
// fail; gate errors are collapsed to false inside them.
type AuthorizationService struct {
	roles RoleStore
	log   *zap.Logger
}

// NewAuthorizationService constructs the service around a role store.
func NewAuthorizationService(roles RoleStore) (*AuthorizationService, error) {
	if roles == nil {
		return nil, errors.New("authorization service: role store is required")
	}
	return &AuthorizationService{roles: roles, log: logger.WithModule("authorization")}, nil
}

// ValidateAuthContext turns a session into a caller identity. It fails with
// Unauthorized when the session or either identity field is missing.
func (s *AuthorizationService) ValidateAuthContext(session *Session) (AuthContext, error) {
	if session == nil {
		return AuthContext{}, apperrors.NewUnauthorized(MsgAuthRequired)
	}
	userID := strings.TrimSpace(session.UserID)
	email := strings.TrimSpace(session.Email)
	if userID == "" || email == "" {
		return AuthContext{}, apperrors.NewUnauthorized(MsgAuthRequired)
	}
	return AuthContext{UserID: userID, UserEmail: email}, nil
}

// ValidateOrganizationAccess requires the caller to hold one of requiredRoles in
// the organization. Roles have no hierarchy: owner does not satisfy a list that
// only names admin, and an empty list admits nobody.
func (s *AuthorizationService) ValidateOrganizationAccess(ctx context.Context, auth AuthContext, organizationID string, requiredRoles []models.OrgRole) (*OrganizationContext, error) {
	orgCtx, err := s.validateOrganizationAccess(ensureContext(ctx), auth, organizationID, requiredRoles)
	recordDecision("validate_organization_access", orgCtx != nil, err)
	return orgCtx, err
}

func (s *AuthorizationService) validateOrganizationAccess(ctx context.Context, auth AuthContext, organizationID string, requiredRoles []models.OrgRole) (*OrganizationContext, error) {
	if auth.UserID == "" {
		return nil, apperrors.NewUnauthorized(MsgAuthRequired)
	}

	role, ok, err := s.roles.GetRole(ctx, auth.UserID, strings.TrimSpace(organizationID))
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		return nil, apperrors.NewForbidden(MsgNotOrgMember)
	}
	if !containsRole(requiredRoles, role) {
		return nil, apperrors.NewForbidden(MsgInsufficientRole)
	}

	return &OrganizationContext{
		AuthContext:    auth,
		OrganizationID: strings.TrimSpace(organizationID),
		UserRole:       role,
	}, nil
}

// CanEditOrganizationProperties admits owner, admin and member.
func (s *AuthorizationService) CanEditOrganizationProperties(ctx context.Context, auth AuthContext, organizationID string) (*OrganizationContext, error) {
	return s.ValidateOrganizationAccess(ctx, auth, organizationID, editorRoles)
}

// CanViewOrganizationProperties admits every role including viewer.
func (s *AuthorizationService) CanViewOrganizationProperties(ctx context.Context, auth AuthContext, organizationID string) (*OrganizationContext, error) {
	return s.ValidateOrganizationAccess(ctx, auth, organizationID, viewerRoles)
}

// CanManageOrganization admits owner and admin.
func (s *AuthorizationService) CanManageOrganization(ctx context.Context, auth AuthContext, organizationID string) (*OrganizationContext, error) {
	return s.ValidateOrganizationAccess(ctx, auth, organizationID, managerRoles)
}

// RequireOrganizationOwner admits owners only.
func (s *AuthorizationService) RequireOrganizationOwner(ctx context.Context, auth AuthContext, organizationID string) (*OrganizationContext, error) {
	return s.ValidateOrganizationAccess(ctx, auth, organizationID, ownerRoles)
}

// CanEditProperty reports whether the caller may mutate a property.
func (s *AuthorizationService) CanEditProperty(ctx context.Context, auth AuthContext, ownership *models.PropertyOwnership) bool {
	allowed := s.ownerOrRole(ctx, "can_edit_property", auth, ownership, editorRoles)
	recordDecision("can_edit_property", allowed, nil)
	return allowed
}

// CanViewProperty reports whether the caller may read a property.
func (s *AuthorizationService) CanViewProperty(ctx context.Context, auth AuthContext, ownership *models.PropertyOwnership) bool {
	allowed := s.ownerOrRole(ctx, "can_view_property", auth, ownership, viewerRoles)
	recordDecision("can_view_property", allowed, nil)
	return allowed
}

// CanEditOwned applies the property edit rule to any resource carrying a
// creator and an optional organization, such as developers, projects and articles.
func (s *AuthorizationService) CanEditOwned(ctx context.Context, auth AuthContext, ownerUserID string, organizationID *string) bool {
	ownership := &models.PropertyOwnership{UserID: ownerUserID, OrganizationID: organizationID}
	allowed := s.ownerOrRole(ctx, "can_edit_owned", auth, ownership, editorRoles)
	recordDecision("can_edit_owned", allowed, nil)
	return allowed
}

// OrganizationRole returns the caller's role in the organization, for display.
func (s *AuthorizationService) OrganizationRole(ctx context.Context, auth AuthContext, organizationID string) (models.OrgRole, bool, error) {
	role, ok, err := s.roles.GetRole(ensureContext(ctx), auth.UserID, organizationID)
	if err != nil {
		return "", false, internalError(err)
	}
	return role, ok, nil
}

// ownerOrRole is the shared predicate: direct ownership wins outright, then an
// owning organization is checked against roles, otherwise false.
func (s *AuthorizationService) ownerOrRole(ctx context.Context, check string, auth AuthContext, ownership *models.PropertyOwnership, roles []models.OrgRole) bool {
	if ownership == nil || auth.UserID == "" {
		return false
	}
	if ownership.UserID != "" && ownership.UserID == auth.UserID {
		return true
	}
	if ownership.OrganizationID == nil || *ownership.OrganizationID == "" {
		return false
	}

	if _, err := s.validateOrganizationAccess(ensureContext(ctx), auth, *ownership.OrganizationID, roles); err != nil {
		s.log.Debug("organization check denied",
			zap.String("check", check),
			zap.String("user_id", auth.UserID),
			zap.String("organization_id", *ownership.OrganizationID),
			zap.Error(err),
		)
		return false
	}
	return true
}

func containsRole(roles []models.OrgRole, role models.OrgRole) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}

func recordDecision(check string, allowed bool, err error) {
	result := "deny"
	switch {
	case allowed:
		result = "allow"
	case err != nil && !apperrors.IsOperational(err):
		result = "error"
	}
	metrics.AuthorizationDecisions.WithLabelValues(check, result).Inc()
}
