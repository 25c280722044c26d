package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatehub/internal/models"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
)

func newTestAuthz(t *testing.T) (*AuthorizationService, *fakeRoleStore) {
	t.Helper()
	roles := newFakeRoleStore()
	svc, err := NewAuthorizationService(roles)
	require.NoError(t, err)
	return svc, roles
}

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	require.Equal(t, status, appErr.StatusCode)
	if message != "" {
		require.Equal(t, message, appErr.Message)
	}
}

func TestValidateAuthContext(t *testing.T) {
	svc, _ := newTestAuthz(t)

	auth, err := svc.ValidateAuthContext(&Session{UserID: " u1 ", Email: "u1@example.com"})
	require.NoError(t, err)
	require.Equal(t, AuthContext{UserID: "u1", UserEmail: "u1@example.com"}, auth)

	for _, session := range []*Session{nil, {}, {UserID: "u1"}, {Email: "u1@example.com"}} {
		_, err := svc.ValidateAuthContext(session)
		requireAppError(t, err, 401, MsgAuthRequired)
	}
}

func TestValidateOrganizationAccess(t *testing.T) {
	ctx := context.Background()
	svc, roles := newTestAuthz(t)
	roles.set("owner", "org", models.OrgRoleOwner)
	roles.set("viewer", "org", models.OrgRoleViewer)

	orgCtx, err := svc.ValidateOrganizationAccess(ctx, AuthContext{UserID: "owner"}, "org", []models.OrgRole{models.OrgRoleOwner})
	require.NoError(t, err)
	require.Equal(t, "org", orgCtx.OrganizationID)
	require.Equal(t, models.OrgRoleOwner, orgCtx.UserRole)
	require.Equal(t, "owner", orgCtx.UserID)

	t.Run("no hierarchy", func(t *testing.T) {
		_, err := svc.ValidateOrganizationAccess(ctx, AuthContext{UserID: "owner"}, "org", []models.OrgRole{models.OrgRoleAdmin})
		requireAppError(t, err, 403, MsgInsufficientRole)
	})

	t.Run("empty role list admits nobody", func(t *testing.T) {
		_, err := svc.ValidateOrganizationAccess(ctx, AuthContext{UserID: "owner"}, "org", nil)
		requireAppError(t, err, 403, MsgInsufficientRole)
	})

	t.Run("non member", func(t *testing.T) {
		_, err := svc.ValidateOrganizationAccess(ctx, AuthContext{UserID: "stranger"}, "org", viewerRoles)
		requireAppError(t, err, 403, MsgNotOrgMember)
	})

	t.Run("missing identity", func(t *testing.T) {
		_, err := svc.ValidateOrganizationAccess(ctx, AuthContext{}, "org", viewerRoles)
		requireAppError(t, err, 401, MsgAuthRequired)
	})

	t.Run("store failure", func(t *testing.T) {
		roles.err = errors.New("connection reset")
		defer func() { roles.err = nil }()
		_, err := svc.ValidateOrganizationAccess(ctx, AuthContext{UserID: "owner"}, "org", ownerRoles)
		requireAppError(t, err, 500, MsgUnexpectedError)
		require.False(t, apperrors.IsOperational(err))
	})
}

func TestOrganizationGates(t *testing.T) {
	ctx := context.Background()
	svc, roles := newTestAuthz(t)
	for _, role := range models.OrgRoles {
		roles.set(string(role), "org", role)
	}

	cases := []struct {
		name    string
		gate    func(context.Context, AuthContext, string) (*OrganizationContext, error)
		allowed []models.OrgRole
	}{
		{"edit properties", svc.CanEditOrganizationProperties, editorRoles},
		{"view properties", svc.CanViewOrganizationProperties, viewerRoles},
		{"manage", svc.CanManageOrganization, managerRoles},
		{"owner", svc.RequireOrganizationOwner, ownerRoles},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, role := range models.OrgRoles {
				_, err := tc.gate(ctx, AuthContext{UserID: string(role)}, "org")
				if containsRole(tc.allowed, role) {
					require.NoError(t, err, role)
				} else {
					requireAppError(t, err, 403, MsgInsufficientRole)
				}
			}
		})
	}
}

func TestPropertyPredicates(t *testing.T) {
	ctx := context.Background()
	svc, roles := newTestAuthz(t)
	orgID := "org-1"
	for _, role := range models.OrgRoles {
		roles.set(string(role), orgID, role)
	}

	t.Run("owner always wins", func(t *testing.T) {
		ownership := &models.PropertyOwnership{UserID: "alice", OrganizationID: &orgID}
		before := roles.calls
		require.True(t, svc.CanEditProperty(ctx, AuthContext{UserID: "alice"}, ownership))
		require.True(t, svc.CanViewProperty(ctx, AuthContext{UserID: "alice"}, ownership))
		require.Equal(t, before, roles.calls, "ownership must short-circuit the role store")
	})

	t.Run("organization property", func(t *testing.T) {
		ownership := &models.PropertyOwnership{OrganizationID: &orgID}
		for _, role := range models.OrgRoles {
			auth := AuthContext{UserID: string(role)}
			require.Equal(t, role != models.OrgRoleViewer, svc.CanEditProperty(ctx, auth, ownership), role)
			require.True(t, svc.CanViewProperty(ctx, auth, ownership), role)
		}
	})

	t.Run("non member", func(t *testing.T) {
		ownership := &models.PropertyOwnership{UserID: "alice", OrganizationID: &orgID}
		require.False(t, svc.CanViewProperty(ctx, AuthContext{UserID: "mallory"}, ownership))
		require.False(t, svc.CanEditProperty(ctx, AuthContext{UserID: "mallory"}, ownership))
	})

	t.Run("personal property of someone else", func(t *testing.T) {
		ownership := &models.PropertyOwnership{UserID: "alice"}
		require.False(t, svc.CanViewProperty(ctx, AuthContext{UserID: string(models.OrgRoleOwner)}, ownership))
	})

	t.Run("nil ownership and anonymous callers", func(t *testing.T) {
		require.False(t, svc.CanEditProperty(ctx, AuthContext{UserID: "alice"}, nil))
		require.False(t, svc.CanViewProperty(ctx, AuthContext{}, &models.PropertyOwnership{OrganizationID: &orgID}))
	})

	t.Run("store failure collapses to false", func(t *testing.T) {
		roles.err = errors.New("timeout")
		defer func() { roles.err = nil }()
		require.False(t, svc.CanViewProperty(ctx, AuthContext{UserID: string(models.OrgRoleOwner)}, &models.PropertyOwnership{OrganizationID: &orgID}))
	})
}

func TestCanEditOwned(t *testing.T) {
	ctx := context.Background()
	svc, roles := newTestAuthz(t)
	orgID := "org-1"
	roles.set("member", orgID, models.OrgRoleMember)
	roles.set("viewer", orgID, models.OrgRoleViewer)

	require.True(t, svc.CanEditOwned(ctx, AuthContext{UserID: "creator"}, "creator", nil))
	require.True(t, svc.CanEditOwned(ctx, AuthContext{UserID: "member"}, "creator", &orgID))
	require.False(t, svc.CanEditOwned(ctx, AuthContext{UserID: "viewer"}, "creator", &orgID))
	require.False(t, svc.CanEditOwned(ctx, AuthContext{UserID: "member"}, "creator", nil))
}
