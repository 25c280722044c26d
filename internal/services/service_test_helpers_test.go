package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/database/testutil"
	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/repository"
	"github.com/charlesng35/estatehub/internal/storage"
)

// fakeRoleStore keys memberships by "userID/organizationID".
type fakeRoleStore struct {
	roles map[string]models.OrgRole
	err   error
	calls int
}

func newFakeRoleStore() *fakeRoleStore {
	return &fakeRoleStore{roles: map[string]models.OrgRole{}}
}

func (f *fakeRoleStore) set(userID, orgID string, role models.OrgRole) {
	f.roles[userID+"/"+orgID] = role
}

func (f *fakeRoleStore) GetRole(_ context.Context, userID, organizationID string) (models.OrgRole, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	role, ok := f.roles[userID+"/"+organizationID]
	return role, ok, nil
}

type serviceFixture struct {
	db         *gorm.DB
	members    repository.MembershipRepository
	authz      *AuthorizationService
	audit      *AuditService
	store      *storage.MemoryStore
	properties *PropertyService
	amenities  *AmenityService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	members, err := repository.NewMembershipRepository(db)
	require.NoError(t, err)
	authz, err := NewAuthorizationService(members)
	require.NoError(t, err)
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	amenities, err := NewAmenityService(db, nil, audit)
	require.NoError(t, err)

	repo, err := repository.NewPropertyRepository(db)
	require.NoError(t, err)
	store := storage.NewMemoryStore("https://cdn.example.com")
	properties, err := NewPropertyService(repo, authz, amenities, store, audit)
	require.NoError(t, err)

	return &serviceFixture{
		db:         db,
		members:    members,
		authz:      authz,
		audit:      audit,
		store:      store,
		properties: properties,
		amenities:  amenities,
	}
}

func (f *serviceFixture) user(t *testing.T, username string) AuthContext {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		IsActive: true,
	}
	require.NoError(t, f.db.Create(user).Error)
	return AuthContext{UserID: user.ID, UserEmail: user.Email}
}

func (f *serviceFixture) org(t *testing.T, name string) string {
	t.Helper()
	org := &models.Organization{Name: name, Slug: slugify(name)}
	require.NoError(t, f.db.Omit("Members").Create(org).Error)
	return org.ID
}

func (f *serviceFixture) join(t *testing.T, auth AuthContext, orgID string, role models.OrgRole) {
	t.Helper()
	require.NoError(t, f.members.Add(context.Background(), &models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         auth.UserID,
		Role:           role,
	}))
}
