package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/repository"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
)

func createListing(t *testing.T, f *serviceFixture, auth AuthContext, orgID string) *models.Property {
	t.Helper()
	input := CreatePropertyInput{Title: "Sea view flat", Price: 250000, Currency: "eur", ListingType: models.ListingSale}
	if orgID != "" {
		input.OrganizationID = &orgID
	}
	res := f.properties.CreateProperty(context.Background(), input, auth)
	require.True(t, res.Success, res.Error)
	return res.Data
}

func TestCreatePropertyStampsCaller(t *testing.T) {
	f := newServiceFixture(t)
	alice := f.user(t, "alice")

	spoofed := "someone-else"
	res := f.properties.CreateProperty(context.Background(), CreatePropertyInput{
		Title:       "  <b>Loft</b> ",
		Description: `<p>Bright</p><script>alert(1)</script>`,
		Currency:    "usd",
		UserID:      &spoofed,
	}, alice)
	require.True(t, res.Success, res.Error)
	require.Equal(t, alice.UserID, *res.Data.UserID)
	require.Nil(t, res.Data.OrganizationID)
	require.Equal(t, "Loft", res.Data.Title)
	require.Equal(t, "<p>Bright</p>", res.Data.Description)
	require.Equal(t, "USD", res.Data.Currency)
	require.Equal(t, models.PropertyDraft, res.Data.Status)
}

func TestCreatePropertyForOrganizationRequiresEditor(t *testing.T) {
	f := newServiceFixture(t)
	member := f.user(t, "member")
	viewer := f.user(t, "viewer")
	orgID := f.org(t, "Acme")
	f.join(t, member, orgID, models.OrgRoleMember)
	f.join(t, viewer, orgID, models.OrgRoleViewer)

	property := createListing(t, f, member, orgID)
	require.Equal(t, orgID, *property.OrganizationID)
	require.Equal(t, member.UserID, *property.UserID)

	res := f.properties.CreateProperty(context.Background(), CreatePropertyInput{Title: "x", OrganizationID: &orgID}, viewer)
	require.False(t, res.Success)
	require.Equal(t, MsgInsufficientRole, res.Error)
	require.ErrorIs(t, res.Err(), apperrors.ErrForbidden)
}

func TestCreatePropertyValidates(t *testing.T) {
	f := newServiceFixture(t)
	alice := f.user(t, "alice")

	res := f.properties.CreateProperty(context.Background(), CreatePropertyInput{Price: -1}, alice)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err(), apperrors.ErrValidation)
}

func TestGetPropertyAccess(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	property := createListing(t, f, alice, "")

	res := f.properties.GetProperty(ctx, property.ID, alice)
	require.True(t, res.Success, res.Error)
	require.Equal(t, property.ID, res.Data.ID)

	res = f.properties.GetProperty(ctx, property.ID, bob)
	require.False(t, res.Success)
	require.Equal(t, MsgUnauthorizedView, res.Error)

	res = f.properties.GetProperty(ctx, "missing", alice)
	require.False(t, res.Success)
	require.Equal(t, MsgPropertyNotFound, res.Error)
	require.ErrorIs(t, res.Err(), apperrors.ErrNotFound)
}

func TestViewerCanListButNotEdit(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	owner := f.user(t, "owner")
	viewer := f.user(t, "viewer")
	acme := f.org(t, "Acme")
	f.join(t, owner, acme, models.OrgRoleOwner)
	f.join(t, viewer, acme, models.OrgRoleViewer)
	property := createListing(t, f, owner, acme)

	list := f.properties.GetUserProperties(ctx, PropertyFilters{OrganizationID: acme}, repository.Pagination{}, viewer)
	require.True(t, list.Success, list.Error)
	require.Len(t, list.Data.Items, 1)
	require.Equal(t, int64(1), list.Data.Total)

	title := "Renamed"
	update := f.properties.UpdateProperty(ctx, property.ID, UpdatePropertyInput{Title: &title}, viewer)
	require.False(t, update.Success)
	require.Equal(t, MsgUnauthorizedEdit, update.Error)
	require.ErrorIs(t, update.Err(), apperrors.ErrForbidden)
}

func TestViewerOfOtherOrganizationSeesNothing(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	owner := f.user(t, "owner")
	outsider := f.user(t, "outsider")
	acme := f.org(t, "Acme")
	other := f.org(t, "Beta")
	f.join(t, owner, acme, models.OrgRoleOwner)
	f.join(t, outsider, other, models.OrgRoleViewer)
	property := createListing(t, f, owner, acme)

	list := f.properties.GetUserProperties(ctx, PropertyFilters{OrganizationID: acme}, repository.Pagination{}, outsider)
	require.False(t, list.Success)
	require.Equal(t, MsgNotOrgMember, list.Error)

	get := f.properties.GetProperty(ctx, property.ID, outsider)
	require.False(t, get.Success)
	require.Equal(t, MsgUnauthorizedView, get.Error)
}

func TestOrganizationMembersEditOrganizationProperty(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	creator := f.user(t, "creator")
	acme := f.org(t, "Acme")
	f.join(t, creator, acme, models.OrgRoleOwner)
	property := createListing(t, f, creator, acme)

	for _, role := range []models.OrgRole{models.OrgRoleAdmin, models.OrgRoleMember} {
		auth := f.user(t, string(role))
		f.join(t, auth, acme, role)

		price := 1000.0
		res := f.properties.UpdateProperty(ctx, property.ID, UpdatePropertyInput{Price: &price}, auth)
		require.True(t, res.Success, "%s: %s", role, res.Error)
		require.Equal(t, price, res.Data.Price)
	}
}

func TestUpdatePropertyMovingOrganization(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	alice := f.user(t, "alice")
	acme := f.org(t, "Acme")
	beta := f.org(t, "Beta")
	f.join(t, alice, acme, models.OrgRoleMember)
	f.join(t, alice, beta, models.OrgRoleViewer)
	property := createListing(t, f, alice, "")

	res := f.properties.UpdateProperty(ctx, property.ID, UpdatePropertyInput{OrganizationID: &beta}, alice)
	require.False(t, res.Success)
	require.Equal(t, MsgInsufficientRole, res.Error)

	res = f.properties.UpdateProperty(ctx, property.ID, UpdatePropertyInput{OrganizationID: &acme}, alice)
	require.True(t, res.Success, res.Error)
	require.Equal(t, acme, *res.Data.OrganizationID)

	empty := ""
	res = f.properties.UpdateProperty(ctx, property.ID, UpdatePropertyInput{OrganizationID: &empty}, alice)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err(), apperrors.ErrForbidden)
	require.Equal(t, MsgInsufficientRole, res.Error)

	// Re-sending the current organization is not a move.
	res = f.properties.UpdateProperty(ctx, property.ID, UpdatePropertyInput{OrganizationID: &acme}, alice)
	require.True(t, res.Success, res.Error)

	manager := f.user(t, "manager")
	f.join(t, manager, acme, models.OrgRoleAdmin)
	res = f.properties.UpdateProperty(ctx, property.ID, UpdatePropertyInput{OrganizationID: &empty}, manager)
	require.True(t, res.Success, res.Error)
	require.Nil(t, res.Data.OrganizationID)
}

func TestOrganizationMemberCannotMovePropertyOut(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	owner := f.user(t, "owner")
	member := f.user(t, "member")
	acme := f.org(t, "Acme")
	beta := f.org(t, "Beta")
	f.join(t, owner, acme, models.OrgRoleOwner)
	f.join(t, member, acme, models.OrgRoleMember)
	f.join(t, member, beta, models.OrgRoleOwner)
	property := createListing(t, f, owner, acme)

	res := f.properties.UpdateProperty(ctx, property.ID, UpdatePropertyInput{OrganizationID: &beta}, member)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err(), apperrors.ErrForbidden)

	detail := f.properties.GetProperty(ctx, property.ID, owner)
	require.True(t, detail.Success, detail.Error)
	require.Equal(t, acme, *detail.Data.OrganizationID)

	res = f.properties.UpdateProperty(ctx, property.ID, UpdatePropertyInput{OrganizationID: &beta}, owner)
	require.False(t, res.Success)
	require.Equal(t, MsgNotOrgMember, res.Error)
}

func TestPlainTextFieldsAreStoredUnescaped(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	alice := f.user(t, "alice")

	res := f.properties.CreateProperty(ctx, CreatePropertyInput{
		Title:       "Villa & Pool, 3 < 4 for O'Neil",
		Description: "Tom & Jerry's <em>den</em><script>x()</script>",
	}, alice)
	require.True(t, res.Success, res.Error)
	require.Equal(t, "Villa & Pool, 3 < 4 for O'Neil", res.Data.Title)
	require.Equal(t, "Tom & Jerry's <em>den</em>", res.Data.Description)

	title := "Smith & Sons' <b>loft</b>"
	res = f.properties.UpdateProperty(ctx, res.Data.ID, UpdatePropertyInput{Title: &title}, alice)
	require.True(t, res.Success, res.Error)
	require.Equal(t, "Smith & Sons' loft", res.Data.Title)
}

func TestGetUserPropertiesReturnsFirstImageOnly(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	property := createListing(t, f, alice, "")
	createListing(t, f, bob, "")

	for i, url := range []string{"https://cdn.example.com/b.jpg", "https://cdn.example.com/a.jpg"} {
		res := f.properties.AddPropertyImage(ctx, property.ID, AddImageInput{URL: url, SortOrder: 1 - i}, alice)
		require.True(t, res.Success, res.Error)
	}

	list := f.properties.GetUserProperties(ctx, PropertyFilters{}, repository.Pagination{}, alice)
	require.True(t, list.Success, list.Error)
	require.Len(t, list.Data.Items, 1)
	require.Len(t, list.Data.Items[0].Images, 1)
	require.Equal(t, "https://cdn.example.com/a.jpg", list.Data.Items[0].Images[0].URL)
	require.Equal(t, 1, list.Data.Page)
	require.Equal(t, 20, list.Data.PerPage)

	anonymous := f.properties.GetUserProperties(ctx, PropertyFilters{}, repository.Pagination{}, AuthContext{})
	require.False(t, anonymous.Success)
	require.ErrorIs(t, anonymous.Err(), apperrors.ErrUnauthorized)
}

func TestRemovePropertyImage(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	alice := f.user(t, "alice")
	property := createListing(t, f, alice, "")

	url := f.store.Put("properties/p/1.jpg", []byte("jpeg"))
	added := f.properties.AddPropertyImage(ctx, property.ID, AddImageInput{URL: url, IsPrimary: true}, alice)
	require.True(t, added.Success, added.Error)
	require.Equal(t, "properties/p/1.jpg", added.Data.StorageKey)

	removed := f.properties.RemovePropertyImage(ctx, property.ID, added.Data.ID, alice)
	require.True(t, removed.Success, removed.Error)
	require.False(t, f.store.Exists("properties/p/1.jpg"))

	missing := f.properties.RemovePropertyImage(ctx, property.ID, added.Data.ID, alice)
	require.False(t, missing.Success)
	require.Equal(t, MsgImageNotFound, missing.Error)
}

func TestRemovePropertyImageToleratesStorageFailure(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	alice := f.user(t, "alice")
	property := createListing(t, f, alice, "")

	url := f.store.Put("properties/p/2.jpg", []byte("jpeg"))
	added := f.properties.AddPropertyImage(ctx, property.ID, AddImageInput{URL: url}, alice)
	require.True(t, added.Success, added.Error)

	f.store.DeleteErr = errors.New("bucket unavailable")
	removed := f.properties.RemovePropertyImage(ctx, property.ID, added.Data.ID, alice)
	require.True(t, removed.Success, removed.Error)

	details := f.properties.GetProperty(ctx, property.ID, alice)
	require.True(t, details.Success)
	require.Empty(t, details.Data.Images)
}

func TestPropertyAmenities(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	property := createListing(t, f, alice, "")

	pool := &models.Amenity{Name: "Pool", Category: "outdoor"}
	require.NoError(t, f.db.Create(pool).Error)

	added := f.properties.AddPropertyAmenity(ctx, property.ID, pool.ID, alice)
	require.True(t, added.Success, added.Error)
	require.Equal(t, "Pool", added.Data.Amenity.Name)

	dup := f.properties.AddPropertyAmenity(ctx, property.ID, pool.ID, alice)
	require.False(t, dup.Success)
	require.ErrorIs(t, dup.Err(), apperrors.ErrConflict)

	unknown := f.properties.AddPropertyAmenity(ctx, property.ID, "00000000-0000-0000-0000-000000000000", alice)
	require.False(t, unknown.Success)
	require.Equal(t, "Amenity not found", unknown.Error)

	forbidden := f.properties.RemovePropertyAmenity(ctx, property.ID, pool.ID, bob)
	require.False(t, forbidden.Success)
	require.Equal(t, MsgUnauthorizedEdit, forbidden.Error)

	removed := f.properties.RemovePropertyAmenity(ctx, property.ID, pool.ID, alice)
	require.True(t, removed.Success, removed.Error)

	again := f.properties.RemovePropertyAmenity(ctx, property.ID, pool.ID, alice)
	require.False(t, again.Success)
	require.ErrorIs(t, again.Err(), apperrors.ErrNotFound)
}

func TestDeletePropertyCleansUpBlobs(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	property := createListing(t, f, alice, "")

	url := f.store.Put("properties/p/3.jpg", []byte("jpeg"))
	require.True(t, f.properties.AddPropertyImage(ctx, property.ID, AddImageInput{URL: url}, alice).Success)

	denied := f.properties.DeleteProperty(ctx, property.ID, bob)
	require.False(t, denied.Success)
	require.Equal(t, MsgUnauthorizedEdit, denied.Error)

	res := f.properties.DeleteProperty(ctx, property.ID, alice)
	require.True(t, res.Success, res.Error)
	require.Equal(t, property.ID, res.Data)
	require.False(t, f.store.Exists("properties/p/3.jpg"))

	gone := f.properties.DeleteProperty(ctx, property.ID, alice)
	require.False(t, gone.Success)
	require.Equal(t, MsgPropertyNotFound, gone.Error)

	var logs []models.AuditLog
	require.NoError(t, f.db.Where("action = ?", "property.delete").Find(&logs).Error)
	require.Len(t, logs, 1)
}

func TestHandleServiceError(t *testing.T) {
	require.Equal(t, "Image not found", handleServiceError(apperrors.NewNotFound("Image not found")))
	require.Equal(t, "disk full", handleServiceError(errors.New("disk full")))
	require.Equal(t, MsgUnexpectedError, handleServiceError("boom"))
	require.Equal(t, MsgUnexpectedError, handleServiceError(nil))
}

func TestRecoverResultTurnsPanicIntoFailure(t *testing.T) {
	run := func() (res Result[int]) {
		defer recoverResult(&res, "test")
		panic("kaboom")
	}
	res := run()
	require.False(t, res.Success)
	require.Equal(t, MsgUnexpectedError, res.Error)
	require.False(t, apperrors.IsOperational(res.Err()))
}
