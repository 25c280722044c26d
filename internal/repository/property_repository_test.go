package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/database/testutil"
	"github.com/charlesng35/estatehub/internal/models"
)

func strPtr(s string) *string { return &s }

func newPropertyRepo(t *testing.T) (*gorm.DB, PropertyRepository) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	repo, err := NewPropertyRepository(db)
	require.NoError(t, err)
	return db, repo
}

func TestGetPropertyOwnership(t *testing.T) {
	ctx := context.Background()
	_, repo := newPropertyRepo(t)

	userOwned := &models.Property{Title: "Flat", UserID: strPtr("user-1")}
	require.NoError(t, repo.Create(ctx, userOwned))
	orgOwned := &models.Property{Title: "Office", OrganizationID: strPtr("org-1")}
	require.NoError(t, repo.Create(ctx, orgOwned))
	orphan := &models.Property{Title: "Orphan"}
	require.NoError(t, repo.Create(ctx, orphan))

	ownership, err := repo.GetPropertyOwnership(ctx, userOwned.ID)
	require.NoError(t, err)
	require.Equal(t, "user-1", ownership.UserID)
	require.Nil(t, ownership.OrganizationID)

	ownership, err = repo.GetPropertyOwnership(ctx, orgOwned.ID)
	require.NoError(t, err)
	require.Empty(t, ownership.UserID)
	require.Equal(t, "org-1", *ownership.OrganizationID)

	ownership, err = repo.GetPropertyOwnership(ctx, orphan.ID)
	require.NoError(t, err)
	require.Nil(t, ownership)

	ownership, err = repo.GetPropertyOwnership(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, ownership)
}

func TestGetDetailsOrdersImagesAndLoadsAmenities(t *testing.T) {
	ctx := context.Background()
	db, repo := newPropertyRepo(t)

	property := &models.Property{Title: "House", UserID: strPtr("u")}
	require.NoError(t, repo.Create(ctx, property))
	require.NoError(t, repo.AddImage(ctx, &models.PropertyImage{PropertyID: property.ID, URL: "b.jpg", SortOrder: 2}))
	require.NoError(t, repo.AddImage(ctx, &models.PropertyImage{PropertyID: property.ID, URL: "a.jpg", SortOrder: 1}))

	pool := models.Amenity{Name: "Pool"}
	require.NoError(t, db.Create(&pool).Error)
	link, err := repo.AddAmenity(ctx, property.ID, pool.ID)
	require.NoError(t, err)
	require.Equal(t, "Pool", link.Amenity.Name)

	_, err = repo.AddAmenity(ctx, property.ID, pool.ID)
	require.True(t, IsUniqueViolation(err), "duplicate amenity must violate the unique index: %v", err)

	details, err := repo.GetDetails(ctx, property.ID)
	require.NoError(t, err)
	require.Len(t, details.Images, 2)
	require.Equal(t, "a.jpg", details.Images[0].URL)
	require.Len(t, details.Amenities, 1)

	_, err = repo.GetDetails(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddPrimaryImageResetsPrevious(t *testing.T) {
	ctx := context.Background()
	_, repo := newPropertyRepo(t)

	property := &models.Property{Title: "House", UserID: strPtr("u")}
	require.NoError(t, repo.Create(ctx, property))
	first := &models.PropertyImage{PropertyID: property.ID, URL: "1.jpg", IsPrimary: true}
	require.NoError(t, repo.AddImage(ctx, first))
	require.NoError(t, repo.AddImage(ctx, &models.PropertyImage{PropertyID: property.ID, URL: "2.jpg", IsPrimary: true}))

	reloaded, err := repo.GetImage(ctx, property.ID, first.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsPrimary)
}

func TestGetImageScopedToProperty(t *testing.T) {
	ctx := context.Background()
	_, repo := newPropertyRepo(t)

	a := &models.Property{Title: "A", UserID: strPtr("u")}
	b := &models.Property{Title: "B", UserID: strPtr("u")}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	image := &models.PropertyImage{PropertyID: a.ID, URL: "x.jpg"}
	require.NoError(t, repo.AddImage(ctx, image))

	_, err := repo.GetImage(ctx, b.ID, image.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := repo.GetImage(ctx, a.ID, image.ID)
	require.NoError(t, err)
	require.Equal(t, image.ID, got.ID)

	require.NoError(t, repo.DeleteImage(ctx, image.ID))
	_, err = repo.GetImage(ctx, a.ID, image.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteReturnsImagesAndCascades(t *testing.T) {
	ctx := context.Background()
	db, repo := newPropertyRepo(t)

	property := &models.Property{Title: "House", UserID: strPtr("u")}
	require.NoError(t, repo.Create(ctx, property))
	require.NoError(t, repo.AddImage(ctx, &models.PropertyImage{PropertyID: property.ID, URL: "1.jpg", StorageKey: "props/1.jpg"}))

	images, err := repo.Delete(ctx, property.ID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, "props/1.jpg", images[0].StorageKey)

	var count int64
	require.NoError(t, db.Model(&models.PropertyImage{}).Count(&count).Error)
	require.Zero(t, count)

	_, err = repo.Delete(ctx, property.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListScopesAndFilters(t *testing.T) {
	ctx := context.Background()
	_, repo := newPropertyRepo(t)

	for i, p := range []*models.Property{
		{Title: "Sea View", City: "Lisbon", Price: 100, UserID: strPtr("alice"), Status: models.PropertyPublished},
		{Title: "Garden", City: "Porto", Price: 300, UserID: strPtr("alice")},
		{Title: "Org HQ", City: "Lisbon", Price: 500, OrganizationID: strPtr("acme"), UserID: strPtr("bob")},
	} {
		require.NoError(t, repo.Create(ctx, p), "create %d", i)
	}

	items, total, err := repo.List(ctx, PropertyFilter{UserID: "alice"}, Pagination{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)

	items, total, err = repo.List(ctx, PropertyFilter{OrganizationID: "acme"}, Pagination{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Org HQ", items[0].Title)

	minPrice := 200.0
	items, _, err = repo.List(ctx, PropertyFilter{UserID: "alice", MinPrice: &minPrice}, Pagination{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Garden", items[0].Title)

	items, _, err = repo.List(ctx, PropertyFilter{UserID: "alice", Search: "sea", City: "lisbon"}, Pagination{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, total, err = repo.List(ctx, PropertyFilter{UserID: "alice"}, Pagination{Page: 2, PerPage: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 1)

	_, _, err = repo.List(ctx, PropertyFilter{}, Pagination{})
	require.Error(t, err)
}

func TestUpdateAppliesChanges(t *testing.T) {
	ctx := context.Background()
	_, repo := newPropertyRepo(t)

	property := &models.Property{Title: "Old", UserID: strPtr("u")}
	require.NoError(t, repo.Create(ctx, property))

	updated, err := repo.Update(ctx, property.ID, map[string]any{"title": "New", "price": 42.5})
	require.NoError(t, err)
	require.Equal(t, "New", updated.Title)
	require.InDelta(t, 42.5, updated.Price, 0.001)

	removed, err := repo.RemoveAmenity(ctx, property.ID, "none")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestPaginationNormalize(t *testing.T) {
	require.Equal(t, Pagination{Page: 1, PerPage: DefaultPerPage}, Pagination{}.Normalize())
	require.Equal(t, Pagination{Page: 3, PerPage: MaxPerPage}, Pagination{Page: 3, PerPage: 1000}.Normalize())
}
