package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/permissions"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
)

type staticChecker map[string]bool

func (c staticChecker) Check(_ context.Context, userID, permissionID string) (bool, error) {
	return c[userID+"/"+permissionID], nil
}

func TestAmenityCatalog(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	admin := f.user(t, "admin")
	alice := f.user(t, "alice")

	checker := staticChecker{admin.UserID + "/" + permissions.AmenityManage: true}
	svc, err := NewAmenityService(f.db, checker, f.audit)
	require.NoError(t, err)

	pool, err := svc.Create(ctx, AmenityInput{Name: "Pool", Category: "Outdoor"}, admin)
	require.NoError(t, err)
	require.Equal(t, "outdoor", pool.Category)

	_, err = svc.Create(ctx, AmenityInput{Name: "Gym"}, alice)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Create(ctx, AmenityInput{Name: "Pool"}, admin)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.Create(ctx, AmenityInput{Name: "Gym", Category: "indoor"}, admin)
	require.NoError(t, err)

	outdoor, err := svc.List(ctx, "outdoor")
	require.NoError(t, err)
	require.Len(t, outdoor, 1)

	updated, err := svc.Update(ctx, pool.ID, AmenityInput{Name: "Swimming pool", Category: "outdoor"}, admin)
	require.NoError(t, err)
	require.Equal(t, "Swimming pool", updated.Name)

	property := createListing(t, f, alice, "")
	require.True(t, f.properties.AddPropertyAmenity(ctx, property.ID, pool.ID, alice).Success)

	require.NoError(t, svc.Delete(ctx, pool.ID, admin))
	var links int64
	require.NoError(t, f.db.Model(&models.PropertyAmenity{}).Where("amenity_id = ?", pool.ID).Count(&links).Error)
	require.Zero(t, links)

	_, err = svc.GetAmenity(ctx, pool.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, pool.ID, admin), apperrors.ErrNotFound)
}

func TestAmenityWritesDeniedWithoutChecker(t *testing.T) {
	f := newServiceFixture(t)
	alice := f.user(t, "alice")

	_, err := f.amenities.Create(context.Background(), AmenityInput{Name: "Sauna"}, alice)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.amenities.Create(context.Background(), AmenityInput{Name: "Sauna"}, AuthContext{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
