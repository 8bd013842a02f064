package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"
)

type fakeZoneStore struct {
	zones map[string]*models.PrivacyZone
}

func newFakeZoneStore() *fakeZoneStore {
	return &fakeZoneStore{zones: make(map[string]*models.PrivacyZone)}
}

func (f *fakeZoneStore) Create(_ context.Context, zone *models.PrivacyZone) error {
	f.zones[zone.ID] = zone
	return nil
}

func (f *fakeZoneStore) GetByID(_ context.Context, id string) (*models.PrivacyZone, error) {
	z, ok := f.zones[id]
	if !ok {
		return nil, apperr.NotFound("privacy zone not found")
	}
	return z, nil
}

func (f *fakeZoneStore) ListByUser(_ context.Context, userID string) ([]*models.PrivacyZone, error) {
	var out []*models.PrivacyZone
	for _, z := range f.zones {
		if z.UserID == userID {
			out = append(out, z)
		}
	}
	return out, nil
}

func (f *fakeZoneStore) Update(_ context.Context, zone *models.PrivacyZone) error {
	if _, ok := f.zones[zone.ID]; !ok {
		return apperr.NotFound("privacy zone not found")
	}
	f.zones[zone.ID] = zone
	return nil
}

func (f *fakeZoneStore) Delete(_ context.Context, id string) error {
	if _, ok := f.zones[id]; !ok {
		return apperr.NotFound("privacy zone not found")
	}
	delete(f.zones, id)
	return nil
}

func TestCreateZoneValidation(t *testing.T) {
	svc := NewPrivacyService(newFakeZoneStore())

	_, _, err := svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Name: "home", Latitude: 10, Longitude: 10, RadiusMeters: 0,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, _, err = svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Name: "home", Latitude: 95, Longitude: 10, RadiusMeters: 100,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, _, err = svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Latitude: 10, Longitude: 10, RadiusMeters: 100,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateZoneReportsOverlapWithoutRejecting(t *testing.T) {
	svc := NewPrivacyService(newFakeZoneStore())

	first, overlaps, err := svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Name: "home", Latitude: 37.7749, Longitude: -122.4194, RadiusMeters: 500,
	})
	require.NoError(t, err)
	assert.False(t, overlaps)
	assert.True(t, first.HideFromMatching)

	// a second zone 300m away with a 500m radius overlaps the first
	second, overlaps, err := svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Name: "office", Latitude: 37.7776, Longitude: -122.4194, RadiusMeters: 500,
	})
	require.NoError(t, err)
	assert.True(t, overlaps)
	assert.NotNil(t, second)
}

func TestCreateZoneNoOverlapAcrossUsers(t *testing.T) {
	svc := NewPrivacyService(newFakeZoneStore())

	_, _, err := svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Name: "home", Latitude: 37.7749, Longitude: -122.4194, RadiusMeters: 500,
	})
	require.NoError(t, err)

	// another user's zone at the same spot is not an overlap for them
	_, overlaps, err := svc.CreateZone(context.Background(), "u2", CreateZoneInput{
		Name: "home", Latitude: 37.7749, Longitude: -122.4194, RadiusMeters: 500,
	})
	require.NoError(t, err)
	assert.False(t, overlaps)
}

func TestUpdateZoneOwnership(t *testing.T) {
	svc := NewPrivacyService(newFakeZoneStore())

	zone, _, err := svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Name: "home", Latitude: 10, Longitude: 10, RadiusMeters: 100,
	})
	require.NoError(t, err)

	_, err = svc.UpdateZone(context.Background(), "intruder", zone.ID, CreateZoneInput{
		Name: "stolen", Latitude: 10, Longitude: 10, RadiusMeters: 100,
	})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	updated, err := svc.UpdateZone(context.Background(), "u1", zone.ID, CreateZoneInput{
		Name: "home base", Latitude: 10, Longitude: 10, RadiusMeters: 250,
	})
	require.NoError(t, err)
	assert.Equal(t, "home base", updated.Name)
	assert.Equal(t, 250.0, updated.RadiusMeters)
}

func TestDeleteZoneOwnership(t *testing.T) {
	store := newFakeZoneStore()
	svc := NewPrivacyService(store)

	zone, _, err := svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Name: "home", Latitude: 10, Longitude: 10, RadiusMeters: 100,
	})
	require.NoError(t, err)

	err = svc.DeleteZone(context.Background(), "intruder", zone.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, svc.DeleteZone(context.Background(), "u1", zone.ID))
	assert.Empty(t, store.zones)
}

func TestIsHiddenInsideHidingZone(t *testing.T) {
	svc := NewPrivacyService(newFakeZoneStore())

	_, _, err := svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Name: "home", Latitude: 37.7749, Longitude: -122.4194, RadiusMeters: 500,
	})
	require.NoError(t, err)

	hidden, err := svc.IsHidden(context.Background(), "u1", 37.7749, -122.4194)
	require.NoError(t, err)
	assert.True(t, hidden)

	// well outside the 500m radius
	hidden, err = svc.IsHidden(context.Background(), "u1", 37.8500, -122.4194)
	require.NoError(t, err)
	assert.False(t, hidden)
}

func TestIsHiddenIgnoresNonHidingZones(t *testing.T) {
	svc := NewPrivacyService(newFakeZoneStore())

	visible := false
	_, _, err := svc.CreateZone(context.Background(), "u1", CreateZoneInput{
		Name: "park", Latitude: 37.7749, Longitude: -122.4194, RadiusMeters: 500,
		HideFromMatching: &visible,
	})
	require.NoError(t, err)

	hidden, err := svc.IsHidden(context.Background(), "u1", 37.7749, -122.4194)
	require.NoError(t, err)
	assert.False(t, hidden)
}
