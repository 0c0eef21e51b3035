package services

import (
	"context"
	"testing"
	"time"

	"event-rsvp-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRsvpFixture() (*memStore, *recordingPublisher, *RsvpService) {
	store := newMemStore()
	store.addUser(models.User{ID: "u1", Device: device("h1")})
	store.addUser(models.User{ID: "u2"})
	store.addEvent(models.Event{ID: "e1", CreatorID: "creator", Title: "Picnic"})
	pub := &recordingPublisher{}
	return store, pub, NewRsvpService(store, NewKeyedMutex(), time.Second, pub)
}

func TestRsvpService_CreateMirrorsDevice(t *testing.T) {
	_, pub, svc := newRsvpFixture()

	rsvp, err := svc.Create(context.Background(), "u1", CreateRsvpInput{EventID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, device("h1"), rsvp.Device)
	assert.Equal(t, models.Preferences{}, rsvp.Preferences)

	changes := pub.published()
	require.Len(t, changes, 1)
	assert.Equal(t, models.Change{Kind: models.ChangeRsvpCreated, EventID: "e1", UserID: "u1"}, changes[0])
}

func TestRsvpService_CreateRejectsDuplicatesAndMissingEvents(t *testing.T) {
	_, _, svc := newRsvpFixture()

	_, err := svc.Create(context.Background(), "u1", CreateRsvpInput{EventID: "e1"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "u1", CreateRsvpInput{EventID: "e1"})
	require.ErrorIs(t, err, models.ErrConflict)

	_, err = svc.Create(context.Background(), "u1", CreateRsvpInput{EventID: "nope"})
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.Create(context.Background(), "u1", CreateRsvpInput{})
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRsvpService_UpdatePreferencesIsPartial(t *testing.T) {
	_, _, svc := newRsvpFixture()
	rsvp, err := svc.Create(context.Background(), "u1", CreateRsvpInput{
		EventID:     "e1",
		Preferences: models.Preferences{NotifyOnComment: true},
	})
	require.NoError(t, err)

	updated, err := svc.UpdatePreferences(context.Background(), "u1", rsvp.ID, models.PreferencesUpdate{
		NotifyOnAnnouncement: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, models.Preferences{NotifyOnAnnouncement: true, NotifyOnComment: true}, updated.Preferences)

	_, err = svc.UpdatePreferences(context.Background(), "u2", rsvp.ID, models.PreferencesUpdate{NotifyOnUpdates: ptr(true)})
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.UpdatePreferences(context.Background(), "u1", rsvp.ID, models.PreferencesUpdate{})
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRsvpService_CancelThenUpdateFails(t *testing.T) {
	_, _, svc := newRsvpFixture()
	rsvp, err := svc.Create(context.Background(), "u1", CreateRsvpInput{EventID: "e1"})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), "u1", rsvp.ID))

	_, err = svc.UpdatePreferences(context.Background(), "u1", rsvp.ID, models.PreferencesUpdate{NotifyOnUpdates: ptr(true)})
	require.ErrorIs(t, err, models.ErrNotFound)

	list, err := svc.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRsvpService_NewRsvpFollowsLaterSync(t *testing.T) {
	store, _, rsvps := newRsvpFixture()
	locker := NewKeyedMutex()
	rsvps.locker = locker
	provider := newFakeProvider()
	sync := NewDeviceSyncService(store, provider, locker, time.Second)

	rsvp, err := rsvps.Create(context.Background(), "u2", CreateRsvpInput{EventID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, models.Device{}, rsvp.Device)

	_, err = sync.SyncDeviceStats(context.Background(), "u2", models.DeviceClaim{Token: "w", Platform: models.PlatformAndroid})
	require.NoError(t, err)
	assert.Equal(t, store.user("u2").Device, store.rsvp(rsvp.ID).Device)
}
