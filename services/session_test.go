package services

import (
	"context"
	"fmt"
	"healthcure-server/models"
	apierrors "healthcure-server/utils/errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mumbai = models.Coordinate{Lat: 19.0760, Lon: 72.8777}

// gatedSource blocks its first call until release is closed.
type gatedSource struct {
	inner   POISource
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedSource(inner POISource) *gatedSource {
	return &gatedSource{inner: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSource) DoctorsAround(ctx context.Context, origin models.Coordinate, radiusMeters int) ([]models.Candidate, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.inner.DoctorsAround(ctx, origin, radiusMeters)
}

func newTestStore(geocoder Geocoder, source POISource) *SessionStore {
	return NewSessionStore(newTestLocator(geocoder, source), 30*time.Minute)
}

func TestSessionStore_CreateWithoutOrigin(t *testing.T) {
	store := newTestStore(&fakeGeocoder{}, &fakeSource{})

	snapshot, outcome, err := store.Create(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.NotEmpty(t, snapshot.ID)
	assert.Equal(t, models.DefaultView, snapshot.View)
	assert.Equal(t, models.StateIdle, snapshot.State)
	assert.Empty(t, snapshot.Markers)
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_CreateWithOriginSearchesAtOnce(t *testing.T) {
	source := &fakeSource{byRange: map[int][]models.Candidate{5000: doctorsNear(delhi, 3)}}
	store := newTestStore(&fakeGeocoder{}, source)

	origin := delhi
	snapshot, outcome, err := store.Create(context.Background(), &origin)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.False(t, outcome.Superseded)
	assert.Equal(t, models.AllSpecialties, outcome.Result.Specialty)
	assert.Equal(t, models.View{Center: delhi, Zoom: 13}, snapshot.View)
	assert.Equal(t, models.StateDone, snapshot.State)
	assert.Len(t, snapshot.Markers, 3)
	assert.Equal(t, 5000, snapshot.RadiusUsed)
}

func TestSessionStore_CreateRejectsInvalidOrigin(t *testing.T) {
	store := newTestStore(&fakeGeocoder{}, &fakeSource{})
	_, _, err := store.Create(context.Background(), &models.Coordinate{Lat: 0, Lon: 200})
	assert.ErrorIs(t, err, apierrors.ErrInvalidCoords)
	assert.Zero(t, store.Len())
}

func TestSessionStore_PlaceSearchFliesToResult(t *testing.T) {
	source := &fakeSource{byRange: map[int][]models.Candidate{5000: doctorsNear(mumbai, 2)}}
	store := newTestStore(&fakeGeocoder{coord: mumbai}, source)
	snapshot, _, err := store.Create(context.Background(), nil)
	require.NoError(t, err)

	outcome, err := store.Search(context.Background(), snapshot.ID, SearchRequest{Place: "Mumbai"})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), outcome.Generation)
	assert.Equal(t, models.View{Center: mumbai, Zoom: 13, Animate: true, Duration: 1.3}, outcome.Session.View)
	assert.Len(t, outcome.Session.Markers, 2)
	assert.Len(t, outcome.Session.Top, 2)
}

func TestSessionStore_FailedSearchClearsMarkersAndKeepsView(t *testing.T) {
	source := &fakeSource{byRange: map[int][]models.Candidate{5000: doctorsNear(delhi, 4)}}
	geocoder := &fakeGeocoder{coord: delhi}
	store := newTestStore(geocoder, source)
	snapshot, _, err := store.Create(context.Background(), nil)
	require.NoError(t, err)

	first, err := store.Search(context.Background(), snapshot.ID, SearchRequest{Place: "Delhi"})
	require.NoError(t, err)
	require.Len(t, first.Session.Markers, 4)

	geocoder.err = apierrors.ErrLocationNotFound
	second, err := store.Search(context.Background(), snapshot.ID, SearchRequest{Place: "Nowhere12345xyz"})
	assert.ErrorIs(t, err, apierrors.ErrLocationNotFound)
	assert.False(t, second.Superseded)

	assert.Equal(t, models.StateFailed, second.Session.State)
	assert.Equal(t, "Location not found.", second.Session.Error)
	assert.Empty(t, second.Session.Markers)
	assert.Empty(t, second.Session.Top)
	assert.Equal(t, first.Session.View, second.Session.View)
}

func TestSessionStore_EmptySearchLeavesNoMarkers(t *testing.T) {
	source := &fakeSource{byRange: map[int][]models.Candidate{5000: doctorsNear(delhi, 2)}}
	store := newTestStore(&fakeGeocoder{coord: delhi}, source)
	snapshot, _, err := store.Create(context.Background(), nil)
	require.NoError(t, err)

	_, err = store.Search(context.Background(), snapshot.ID, SearchRequest{Place: "Delhi"})
	require.NoError(t, err)

	source.mu.Lock()
	source.byRange = nil
	source.mu.Unlock()

	outcome, err := store.Search(context.Background(), snapshot.ID, SearchRequest{Place: "Delhi"})
	require.NoError(t, err)
	assert.Equal(t, models.StateDone, outcome.Session.State)
	assert.Empty(t, outcome.Session.Markers)
	assert.Equal(t, []string{"No doctors found within 20 km."}, outcome.Session.Notices)
}

func TestSessionStore_StaleResultIsDiscarded(t *testing.T) {
	source := newGatedSource(&fakeSource{byRange: map[int][]models.Candidate{5000: doctorsNear(delhi, 3)}})
	store := newTestStore(&fakeGeocoder{}, source)
	snapshot, _, err := store.Create(context.Background(), nil)
	require.NoError(t, err)

	type result struct {
		outcome SearchOutcome
		err     error
	}
	slow := make(chan result, 1)
	go func() {
		origin := delhi
		outcome, err := store.Search(context.Background(), snapshot.ID, SearchRequest{Origin: &origin})
		slow <- result{outcome, err}
	}()
	<-source.entered

	origin := mumbai
	fast, err := store.Search(context.Background(), snapshot.ID, SearchRequest{Origin: &origin})
	require.NoError(t, err)
	assert.False(t, fast.Superseded)
	assert.Equal(t, uint64(2), fast.Generation)

	close(source.release)
	stale := <-slow
	require.NoError(t, stale.err)
	assert.True(t, stale.outcome.Superseded)
	assert.Equal(t, uint64(1), stale.outcome.Generation)

	session, err := store.Get(snapshot.ID)
	require.NoError(t, err)
	current := session.Snapshot()
	assert.Equal(t, uint64(2), current.Generation)
	assert.Equal(t, mumbai, current.View.Center)
	assert.Equal(t, fast.Session.Markers, current.Markers)
}

func TestSessionStore_Close(t *testing.T) {
	store := newTestStore(&fakeGeocoder{}, &fakeSource{})
	snapshot, _, err := store.Create(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, store.Close(snapshot.ID))
	assert.ErrorIs(t, store.Close(snapshot.ID), apierrors.ErrSessionNotFound)

	_, err = store.Get(snapshot.ID)
	assert.ErrorIs(t, err, apierrors.ErrSessionNotFound)
	_, err = store.Search(context.Background(), snapshot.ID, SearchRequest{Place: "Delhi"})
	assert.ErrorIs(t, err, apierrors.ErrSessionNotFound)
}

func TestSessionStore_Reap(t *testing.T) {
	store := newTestStore(&fakeGeocoder{}, &fakeSource{})
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	idle, _, err := store.Create(context.Background(), nil)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	active, _, err := store.Create(context.Background(), nil)
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, store.Reap())

	_, err = store.Get(idle.ID)
	assert.ErrorIs(t, err, apierrors.ErrSessionNotFound)
	_, err = store.Get(active.ID)
	assert.NoError(t, err)
}

func TestSessionStore_ReapSparesSessionsTouchedAfterListing(t *testing.T) {
	store := newTestStore(&fakeGeocoder{}, &fakeSource{})
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	snapshot, _, err := store.Create(context.Background(), nil)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	cutoff := now.Add(-store.ttl)

	// A Get lands between the expiry scan and the removal.
	_, err = store.Get(snapshot.ID)
	require.NoError(t, err)

	assert.False(t, store.remove(snapshot.ID, idleSince(cutoff)))
	assert.Equal(t, 1, store.Len())
	assert.Zero(t, store.Reap())
}

func TestSessionStore_WrappedErrorKeepsUserMessage(t *testing.T) {
	geocoder := &fakeGeocoder{err: fmt.Errorf("geocode %q: %w", "Atlantis", apierrors.ErrLocationNotFound)}
	store := newTestStore(geocoder, &fakeSource{})
	snapshot, _, err := store.Create(context.Background(), nil)
	require.NoError(t, err)

	outcome, err := store.Search(context.Background(), snapshot.ID, SearchRequest{Place: "Atlantis"})
	assert.ErrorIs(t, err, apierrors.ErrLocationNotFound)
	assert.Equal(t, "Location not found.", outcome.Session.Error)
}
