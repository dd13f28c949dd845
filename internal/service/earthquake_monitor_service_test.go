package service

import (
	"context"
	"testing"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/notification"
	"github.com/noyon-ahamed/are-you-okay/internal/repository"
	"github.com/noyon-ahamed/are-you-okay/internal/usgs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quakeFixture(t *testing.T, feed *fakeFeed) (*EarthquakeMonitorService, *fakeUserRepo, *fakeQuakeRepo, *notification.MockSender) {
	t.Helper()

	users := newFakeUserRepo()
	quakes := newFakeQuakeRepo()
	alerts := newFakeAlertRepo()
	push := notification.NewMockSender("push", testLogger())

	dispatcher := NewDispatchService(alerts, notification.Channels{Push: push}, 4, time.Second, testLogger())
	monitor, err := NewEarthquakeMonitorService(feed, users, quakes, dispatcher, nil,
		100, 100, testLogger())
	require.NoError(t, err)

	return monitor, users, quakes, push
}

func nearbyUser(id string, distance float64) repository.NearbyUser {
	return repository.NearbyUser{
		User: models.User{
			ID:          id,
			IsActive:    true,
			QuakeAlerts: true,
			PushToken:   "token-" + id,
		},
		DistanceKm: distance,
	}
}

func sampleEvent() usgs.Event {
	return usgs.Event{
		ID:         "us7000test",
		Magnitude:  5.6,
		Place:      "near Sylhet, Bangladesh",
		Epicenter:  geo.Point{Longitude: 91.87, Latitude: 24.89},
		DepthKm:    12,
		OccurredAt: time.Now().Add(-5 * time.Minute),
	}
}

func TestPollNotifiesUsersWithinRadius(t *testing.T) {
	feed := &fakeFeed{events: []usgs.Event{sampleEvent()}}
	monitor, users, quakes, push := quakeFixture(t, feed)

	// Subjects at 10, 50 and 150 km; the alert radius is 100 km.
	users.nearby = []repository.NearbyUser{
		nearbyUser("u1", 10),
		nearbyUser("u2", 50),
		nearbyUser("u3", 150),
	}

	monitor.Run(context.Background())

	assert.Len(t, push.Sent(), 2, "only users inside the radius are notified")

	event, ok := quakes.events["us7000test"]
	require.True(t, ok, "event must be persisted")
	assert.Equal(t, 2, event.UsersNotified)
}

func TestPollSkipsAlreadySeenEvents(t *testing.T) {
	feed := &fakeFeed{events: []usgs.Event{sampleEvent()}}
	monitor, users, quakes, push := quakeFixture(t, feed)
	users.nearby = []repository.NearbyUser{nearbyUser("u1", 10)}

	monitor.Run(context.Background())
	monitor.Run(context.Background())

	assert.Len(t, push.Sent(), 1, "a repeated feed entry must not re-notify")
	assert.Len(t, quakes.events, 1)
}

func TestPollRespectsStoreDedupAcrossRestarts(t *testing.T) {
	feed := &fakeFeed{events: []usgs.Event{sampleEvent()}}
	monitor, users, quakes, push := quakeFixture(t, feed)
	users.nearby = []repository.NearbyUser{nearbyUser("u1", 10)}

	// Event already persisted by a previous process; the in-memory cache is
	// cold but the store check must still drop it.
	require.NoError(t, quakes.Create(context.Background(), &models.EarthquakeEvent{EventID: "us7000test"}))

	monitor.Run(context.Background())

	assert.Empty(t, push.Sent())
}

func TestPollAbortsTickOnFeedError(t *testing.T) {
	feed := &fakeFeed{err: assert.AnError}
	monitor, users, quakes, push := quakeFixture(t, feed)
	users.nearby = []repository.NearbyUser{nearbyUser("u1", 10)}

	monitor.Run(context.Background())

	assert.Empty(t, push.Sent())
	assert.Empty(t, quakes.events)
}

func TestPollSkipsOptedOutUsers(t *testing.T) {
	feed := &fakeFeed{events: []usgs.Event{sampleEvent()}}
	monitor, users, quakes, push := quakeFixture(t, feed)

	optedOut := nearbyUser("u1", 10)
	optedOut.QuakeAlerts = false
	users.nearby = []repository.NearbyUser{optedOut, nearbyUser("u2", 20)}

	monitor.Run(context.Background())

	assert.Len(t, push.Sent(), 1)
	assert.Equal(t, 1, quakes.events["us7000test"].UsersNotified)
}

func TestPollEmitsRealtimeEventWhenPushFails(t *testing.T) {
	feed := &fakeFeed{events: []usgs.Event{sampleEvent()}}

	users := newFakeUserRepo()
	quakes := newFakeQuakeRepo()
	alerts := newFakeAlertRepo()
	push := notification.NewMockSender("push", testLogger())
	push.Err = assert.AnError
	emitter := &fakeEmitter{}

	dispatcher := NewDispatchService(alerts, notification.Channels{Push: push}, 4, time.Second, testLogger())
	monitor, err := NewEarthquakeMonitorService(feed, users, quakes, dispatcher, emitter,
		100, 100, testLogger())
	require.NoError(t, err)

	users.nearby = []repository.NearbyUser{nearbyUser("u1", 10)}

	monitor.Run(context.Background())

	// The push provider is down, yet connected sessions still get the event.
	assert.Empty(t, push.Sent())
	events := emitter.byType("earthquake_alert")
	require.Len(t, events, 1)
	assert.Equal(t, "u1", events[0].userID)
	assert.Equal(t, 0, quakes.events["us7000test"].UsersNotified)
}
