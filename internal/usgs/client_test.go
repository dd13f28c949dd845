package usgs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `{
	"features": [
		{
			"id": "us7000abcd",
			"properties": {
				"mag": 6.2,
				"place": "41 km SSE of Hualien City, Taiwan",
				"time": 1756400000000,
				"tsunami": 1,
				"alert": "yellow"
			},
			"geometry": {
				"coordinates": [121.65, 23.62, 35.0]
			}
		},
		{
			"id": "us7000badc",
			"properties": {
				"mag": 4.8,
				"place": "near the coast of Chiapas, Mexico",
				"time": 1756403600000,
				"tsunami": 0,
				"alert": ""
			},
			"geometry": {
				"coordinates": [-93.2, 15.1, 60.3]
			}
		}
	]
}`

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: logger.ERROR, Mode: logger.MINIMAL})
	require.NoError(t, err)
	return log
}

func TestRecentEventsParsesFeed(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"format":       r.URL.Query().Get("format"),
			"minmagnitude": r.URL.Query().Get("minmagnitude"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	client := NewClient(server.URL, 4.5, time.Hour, 10*time.Second, testLogger(t))

	events, err := client.RecentEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "geojson", gotQuery["format"])
	assert.Equal(t, "4.5", gotQuery["minmagnitude"])

	first := events[0]
	assert.Equal(t, "us7000abcd", first.ID)
	assert.Equal(t, 6.2, first.Magnitude)
	assert.Equal(t, 121.65, first.Epicenter.Longitude)
	assert.Equal(t, 23.62, first.Epicenter.Latitude)
	assert.Equal(t, 35.0, first.DepthKm)
	assert.True(t, first.Tsunami)
	assert.Equal(t, "yellow", first.AlertLevel)
	assert.Equal(t, time.UnixMilli(1756400000000).UTC(), first.OccurredAt)

	assert.False(t, events[1].Tsunami)
}

func TestRecentEventsSkipsMalformedGeometry(t *testing.T) {
	body := `{"features":[{"id":"bad1","properties":{"mag":5.0,"place":"x","time":0,"tsunami":0},"geometry":{"coordinates":[10.0]}}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewClient(server.URL, 4.5, time.Hour, 10*time.Second, testLogger(t))

	events, err := client.RecentEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecentEventsRetriesOnServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"features":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 4.5, time.Hour, 10*time.Second, testLogger(t))

	events, err := client.RecentEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 2, calls)
}
