// Package usgs fetches recent seismic events from the USGS FDSN event feed.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
	"github.com/noyon-ahamed/are-you-okay/internal/logger"

	"github.com/codeGROOVE-dev/retry"
)

// Event is one seismic event as reported by the feed.
type Event struct {
	ID         string
	Magnitude  float64
	Place      string
	Epicenter  geo.Point
	DepthKm    float64
	OccurredAt time.Time
	Tsunami    bool
	AlertLevel string
}

type Client struct {
	baseURL      string
	minMagnitude float64
	lookback     time.Duration
	client       *http.Client
	log          *logger.Logger
}

func NewClient(baseURL string, minMagnitude float64, lookback, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		minMagnitude: minMagnitude,
		lookback:     lookback,
		client:       &http.Client{Timeout: timeout},
		log:          log,
	}
}

// GeoJSON shapes of the USGS response. Coordinates are [lon, lat, depth];
// time is unix milliseconds.
type feedResponse struct {
	Features []feedFeature `json:"features"`
}

type feedFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag     float64 `json:"mag"`
		Place   string  `json:"place"`
		Time    int64   `json:"time"`
		Tsunami int     `json:"tsunami"`
		Alert   string  `json:"alert"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// RecentEvents returns events above the magnitude threshold from the lookback
// window, filtered server-side.
func (c *Client) RecentEvents(ctx context.Context) ([]Event, error) {
	params := url.Values{}
	params.Set("format", "geojson")
	params.Set("starttime", time.Now().Add(-c.lookback).UTC().Format(time.RFC3339))
	params.Set("minmagnitude", fmt.Sprintf("%.1f", c.minMagnitude))
	params.Set("orderby", "time")

	endpoint := c.baseURL + "?" + params.Encode()

	var feed feedResponse

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			resp, err := c.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("feed HTTP %d", resp.StatusCode)
			}

			feed = feedResponse{}
			if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
				return fmt.Errorf("decode feed: %w", err)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("Retrying earthquake feed fetch (attempt %d): %v", n, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch earthquake feed: %w", err)
	}

	events := make([]Event, 0, len(feed.Features))
	for _, f := range feed.Features {
		if len(f.Geometry.Coordinates) < 3 {
			c.log.Warn("Skipping feed event %s with malformed coordinates", f.ID)
			continue
		}

		events = append(events, Event{
			ID:        f.ID,
			Magnitude: f.Properties.Mag,
			Place:     f.Properties.Place,
			Epicenter: geo.Point{
				Longitude: f.Geometry.Coordinates[0],
				Latitude:  f.Geometry.Coordinates[1],
			},
			DepthKm:    f.Geometry.Coordinates[2],
			OccurredAt: time.UnixMilli(f.Properties.Time).UTC(),
			Tsunami:    f.Properties.Tsunami != 0,
			AlertLevel: f.Properties.Alert,
		})
	}

	return events, nil
}
