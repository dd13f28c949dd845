package models

import (
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
)

// EarthquakeEvent is one seismic event recorded from the external feed.
// EventID is the feed's own identifier and is unique in the store; that
// constraint is the authoritative dedup for the poller.
type EarthquakeEvent struct {
	EventID       string    `json:"event_id" db:"event_id"`
	Magnitude     float64   `json:"magnitude" db:"magnitude"`
	Place         string    `json:"place" db:"place"`
	Epicenter     geo.Point `json:"epicenter" db:"-"`
	DepthKm       float64   `json:"depth_km" db:"depth_km"`
	OccurredAt    time.Time `json:"occurred_at" db:"occurred_at"`
	Tsunami       bool      `json:"tsunami" db:"tsunami"`
	AlertLevel    string    `json:"alert_level" db:"alert_level"`
	UsersNotified int       `json:"users_notified" db:"users_notified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
