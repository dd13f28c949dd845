package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
	"github.com/noyon-ahamed/are-you-okay/internal/models"

	"github.com/lib/pq"
)

// ErrDuplicateEvent is returned when an event id was already persisted. The
// unique constraint on event_id is the authoritative dedup for the feed.
var ErrDuplicateEvent = errors.New("earthquake event already recorded")

// IEarthquakeRepository defines the persistence operations for seismic events.
type IEarthquakeRepository interface {
	Create(ctx context.Context, event *models.EarthquakeEvent) error
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
	SetUsersNotified(ctx context.Context, eventID string, count int) error
	ListRecentNear(ctx context.Context, center geo.Point, radiusKm float64, limit int) ([]models.EarthquakeEvent, error)
}

type EarthquakeRepository struct {
	db *sql.DB
}

func NewEarthquakeRepository(db *sql.DB) *EarthquakeRepository {
	return &EarthquakeRepository{db: db}
}

func (r *EarthquakeRepository) Create(ctx context.Context, event *models.EarthquakeEvent) error {
	query := `
		INSERT INTO earthquake_events (
			event_id, magnitude, place, longitude, latitude,
			depth_km, occurred_at, tsunami, alert_level, users_notified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx, query,
		event.EventID,
		event.Magnitude,
		event.Place,
		event.Epicenter.Longitude,
		event.Epicenter.Latitude,
		event.DepthKm,
		event.OccurredAt,
		event.Tsunami,
		event.AlertLevel,
		event.UsersNotified,
	).Scan(&event.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to create earthquake event: %w", err)
	}

	return nil
}

func (r *EarthquakeRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM earthquake_events WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check earthquake event: %w", err)
	}
	return exists, nil
}

func (r *EarthquakeRepository) SetUsersNotified(ctx context.Context, eventID string, count int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE earthquake_events SET users_notified = $2 WHERE event_id = $1`, eventID, count)
	if err != nil {
		return fmt.Errorf("failed to update notified count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("earthquake event %s not found", eventID)
	}

	return nil
}

// ListRecentNear returns the most recent events within radiusKm of a point,
// newest first.
func (r *EarthquakeRepository) ListRecentNear(ctx context.Context, center geo.Point, radiusKm float64, limit int) ([]models.EarthquakeEvent, error) {
	query := `
		SELECT * FROM (
			SELECT event_id, magnitude, place, longitude, latitude,
			       depth_km, occurred_at, tsunami, alert_level, users_notified, created_at,
			       (6371 * acos(least(1.0,
			            cos(radians($2)) * cos(radians(latitude)) * cos(radians(longitude) - radians($1))
			          + sin(radians($2)) * sin(radians(latitude))
			       ))) AS distance_km
			FROM earthquake_events
		) nearby
		WHERE distance_km <= $3
		ORDER BY occurred_at DESC
		LIMIT $4
	`

	rows, err := r.db.QueryContext(ctx, query, center.Longitude, center.Latitude, radiusKm, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent earthquakes: %w", err)
	}
	defer rows.Close()

	var events []models.EarthquakeEvent
	for rows.Next() {
		var e models.EarthquakeEvent
		var distance float64

		err := rows.Scan(
			&e.EventID, &e.Magnitude, &e.Place, &e.Epicenter.Longitude, &e.Epicenter.Latitude,
			&e.DepthKm, &e.OccurredAt, &e.Tsunami, &e.AlertLevel, &e.UsersNotified, &e.CreatedAt,
			&distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan earthquake event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
