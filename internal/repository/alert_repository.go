package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
)

// IAlertRepository defines the operations for managing emergency alerts.
type IAlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	HasRecentAlert(ctx context.Context, userID, alertType string, window time.Duration) (bool, error)
	UpdateState(ctx context.Context, id string, from, to models.AlertState) error
	SetDeliveries(ctx context.Context, id string, deliveries []models.ContactDelivery, state models.AlertState) error
	Resolve(ctx context.Context, id, userID, resolvedBy, note string) error
	Escalate(ctx context.Context, id, userID string, police, ambulance bool) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Alert, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	DeleteResolvedOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, user_id, alert_type, triggered_at, triggered_by,
	       longitude, latitude, address, message, custom_message, contacts_notified,
	       police_notified, police_notified_at, ambulance_notified, ambulance_notified_at,
	       resolved, resolved_at, resolved_by, resolution_note,
	       priority, state, created_at`

func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO emergency_alerts (
			id, user_id, alert_type, triggered_at, triggered_by,
			longitude, latitude, address, message, custom_message,
			contacts_notified, priority, state
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	deliveries, err := json.Marshal(alert.ContactsNotified)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery records: %w", err)
	}

	var lon, lat interface{}
	if alert.Location != nil {
		lon, lat = alert.Location.Longitude, alert.Location.Latitude
	}

	err = r.db.QueryRowContext(
		ctx, query,
		alert.ID,
		alert.UserID,
		alert.AlertType,
		alert.TriggeredAt,
		alert.TriggeredBy,
		lon,
		lat,
		alert.Address,
		alert.Message,
		alert.CustomMessage,
		deliveries,
		alert.Priority,
		alert.State,
	).Scan(&alert.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM emergency_alerts WHERE id = $1`

	alert, err := r.scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("alert not found")
	}
	return alert, err
}

// HasRecentAlert reports whether an alert of the given type was triggered for
// the user within the window, regardless of resolution state. This is the
// dedup gate: it must be consulted before creating a new alert.
func (r *AlertRepository) HasRecentAlert(ctx context.Context, userID, alertType string, window time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM emergency_alerts
			WHERE user_id = $1 AND alert_type = $2 AND triggered_at >= $3
		)
	`

	cutoff := time.Now().Add(-window)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, alertType, cutoff).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check recent alerts: %w", err)
	}

	return exists, nil
}

// UpdateState advances the alert lifecycle. The previous state is part of the
// predicate so an illegal or concurrent transition updates nothing.
func (r *AlertRepository) UpdateState(ctx context.Context, id string, from, to models.AlertState) error {
	if !models.CanTransition(from, to) {
		return fmt.Errorf("illegal alert state transition %s -> %s", from, to)
	}

	query := `UPDATE emergency_alerts SET state = $3 WHERE id = $1 AND state = $2`

	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update alert state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %s not in state %s", id, from)
	}

	return nil
}

// SetDeliveries replaces the full delivery list and advances the state in a
// single statement. The whole jsonb document is swapped at once; individual
// elements are never patched in place.
func (r *AlertRepository) SetDeliveries(ctx context.Context, id string, deliveries []models.ContactDelivery, state models.AlertState) error {
	payload, err := json.Marshal(deliveries)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery records: %w", err)
	}

	query := `UPDATE emergency_alerts SET contacts_notified = $2, state = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, payload, state)
	if err != nil {
		return fmt.Errorf("failed to write delivery records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %s not found", id)
	}

	return nil
}

func (r *AlertRepository) Resolve(ctx context.Context, id, userID, resolvedBy, note string) error {
	query := `
		UPDATE emergency_alerts
		SET resolved = TRUE,
		    resolved_at = NOW(),
		    resolved_by = $3,
		    resolution_note = $4,
		    state = $5
		WHERE id = $1 AND user_id = $2 AND state = $6
	`

	result, err := r.db.ExecContext(ctx, query, id, userID, resolvedBy, note,
		models.StateResolved, models.StateNotified)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %s not found or not resolvable", id)
	}

	return nil
}

// Escalate moves a NOTIFIED alert to ESCALATED and records which emergency
// services were flagged. Dispatch to those services happens out of band; only
// the flags and timestamps are kept here.
func (r *AlertRepository) Escalate(ctx context.Context, id, userID string, police, ambulance bool) error {
	query := `
		UPDATE emergency_alerts
		SET state = $3,
		    police_notified = $4,
		    police_notified_at = CASE WHEN $4 THEN NOW() ELSE police_notified_at END,
		    ambulance_notified = $5,
		    ambulance_notified_at = CASE WHEN $5 THEN NOW() ELSE ambulance_notified_at END
		WHERE id = $1 AND user_id = $2 AND state = $6
	`

	result, err := r.db.ExecContext(ctx, query, id, userID,
		models.StateEscalated, police, ambulance, models.StateNotified)
	if err != nil {
		return fmt.Errorf("failed to escalate alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %s not found or not escalatable", id)
	}

	return nil
}

func (r *AlertRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM emergency_alerts
		WHERE user_id = $1
		ORDER BY triggered_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert history: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := r.scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}

	return alerts, rows.Err()
}

func (r *AlertRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM emergency_alerts WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// DeleteResolvedOlderThan drops resolved alerts past the retention period.
func (r *AlertRepository) DeleteResolvedOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM emergency_alerts WHERE resolved = TRUE AND resolved_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", err)
	}

	return result.RowsAffected()
}

func (r *AlertRepository) scanAlert(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var lon, lat sql.NullFloat64
	var deliveriesJSON []byte
	var policeAt, ambulanceAt, resolvedAt sql.NullTime
	var resolvedBy, resolutionNote sql.NullString

	err := row.Scan(
		&a.ID, &a.UserID, &a.AlertType, &a.TriggeredAt, &a.TriggeredBy,
		&lon, &lat, &a.Address, &a.Message, &a.CustomMessage, &deliveriesJSON,
		&a.PoliceNotified, &policeAt, &a.AmbulanceNotified, &ambulanceAt,
		&a.Resolved, &resolvedAt, &resolvedBy, &resolutionNote,
		&a.Priority, &a.State, &a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	if lon.Valid && lat.Valid {
		a.Location = &geo.Point{Longitude: lon.Float64, Latitude: lat.Float64}
	}
	if policeAt.Valid {
		a.PoliceNotifiedAt = &policeAt.Time
	}
	if ambulanceAt.Valid {
		a.AmbulanceNotifiedAt = &ambulanceAt.Time
	}
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	a.ResolvedBy = resolvedBy.String
	a.ResolutionNote = resolutionNote.String

	if len(deliveriesJSON) > 0 {
		if err := json.Unmarshal(deliveriesJSON, &a.ContactsNotified); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delivery records: %w", err)
		}
	}

	return &a, nil
}
