package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/models"
)

// ICheckInRepository defines the persistence operations for check-ins.
type ICheckInRepository interface {
	Create(ctx context.Context, checkIn *models.CheckIn) error
	FindSince(ctx context.Context, userID string, since time.Time) (*models.CheckIn, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.CheckIn, error)
}

type CheckInRepository struct {
	db *sql.DB
}

func NewCheckInRepository(db *sql.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

func (r *CheckInRepository) Create(ctx context.Context, checkIn *models.CheckIn) error {
	query := `
		INSERT INTO check_ins (id, user_id, status, note, longitude, latitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING checked_in_at
	`

	err := r.db.QueryRowContext(
		ctx, query,
		checkIn.ID,
		checkIn.UserID,
		checkIn.Status,
		checkIn.Note,
		checkIn.Location.Longitude,
		checkIn.Location.Latitude,
	).Scan(&checkIn.CheckedInAt)

	if err != nil {
		return fmt.Errorf("failed to create check-in: %w", err)
	}

	return nil
}

// FindSince returns the user's most recent check-in at or after the given
// time, or nil if there is none.
func (r *CheckInRepository) FindSince(ctx context.Context, userID string, since time.Time) (*models.CheckIn, error) {
	query := `
		SELECT id, user_id, status, note, longitude, latitude, checked_in_at
		FROM check_ins
		WHERE user_id = $1 AND checked_in_at >= $2
		ORDER BY checked_in_at DESC
		LIMIT 1
	`

	var c models.CheckIn
	err := r.db.QueryRowContext(ctx, query, userID, since).Scan(
		&c.ID, &c.UserID, &c.Status, &c.Note,
		&c.Location.Longitude, &c.Location.Latitude, &c.CheckedInAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan check-in: %w", err)
	}

	return &c, nil
}

func (r *CheckInRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.CheckIn, error) {
	query := `
		SELECT id, user_id, status, note, longitude, latitude, checked_in_at
		FROM check_ins
		WHERE user_id = $1
		ORDER BY checked_in_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins: %w", err)
	}
	defer rows.Close()

	var checkIns []models.CheckIn
	for rows.Next() {
		var c models.CheckIn
		err := rows.Scan(
			&c.ID, &c.UserID, &c.Status, &c.Note,
			&c.Location.Longitude, &c.Location.Latitude, &c.CheckedInAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		checkIns = append(checkIns, c)
	}

	return checkIns, rows.Err()
}
