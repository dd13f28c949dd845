package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
	"github.com/noyon-ahamed/are-you-okay/internal/models"

	"github.com/lib/pq"
)

// NearbyUser is a user annotated with their distance from a query point.
type NearbyUser struct {
	models.User
	DistanceKm float64 `json:"distance_km"`
}

// IUserRepository defines the persistence operations for users.
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	FindInactiveSince(ctx context.Context, cutoff time.Time) ([]models.User, error)
	FindActiveNear(ctx context.Context, center geo.Point, radiusKm float64) ([]NearbyUser, error)
	RecordCheckIn(ctx context.Context, id string, loc geo.Point, streak int) error
	IncrementMissedCount(ctx context.Context, id string) error
	UpdatePushToken(ctx context.Context, id, token string) error
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, phone, plan, is_active,
	       last_check_in, check_in_streak, missed_check_in_count,
	       longitude, latitude, push_token, quake_alerts, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			id, name, email, password_hash, phone, plan, is_active,
			longitude, latitude, push_token, quake_alerts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	var lon, lat interface{}
	if user.Location != nil {
		lon, lat = user.Location.Longitude, user.Location.Latitude
	}

	err := r.db.QueryRowContext(
		ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Plan,
		user.IsActive,
		lon,
		lat,
		user.PushToken,
		user.QuakeAlerts,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("user with email %s already exists", user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// FindInactiveSince returns every active user whose last check-in predates the
// cutoff or who never checked in at all.
func (r *UserRepository) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_active = TRUE
		  AND (last_check_in IS NULL OR last_check_in < $1)
		ORDER BY last_check_in ASC NULLS FIRST
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

// FindActiveNear returns active users with a known location within radiusKm of
// the center, closest first. Distance uses the haversine formula evaluated in
// SQL; the boundary is inclusive.
func (r *UserRepository) FindActiveNear(ctx context.Context, center geo.Point, radiusKm float64) ([]NearbyUser, error) {
	query := `
		SELECT * FROM (
			SELECT ` + userColumns + `,
			       (6371 * acos(least(1.0,
			            cos(radians($2)) * cos(radians(latitude)) * cos(radians(longitude) - radians($1))
			          + sin(radians($2)) * sin(radians(latitude))
			       ))) AS distance_km
			FROM users
			WHERE is_active = TRUE AND latitude IS NOT NULL AND longitude IS NOT NULL
		) nearby
		WHERE distance_km <= $3
		ORDER BY distance_km ASC
	`

	rows, err := r.db.QueryContext(ctx, query, center.Longitude, center.Latitude, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby users: %w", err)
	}
	defer rows.Close()

	var users []NearbyUser
	for rows.Next() {
		var u NearbyUser
		var lastCheckIn sql.NullTime
		var lon, lat sql.NullFloat64

		err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Plan, &u.IsActive,
			&lastCheckIn, &u.CheckInStreak, &u.MissedCheckInCount,
			&lon, &lat, &u.PushToken, &u.QuakeAlerts, &u.CreatedAt, &u.UpdatedAt,
			&u.DistanceKm,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nearby user: %w", err)
		}

		if lastCheckIn.Valid {
			u.LastCheckIn = &lastCheckIn.Time
		}
		if lon.Valid && lat.Valid {
			u.Location = &geo.Point{Longitude: lon.Float64, Latitude: lat.Float64}
		}

		users = append(users, u)
	}

	return users, rows.Err()
}

// RecordCheckIn stamps a fresh check-in: last seen now, streak updated,
// missed counter reset, location refreshed.
func (r *UserRepository) RecordCheckIn(ctx context.Context, id string, loc geo.Point, streak int) error {
	query := `
		UPDATE users
		SET last_check_in = NOW(),
		    check_in_streak = $2,
		    missed_check_in_count = 0,
		    longitude = $3,
		    latitude = $4,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, streak, loc.Longitude, loc.Latitude)
	if err != nil {
		return fmt.Errorf("failed to record check-in: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s not found", id)
	}

	return nil
}

// IncrementMissedCount bumps the missed-check-in counter. The update is a
// server-side increment so concurrent bumps never corrupt the value.
func (r *UserRepository) IncrementMissedCount(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET missed_check_in_count = missed_check_in_count + 1, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment missed count: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdatePushToken(ctx context.Context, id, token string) error {
	query := `UPDATE users SET push_token = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, token); err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	user, err := r.scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	return user, err
}

func (r *UserRepository) scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var lastCheckIn sql.NullTime
	var lon, lat sql.NullFloat64

	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Plan, &u.IsActive,
		&lastCheckIn, &u.CheckInStreak, &u.MissedCheckInCount,
		&lon, &lat, &u.PushToken, &u.QuakeAlerts, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if lastCheckIn.Valid {
		u.LastCheckIn = &lastCheckIn.Time
	}
	if lon.Valid && lat.Valid {
		u.Location = &geo.Point{Longitude: lon.Float64, Latitude: lat.Float64}
	}

	return &u, nil
}
