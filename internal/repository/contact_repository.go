package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/noyon-ahamed/are-you-okay/internal/models"
)

// IContactRepository defines the persistence operations for emergency contacts.
type IContactRepository interface {
	Create(ctx context.Context, contact *models.EmergencyContact) error
	GetByID(ctx context.Context, id, userID string) (*models.EmergencyContact, error)
	ListByUser(ctx context.Context, userID string) ([]models.EmergencyContact, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Update(ctx context.Context, contact *models.EmergencyContact) error
	Delete(ctx context.Context, id, userID string) error
	SetVerified(ctx context.Context, id, userID string) error
}

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, user_id, name, phone, email, relation, priority, verified, otp_secret, created_at, updated_at`

func (r *ContactRepository) Create(ctx context.Context, contact *models.EmergencyContact) error {
	query := `
		INSERT INTO emergency_contacts (
			id, user_id, name, phone, email, relation, priority, verified, otp_secret
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx, query,
		contact.ID,
		contact.UserID,
		contact.Name,
		contact.Phone,
		contact.Email,
		contact.Relation,
		contact.Priority,
		contact.Verified,
		contact.OTPSecret,
	).Scan(&contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	return nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id, userID string) (*models.EmergencyContact, error) {
	query := `SELECT ` + contactColumns + ` FROM emergency_contacts WHERE id = $1 AND user_id = $2`

	var c models.EmergencyContact
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.Relation,
		&c.Priority, &c.Verified, &c.OTPSecret, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("contact not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan contact: %w", err)
	}

	return &c, nil
}

// ListByUser returns a user's contacts ranked by ascending priority, so the
// first element is the contact to reach first.
func (r *ContactRepository) ListByUser(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY priority ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.EmergencyContact
	for rows.Next() {
		var c models.EmergencyContact
		err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.Relation,
			&c.Priority, &c.Verified, &c.OTPSecret, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

func (r *ContactRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM emergency_contacts WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

func (r *ContactRepository) Update(ctx context.Context, contact *models.EmergencyContact) error {
	query := `
		UPDATE emergency_contacts
		SET name = $3, phone = $4, email = $5, relation = $6, priority = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(
		ctx, query,
		contact.ID, contact.UserID,
		contact.Name, contact.Phone, contact.Email, contact.Relation, contact.Priority,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("contact %s not found", contact.ID)
	}

	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM emergency_contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("contact %s not found", id)
	}

	return nil
}

func (r *ContactRepository) SetVerified(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE emergency_contacts SET verified = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark contact verified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("contact %s not found", id)
	}

	return nil
}
