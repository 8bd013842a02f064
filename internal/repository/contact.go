package repository

import (
	"context"
	"errors"
	"fmt"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContactRepository handles database operations for emergency contacts
type ContactRepository struct {
	db *pgxpool.Pool
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create creates a new emergency contact
func (r *ContactRepository) Create(ctx context.Context, contact *models.EmergencyContact) error {
	query := `
		INSERT INTO emergency_contacts (id, user_id, name, email, phone, relationship, priority, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		contact.ID, contact.UserID, contact.Name, contact.Email, contact.Phone,
		contact.Relationship, contact.Priority, contact.Verified, contact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create emergency contact: %w", err)
	}
	return nil
}

// GetByID retrieves an emergency contact by ID
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*models.EmergencyContact, error) {
	query := `
		SELECT id, user_id, name, email, phone, relationship, priority, verified, created_at
		FROM emergency_contacts
		WHERE id = $1
	`
	var contact models.EmergencyContact
	err := r.db.QueryRow(ctx, query, id).Scan(
		&contact.ID, &contact.UserID, &contact.Name, &contact.Email, &contact.Phone,
		&contact.Relationship, &contact.Priority, &contact.Verified, &contact.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "emergency contact not found", err)
		}
		return nil, fmt.Errorf("failed to get emergency contact: %w", err)
	}
	return &contact, nil
}

// ListByUser retrieves a user's emergency contacts, primary first
func (r *ContactRepository) ListByUser(ctx context.Context, userID string) ([]*models.EmergencyContact, error) {
	query := `
		SELECT id, user_id, name, email, phone, relationship, priority, verified, created_at
		FROM emergency_contacts
		WHERE user_id = $1
		ORDER BY priority, created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list emergency contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.EmergencyContact
	for rows.Next() {
		var contact models.EmergencyContact
		if err := rows.Scan(
			&contact.ID, &contact.UserID, &contact.Name, &contact.Email, &contact.Phone,
			&contact.Relationship, &contact.Priority, &contact.Verified, &contact.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan emergency contact: %w", err)
		}
		contacts = append(contacts, &contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read emergency contacts: %w", err)
	}
	return contacts, nil
}

// Delete deletes an emergency contact by ID
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM emergency_contacts WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete emergency contact: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("emergency contact not found")
	}
	return nil
}
