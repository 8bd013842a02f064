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

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, role, push_token, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.Role, user.PushToken, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, role, push_token, created_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Role, &user.PushToken, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "user not found", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// GetProfiles retrieves candidate attributes for a set of users
func (r *UserRepository) GetProfiles(ctx context.Context, userIDs []string) (map[string]*models.Profile, error) {
	query := `
		SELECT user_id, age, verified, has_photo
		FROM profiles
		WHERE user_id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	profiles := make(map[string]*models.Profile, len(userIDs))
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.UserID, &p.Age, &p.Verified, &p.HasPhoto); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles[p.UserID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return profiles, nil
}
