package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository handles database operations for notifications,
// per-user preferences and the quiet-hours deferral queue
type NotificationRepository struct {
	db *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create persists a delivered notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, read, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Read, n.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetPreferences retrieves a user's notification preferences
func (r *NotificationRepository) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	query := `
		SELECT user_id, push_enabled, email_enabled,
			cat_matches, cat_messages, cat_events, cat_system, cat_safety,
			quiet_enabled, quiet_start, quiet_end
		FROM notification_preferences
		WHERE user_id = $1
	`
	var prefs models.NotificationPreferences
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&prefs.UserID, &prefs.PushEnabled, &prefs.EmailEnabled,
		&prefs.Categories.Matches, &prefs.Categories.Messages, &prefs.Categories.Events,
		&prefs.Categories.System, &prefs.Categories.Safety,
		&prefs.QuietHours.Enabled, &prefs.QuietHours.Start, &prefs.QuietHours.End,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "notification preferences not found", err)
		}
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}
	return &prefs, nil
}

// UpsertPreferences creates or replaces a user's notification preferences
func (r *NotificationRepository) UpsertPreferences(ctx context.Context, prefs *models.NotificationPreferences) error {
	query := `
		INSERT INTO notification_preferences (user_id, push_enabled, email_enabled,
			cat_matches, cat_messages, cat_events, cat_system, cat_safety,
			quiet_enabled, quiet_start, quiet_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			push_enabled = EXCLUDED.push_enabled,
			email_enabled = EXCLUDED.email_enabled,
			cat_matches = EXCLUDED.cat_matches,
			cat_messages = EXCLUDED.cat_messages,
			cat_events = EXCLUDED.cat_events,
			cat_system = EXCLUDED.cat_system,
			cat_safety = EXCLUDED.cat_safety,
			quiet_enabled = EXCLUDED.quiet_enabled,
			quiet_start = EXCLUDED.quiet_start,
			quiet_end = EXCLUDED.quiet_end
	`
	_, err := r.db.Exec(ctx, query,
		prefs.UserID, prefs.PushEnabled, prefs.EmailEnabled,
		prefs.Categories.Matches, prefs.Categories.Messages, prefs.Categories.Events,
		prefs.Categories.System, prefs.Categories.Safety,
		prefs.QuietHours.Enabled, prefs.QuietHours.Start, prefs.QuietHours.End,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert notification preferences: %w", err)
	}
	return nil
}

// Enqueue defers a notification until ProcessAfter
func (r *NotificationRepository) Enqueue(ctx context.Context, q *models.QueuedNotification) error {
	query := `
		INSERT INTO notification_queue (id, user_id, type, title, message, process_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, q.ID, q.UserID, q.Type, q.Title, q.Message, q.ProcessAfter, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// ClaimDue atomically removes and returns queued notifications whose
// process_after has passed. The delete-and-return makes concurrent sweep
// invocations safe: a row is replayed by exactly one claimer.
func (r *NotificationRepository) ClaimDue(ctx context.Context, now time.Time) ([]*models.QueuedNotification, error) {
	query := `
		DELETE FROM notification_queue
		WHERE process_after <= $1
		RETURNING id, user_id, type, title, message, process_after, created_at
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due notifications: %w", err)
	}
	defer rows.Close()

	var due []*models.QueuedNotification
	for rows.Next() {
		var q models.QueuedNotification
		if err := rows.Scan(&q.ID, &q.UserID, &q.Type, &q.Title, &q.Message, &q.ProcessAfter, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queued notification: %w", err)
		}
		due = append(due, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queued notifications: %w", err)
	}
	return due, nil
}
