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

// SafetyRepository handles database operations for alerts and safety checks
type SafetyRepository struct {
	db *pgxpool.Pool
}

// NewSafetyRepository creates a new safety repository
func NewSafetyRepository(db *pgxpool.Pool) *SafetyRepository {
	return &SafetyRepository{db: db}
}

const alertColumns = `id, user_id, type, priority, description, message,
	latitude, longitude, accuracy, location_timestamp,
	dismissed, resolved, dismissed_at, resolved_at, created_at, updated_at`

func scanAlert(row pgx.Row) (*models.SafetyAlert, error) {
	var alert models.SafetyAlert
	var lat, lon *float64
	var accuracy *float64
	var locTS *time.Time
	err := row.Scan(
		&alert.ID, &alert.UserID, &alert.Type, &alert.Priority, &alert.Description, &alert.Message,
		&lat, &lon, &accuracy, &locTS,
		&alert.Dismissed, &alert.Resolved, &alert.DismissedAt, &alert.ResolvedAt,
		&alert.CreatedAt, &alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil && locTS != nil {
		alert.Location = &models.LocationSnapshot{
			Latitude:  *lat,
			Longitude: *lon,
			Accuracy:  accuracy,
			Timestamp: *locTS,
		}
	}
	return &alert, nil
}

// CreateAlert creates a new safety alert
func (r *SafetyRepository) CreateAlert(ctx context.Context, alert *models.SafetyAlert) error {
	var lat, lon, accuracy *float64
	var locTS *time.Time
	if alert.Location != nil {
		lat = &alert.Location.Latitude
		lon = &alert.Location.Longitude
		accuracy = alert.Location.Accuracy
		locTS = &alert.Location.Timestamp
	}
	query := `
		INSERT INTO safety_alerts (id, user_id, type, priority, description, message,
			latitude, longitude, accuracy, location_timestamp,
			dismissed, resolved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Exec(ctx, query,
		alert.ID, alert.UserID, alert.Type, alert.Priority, alert.Description, alert.Message,
		lat, lon, accuracy, locTS,
		alert.Dismissed, alert.Resolved, alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create safety alert: %w", err)
	}
	return nil
}

// GetAlertByID retrieves a safety alert by ID
func (r *SafetyRepository) GetAlertByID(ctx context.Context, id string) (*models.SafetyAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM safety_alerts WHERE id = $1`
	alert, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "safety alert not found", err)
		}
		return nil, fmt.Errorf("failed to get safety alert: %w", err)
	}
	return alert, nil
}

// ListActiveAlerts retrieves a user's alerts that are neither dismissed nor resolved
func (r *SafetyRepository) ListActiveAlerts(ctx context.Context, userID string) ([]*models.SafetyAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM safety_alerts
		WHERE user_id = $1 AND dismissed = false AND resolved = false
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.SafetyAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan safety alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read safety alerts: %w", err)
	}
	return alerts, nil
}

// SetAlertDismissed marks an alert dismissed
func (r *SafetyRepository) SetAlertDismissed(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE safety_alerts SET dismissed = true, dismissed_at = $1, updated_at = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to dismiss alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("safety alert not found")
	}
	return nil
}

// SetAlertResolved marks an alert resolved
func (r *SafetyRepository) SetAlertResolved(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE safety_alerts SET resolved = true, resolved_at = $1, updated_at = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("safety alert not found")
	}
	return nil
}

const checkColumns = `id, user_id, type, status, scheduled_for,
	latitude, longitude, accuracy, location_timestamp,
	description, completed_at, notified_contacts, created_at`

func scanCheck(row pgx.Row) (*models.SafetyCheck, error) {
	var check models.SafetyCheck
	var lat, lon, accuracy *float64
	var locTS *time.Time
	err := row.Scan(
		&check.ID, &check.UserID, &check.Type, &check.Status, &check.ScheduledFor,
		&lat, &lon, &accuracy, &locTS,
		&check.Description, &check.CompletedAt, &check.NotifiedContacts, &check.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil && locTS != nil {
		check.Location = &models.LocationSnapshot{
			Latitude:  *lat,
			Longitude: *lon,
			Accuracy:  accuracy,
			Timestamp: *locTS,
		}
	}
	return &check, nil
}

// CreateCheck creates a new safety check
func (r *SafetyRepository) CreateCheck(ctx context.Context, check *models.SafetyCheck) error {
	var lat, lon, accuracy *float64
	var locTS *time.Time
	if check.Location != nil {
		lat = &check.Location.Latitude
		lon = &check.Location.Longitude
		accuracy = check.Location.Accuracy
		locTS = &check.Location.Timestamp
	}
	query := `
		INSERT INTO safety_checks (id, user_id, type, status, scheduled_for,
			latitude, longitude, accuracy, location_timestamp,
			description, notified_contacts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		check.ID, check.UserID, check.Type, check.Status, check.ScheduledFor,
		lat, lon, accuracy, locTS,
		check.Description, check.NotifiedContacts, check.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create safety check: %w", err)
	}
	return nil
}

// GetCheckByID retrieves a safety check by ID
func (r *SafetyRepository) GetCheckByID(ctx context.Context, id string) (*models.SafetyCheck, error) {
	query := `SELECT ` + checkColumns + ` FROM safety_checks WHERE id = $1`
	check, err := scanCheck(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "safety check not found", err)
		}
		return nil, fmt.Errorf("failed to get safety check: %w", err)
	}
	return check, nil
}

// ListChecksByUser retrieves a user's safety checks, optionally filtered by status
func (r *SafetyRepository) ListChecksByUser(ctx context.Context, userID string, status models.CheckStatus) ([]*models.SafetyCheck, error) {
	query := `
		SELECT ` + checkColumns + `
		FROM safety_checks
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY scheduled_for DESC
	`
	rows, err := r.db.Query(ctx, query, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list safety checks: %w", err)
	}
	defer rows.Close()

	var checks []*models.SafetyCheck
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan safety check: %w", err)
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read safety checks: %w", err)
	}
	return checks, nil
}

// CompleteCheck marks a check completed
func (r *SafetyRepository) CompleteCheck(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE safety_checks SET status = $1, completed_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.Exec(ctx, query, models.CheckStatusCompleted, at, id, models.CheckStatusPending)
	if err != nil {
		return fmt.Errorf("failed to complete safety check: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict("safety check is not pending")
	}
	return nil
}

// ClaimOverdueChecks atomically marks pending checks overdue by cutoff as
// missed and returns them. Concurrent sweeps cannot claim the same check
// twice because the status predicate is part of the update.
func (r *SafetyRepository) ClaimOverdueChecks(ctx context.Context, cutoff time.Time) ([]*models.SafetyCheck, error) {
	query := `
		UPDATE safety_checks
		SET status = $1
		WHERE status = $2 AND scheduled_for < $3
		RETURNING ` + checkColumns
	rows, err := r.db.Query(ctx, query, models.CheckStatusMissed, models.CheckStatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to claim overdue checks: %w", err)
	}
	defer rows.Close()

	var checks []*models.SafetyCheck
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overdue check: %w", err)
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read overdue checks: %w", err)
	}
	return checks, nil
}
