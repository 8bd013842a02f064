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

// ReportRepository handles database operations for safety reports and evidence
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create creates a new safety report
func (r *ReportRepository) Create(ctx context.Context, report *models.SafetyReport) error {
	query := `
		INSERT INTO safety_reports (id, reporter_id, reported_id, match_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		report.ID, report.ReporterID, report.ReportedID, report.MatchID,
		report.Reason, report.Status, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create safety report: %w", err)
	}
	return nil
}

// GetByID retrieves a safety report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.SafetyReport, error) {
	query := `
		SELECT id, reporter_id, reported_id, match_id, reason, status, created_at
		FROM safety_reports
		WHERE id = $1
	`
	var report models.SafetyReport
	err := r.db.QueryRow(ctx, query, id).Scan(
		&report.ID, &report.ReporterID, &report.ReportedID, &report.MatchID,
		&report.Reason, &report.Status, &report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "safety report not found", err)
		}
		return nil, fmt.Errorf("failed to get safety report: %w", err)
	}
	return &report, nil
}

// CreateEvidence attaches an evidence record to a report
func (r *ReportRepository) CreateEvidence(ctx context.Context, evidence *models.Evidence) error {
	query := `
		INSERT INTO report_evidence (id, report_id, type, url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		evidence.ID, evidence.ReportID, evidence.Type, evidence.URL, evidence.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create evidence record: %w", err)
	}
	return nil
}
