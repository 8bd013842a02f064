package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"disco-backend/internal/apperr"
	"disco-backend/internal/config"
	"disco-backend/internal/models"
)

type evidenceStore interface {
	GetByID(ctx context.Context, id string) (*models.SafetyReport, error)
	CreateEvidence(ctx context.Context, evidence *models.Evidence) error
}

// EvidenceService issues pre-signed upload URLs for artifacts attached to
// safety reports. Only the reporter may attach evidence.
type EvidenceService struct {
	reports  evidenceStore
	s3Client *s3.Client
	bucket   string
	region   string
}

func NewEvidenceService(reports evidenceStore, cfg config.AWSConfig) (*EvidenceService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &EvidenceService{
		reports:  reports,
		s3Client: client,
		bucket:   cfg.EvidenceBucket,
		region:   cfg.Region,
	}, nil
}

// EvidenceUploadResponse carries the pre-signed URL for a single upload.
type EvidenceUploadResponse struct {
	UploadURL  string `json:"upload_url"`
	EvidenceID string `json:"evidence_id"`
	ExpiresIn  int    `json:"expires_in"`
}

// GetUploadURL generates a pre-signed PUT URL for attaching evidence to a
// report and records the evidence row up front.
func (s *EvidenceService) GetUploadURL(ctx context.Context, userID, reportID, contentType string) (*EvidenceUploadResponse, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.ReporterID != userID {
		return nil, apperr.Forbidden("report belongs to another user")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	evidenceID := uuid.New().String()
	s3Key := fmt.Sprintf("%s/%s.jpg", reportID, evidenceID)

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = 5 * time.Minute
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	evidence := &models.Evidence{
		ID:        evidenceID,
		ReportID:  reportID,
		Type:      contentType,
		URL:       fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, s3Key),
		CreatedAt: time.Now(),
	}
	if err := s.reports.CreateEvidence(ctx, evidence); err != nil {
		return nil, fmt.Errorf("failed to create evidence record: %w", err)
	}

	return &EvidenceUploadResponse{
		UploadURL:  request.URL,
		EvidenceID: evidenceID,
		ExpiresIn:  300,
	}, nil
}
