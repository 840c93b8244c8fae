// internal/services/submission_store.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healthbridge/enroll-backend/internal/models"
)

// ErrApplicationNotFound is returned by the store when the application id
// does not exist.
var ErrApplicationNotFound = errors.New("application not found")

// SubmissionStore is the data-store capability the orchestrator depends on.
// The GORM implementation below is the production one; tests inject fakes.
type SubmissionStore interface {
	// GetApplication loads the application with its coverage lines.
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)

	// GetCurrentPaymentRecord returns the application's current payment
	// instrument, or (nil, nil) when none exists.
	GetCurrentPaymentRecord(ctx context.Context, applicationID uuid.UUID) (*models.PaymentInstrumentRecord, error)

	GetSavedInstrument(ctx context.Context, id string) (*models.SavedPaymentInstrument, error)

	// ClaimForSubmission atomically moves the application from a submittable
	// status to `submitting`. It reports false when another submission holds
	// the claim or the status does not allow submission; this is the
	// at-most-one-in-flight guard.
	ClaimForSubmission(ctx context.Context, id uuid.UUID) (bool, error)

	// RecordSuccess sets status `submitted` and stores the carrier response
	// verbatim as the application's last response.
	RecordSuccess(ctx context.Context, id uuid.UUID, response models.JSONB) error

	// RecordFailure sets status `submission_failed` and stores the
	// structured error record.
	RecordFailure(ctx context.Context, id uuid.UUID, apiError models.JSONB) error

	// AppendSubmissionResults inserts audit rows. Rows are append-only.
	AppendSubmissionResults(ctx context.Context, results []models.SubmissionResult) error
}

type gormSubmissionStore struct {
	db *gorm.DB
}

func NewSubmissionStore(db *gorm.DB) SubmissionStore {
	return &gormSubmissionStore{db: db}
}

func (s *gormSubmissionStore) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).Preload("Coverages").First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	return &app, nil
}

func (s *gormSubmissionStore) GetCurrentPaymentRecord(ctx context.Context, applicationID uuid.UUID) (*models.PaymentInstrumentRecord, error) {
	var record models.PaymentInstrumentRecord
	err := s.db.WithContext(ctx).
		Where("application_id = ? AND is_current = ?", applicationID, true).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load payment record: %w", err)
	}
	return &record, nil
}

func (s *gormSubmissionStore) GetSavedInstrument(ctx context.Context, id string) (*models.SavedPaymentInstrument, error) {
	instrumentID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid saved instrument id: %w", err)
	}

	var instrument models.SavedPaymentInstrument
	if err := s.db.WithContext(ctx).First(&instrument, instrumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load saved instrument: %w", err)
	}
	return &instrument, nil
}

func (s *gormSubmissionStore) ClaimForSubmission(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ? AND status IN ?", id, models.SubmittableStatuses).
		Update("status", models.ApplicationStatusSubmitting)
	if tx.Error != nil {
		return false, fmt.Errorf("failed to claim application for submission: %w", tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

func (s *gormSubmissionStore) RecordSuccess(ctx context.Context, id uuid.UUID, response models.JSONB) error {
	err := s.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.ApplicationStatusSubmitted,
			"api_response": response,
			"api_error":    nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record submission success: %w", err)
	}
	return nil
}

func (s *gormSubmissionStore) RecordFailure(ctx context.Context, id uuid.UUID, apiError models.JSONB) error {
	err := s.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    models.ApplicationStatusSubmissionFailed,
			"api_error": apiError,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record submission failure: %w", err)
	}
	return nil
}

func (s *gormSubmissionStore) AppendSubmissionResults(ctx context.Context, results []models.SubmissionResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&results).Error; err != nil {
		return fmt.Errorf("failed to append submission results: %w", err)
	}
	return nil
}
