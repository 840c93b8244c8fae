// internal/services/application_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healthbridge/enroll-backend/internal/models"
	"github.com/healthbridge/enroll-backend/internal/utils"
)

// ApplicationService serves the dashboard read side: listing applications,
// loading one with its coverage lines and payment metadata, and the
// submission audit history.
type ApplicationService struct {
	db *gorm.DB
}

type ApplicationSearchParams struct {
	utils.PaginationParams
	AgentID    *uuid.UUID `json:"agent_id,omitempty"`
	CarrierRef string     `json:"carrier_ref,omitempty"`
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{db: db}
}

func (s *ApplicationService) SearchApplications(params ApplicationSearchParams) ([]models.Application, int64, error) {
	query := s.db.Model(&models.Application{}).Preload("Agent").Preload("Coverages")

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.AgentID != nil {
		query = query.Where("agent_id = ?", *params.AgentID)
	}
	if params.CarrierRef != "" {
		query = query.Where("carrier_ref = ?", params.CarrierRef)
	}
	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(applicant_name) LIKE ?", searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams,
		[]string{"created_at", "updated_at", "applicant_name", "status", "effective_date"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var applications []models.Application
	if err := query.Find(&applications).Error; err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	return applications, total, nil
}

func (s *ApplicationService) GetApplication(id uuid.UUID) (*models.Application, error) {
	var application models.Application
	err := s.db.Preload("Agent").Preload("Coverages").
		First(&application, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &application, nil
}

// GetPaymentSummary returns the current payment instrument's non-sensitive
// metadata for display. Ciphertext columns carry json:"-" so they never
// leave the model layer.
func (s *ApplicationService) GetPaymentSummary(applicationID uuid.UUID) (*models.PaymentInstrumentRecord, error) {
	var record models.PaymentInstrumentRecord
	err := s.db.Preload("SavedInstrument").
		Where("application_id = ? AND is_current = ?", applicationID, true).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &record, nil
}

func (s *ApplicationService) GetSubmissionHistory(applicationID uuid.UUID) ([]models.SubmissionResult, error) {
	var exists int64
	if err := s.db.Model(&models.Application{}).Where("id = ?", applicationID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if exists == 0 {
		return nil, ErrApplicationNotFound
	}

	var results []models.SubmissionResult
	err := s.db.Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return results, nil
}
