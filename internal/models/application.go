// internal/models/application.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Application struct {
	BaseModel
	ApplicantName string            `json:"applicant_name" gorm:"size:255;not null"`
	AgentID       *uuid.UUID        `json:"agent_id" gorm:"type:uuid;index"`
	Status        ApplicationStatus `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	EffectiveDate *time.Time        `json:"effective_date"`
	CarrierRef    string            `json:"carrier_ref" gorm:"size:50;not null;default:'horizon'"`

	// EnrollmentData holds the full submission draft as entered upstream:
	// demographics, coverage selections, attestation and partner blocks.
	EnrollmentData JSONB `json:"enrollment_data" gorm:"type:jsonb"`

	// Last submission outcome. Exactly one of the two is written per attempt.
	APIResponse JSONB `json:"api_response" gorm:"type:jsonb"`
	APIError    JSONB `json:"api_error" gorm:"type:jsonb"`

	// Relationships
	Agent             *User              `json:"agent,omitempty" gorm:"foreignKey:AgentID"`
	Coverages         []Coverage         `json:"coverages,omitempty" gorm:"foreignKey:ApplicationID"`
	SubmissionResults []SubmissionResult `json:"submission_results,omitempty" gorm:"foreignKey:ApplicationID"`
}

// SubmittableStatuses are the states a submission may be claimed from.
var SubmittableStatuses = []ApplicationStatus{
	ApplicationStatusPendingApproval,
	ApplicationStatusApproved,
	ApplicationStatusSubmissionFailed,
}

// CoverageStartDate returns the date coverage begins: the application-level
// effective date when set, else the first coverage line's date.
func (a *Application) CoverageStartDate() *time.Time {
	if a.EffectiveDate != nil {
		return a.EffectiveDate
	}
	for i := range a.Coverages {
		if a.Coverages[i].EffectiveDate != nil {
			return a.Coverages[i].EffectiveDate
		}
	}
	return nil
}

type Coverage struct {
	BaseModel
	ApplicationID    uuid.UUID        `json:"application_id" gorm:"type:uuid;not null;index"`
	PlanKey          string           `json:"plan_key" gorm:"size:100;not null"`
	PlanName         string           `json:"plan_name" gorm:"size:255"`
	Metadata         JSONB            `json:"metadata" gorm:"type:jsonb"`
	MonthlyPremium   float64          `json:"monthly_premium" gorm:"type:decimal(10,2)"`
	EffectiveDate    *time.Time       `json:"effective_date"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency" gorm:"type:varchar(20);default:'monthly'"`
	Riders           pq.StringArray   `json:"riders" gorm:"type:text[]"`
}

// ProductCode returns the carrier product code persisted in coverage
// metadata, or "" when none was recorded.
func (c *Coverage) ProductCode() string {
	if c.Metadata == nil {
		return ""
	}
	if code, ok := c.Metadata["product_code"].(string); ok {
		return code
	}
	return ""
}
