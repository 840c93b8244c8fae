// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleAdmin             UserRole = "admin"
	UserRoleEnrollmentManager UserRole = "enrollment_manager"
	UserRoleAgent             UserRole = "agent"
	UserRoleSupport           UserRole = "support"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type ApplicationStatus string

const (
	ApplicationStatusDraft            ApplicationStatus = "draft"
	ApplicationStatusSubmitting       ApplicationStatus = "submitting"
	ApplicationStatusSubmitted        ApplicationStatus = "submitted"
	ApplicationStatusPendingApproval  ApplicationStatus = "pending_approval"
	ApplicationStatusApproved         ApplicationStatus = "approved"
	ApplicationStatusActive           ApplicationStatus = "active"
	ApplicationStatusRejected         ApplicationStatus = "rejected"
	ApplicationStatusCancelled        ApplicationStatus = "cancelled"
	ApplicationStatusSubmissionFailed ApplicationStatus = "submission_failed"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodACH        PaymentMethod = "ach"
)

func (m PaymentMethod) IsCard() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodDebitCard
}

type PaymentFrequency string

const (
	PaymentFrequencyMonthly   PaymentFrequency = "monthly"
	PaymentFrequencyQuarterly PaymentFrequency = "quarterly"
	PaymentFrequencyAnnual    PaymentFrequency = "annual"
)
