// internal/models/submission.go
package models

import (
	"github.com/google/uuid"
)

// SubmissionResult is the append-only audit trail of carrier submission
// attempts. Rows are only ever inserted, never updated.
type SubmissionResult struct {
	BaseModel
	ApplicationID      uuid.UUID `json:"application_id" gorm:"type:uuid;not null;index"`
	PlanKey            string    `json:"plan_key" gorm:"size:100"`
	SubmissionReceived bool      `json:"submission_received"`
	PolicyNo           string    `json:"policy_no" gorm:"size:100"`
	TotalRate          float64   `json:"total_rate" gorm:"type:decimal(10,2)"`
	SubmissionErrors   JSONB     `json:"submission_errors" gorm:"type:jsonb"`
}
