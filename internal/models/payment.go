// internal/models/payment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentInstrumentRecord is one payment entry per application. Exactly one
// record per application carries is_current = true. The record is either
// inline (ciphertext columns populated) or vault-backed (saved_instrument_id
// set); the two shapes are mutually exclusive.
type PaymentInstrumentRecord struct {
	BaseModel
	ApplicationID uuid.UUID     `json:"application_id" gorm:"type:uuid;not null;index"`
	IsCurrent     bool          `json:"is_current" gorm:"default:false;index"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null"`

	// Inline ciphertext fields (AES-GCM, base64). Card methods populate the
	// first pair, ach the second.
	CardNumberEnc    string `json:"-" gorm:"type:text"`
	CardCVVEnc       string `json:"-" gorm:"type:text"`
	AccountNumberEnc string `json:"-" gorm:"type:text"`
	RoutingNumberEnc string `json:"-" gorm:"type:text"`

	// Non-sensitive metadata
	HolderName       string     `json:"holder_name" gorm:"size:255"`
	CardBrand        string     `json:"card_brand" gorm:"size:50"`
	ExpMonth         int        `json:"exp_month"`
	ExpYear          int        `json:"exp_year"`
	BankName         string     `json:"bank_name" gorm:"size:255"`
	AccountType      string     `json:"account_type" gorm:"size:20"`
	DesiredDraftDate *time.Time `json:"desired_draft_date"`

	// Vault-backed shape
	SavedInstrumentID *uuid.UUID `json:"saved_instrument_id" gorm:"type:uuid;index"`

	SavedInstrument *SavedPaymentInstrument `json:"saved_instrument,omitempty" gorm:"foreignKey:SavedInstrumentID"`
}

// IsVaultBacked reports whether sensitive fields live in the external vault
// rather than in the inline ciphertext columns.
func (r *PaymentInstrumentRecord) IsVaultBacked() bool {
	return r.SavedInstrumentID != nil
}

// SavedPaymentInstrument holds only non-sensitive metadata; the sensitive
// fields live in the vault under VaultSecretID. A row without a vault secret
// id is corrupt and unusable for submission.
type SavedPaymentInstrument struct {
	BaseModel
	Brand         string        `json:"brand" gorm:"size:50"`
	LastFour      string        `json:"last_four" gorm:"size:4"`
	ExpMonth      int           `json:"exp_month"`
	ExpYear       int           `json:"exp_year"`
	AccountType   string        `json:"account_type" gorm:"size:20"`
	BankName      string        `json:"bank_name" gorm:"size:255"`
	HolderName    string        `json:"holder_name" gorm:"size:255"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null"`
	VaultSecretID string        `json:"-" gorm:"size:255"`
}
