// internal/carrier/carrier.go

// Package carrier holds the per-carrier enrollment adapters. Each adapter
// owns one carrier's wire contract; the orchestrator only sees the Adapter
// interface and the Registry keyed by carrier identifier.
package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// EnrollmentPayload is the carrier-shaped submission assembled by the payload
// builder. It carries resolved plaintext payment fields and exists in memory
// only; it is never persisted.
type EnrollmentPayload struct {
	ApplicationID string                 `json:"application_id"`
	PartnerCode   string                 `json:"partner_code,omitempty"`
	Demographics  map[string]interface{} `json:"demographics"`
	Coverages     []CoverageLine         `json:"coverages"`
	Payment       *PaymentBlock          `json:"payment"`
	Attestation   map[string]interface{} `json:"attestation,omitempty"`
	Partner       map[string]interface{} `json:"partner,omitempty"`
}

type CoverageLine struct {
	PlanKey          string   `json:"plan_key"`
	PlanName         string   `json:"plan_name,omitempty"`
	ProductCode      string   `json:"product_code,omitempty"`
	Premium          float64  `json:"premium"`
	EffectiveDate    string   `json:"effective_date"`
	PaymentFrequency string   `json:"payment_frequency"`
	Riders           []string `json:"riders,omitempty"`
}

// PaymentBlock is the resolved payment instrument. Exactly one of Card or
// Bank is set.
type PaymentBlock struct {
	Method string     `json:"method"`
	Card   *CardBlock `json:"card,omitempty"`
	Bank   *BankBlock `json:"bank,omitempty"`
}

type CardBlock struct {
	Number      string `json:"number"`
	CVV         string `json:"cvv"`
	Brand       string `json:"brand,omitempty"`
	ExpMonth    int    `json:"exp_month"`
	ExpYear     int    `json:"exp_year"`
	HolderFirst string `json:"holder_first"`
	HolderLast  string `json:"holder_last"`
}

type BankBlock struct {
	AccountNumber    string `json:"account_number"`
	RoutingNumber    string `json:"routing_number"`
	AccountType      string `json:"account_type,omitempty"`
	BankName         string `json:"bank_name,omitempty"`
	DesiredDraftDate string `json:"desired_draft_date,omitempty"`
	HolderFirst      string `json:"holder_first"`
	HolderLast       string `json:"holder_last"`
}

// Result is a successful carrier outcome. Raw holds the carrier response
// verbatim for persistence; PolicyNumbers maps plan key to issued policy
// number where the carrier reported one.
type Result struct {
	PolicyNumbers map[string]string      `json:"policy_numbers"`
	TotalRate     float64                `json:"total_rate"`
	Raw           map[string]interface{} `json:"raw"`
}

// Error preserves a carrier rejection exactly as received: the HTTP status
// and the untouched response body.
type Error struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("carrier returned status %d: %s", e.StatusCode, string(e.Body))
}

// IsRejection reports whether the carrier refused the submission for a
// business reason, as opposed to being unavailable.
func (e *Error) IsRejection() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// BodyJSON decodes the carrier error body, falling back to the raw text when
// the carrier did not send JSON.
func (e *Error) BodyJSON() interface{} {
	var decoded interface{}
	if err := json.Unmarshal(e.Body, &decoded); err != nil {
		return string(e.Body)
	}
	return decoded
}

// Adapter is one carrier's enrollment capability.
type Adapter interface {
	Name() string
	Submit(ctx context.Context, payload *EnrollmentPayload) (*Result, error)
}

// Registry maps carrier identifiers to adapters so a second carrier can be
// added without touching the orchestrator.
type Registry struct {
	mtx      sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(adapter Adapter) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.adapters[adapter.Name()] = adapter
}

func (r *Registry) Get(name string) (Adapter, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("no carrier adapter registered for %q", name)
	}
	return adapter, nil
}
