// internal/carrier/horizon.go
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/healthbridge/enroll-backend/internal/config"
)

// HorizonAdapter speaks the Horizon Benefits enrollment REST API.
type HorizonAdapter struct {
	baseURL     string
	apiKey      string
	partnerCode string
	httpClient  *http.Client
}

// horizonRequest is Horizon's enrollment schema. Field names follow their
// API documentation, not our internal naming.
type horizonRequest struct {
	PartnerCode string                 `json:"partnerCode"`
	Applicant   map[string]interface{} `json:"applicant"`
	Plans       []horizonPlan          `json:"plans"`
	Payment     horizonPayment         `json:"payment"`
	Attestation map[string]interface{} `json:"attestation,omitempty"`
	Agent       map[string]interface{} `json:"agent,omitempty"`
	ExternalRef string                 `json:"externalRef"`
}

type horizonPlan struct {
	PlanKey       string   `json:"planKey"`
	ProductCode   string   `json:"productCode,omitempty"`
	Premium       float64  `json:"premium"`
	EffectiveDate string   `json:"effectiveDate"`
	BillingCycle  string   `json:"billingCycle"`
	Riders        []string `json:"riders,omitempty"`
}

type horizonPayment struct {
	Type    string `json:"type"`
	Account struct {
		Number      string `json:"number,omitempty"`
		CVV         string `json:"cvv,omitempty"`
		ExpMonth    int    `json:"expMonth,omitempty"`
		ExpYear     int    `json:"expYear,omitempty"`
		Routing     string `json:"routing,omitempty"`
		AccountType string `json:"accountType,omitempty"`
		DraftDate   string `json:"draftDate,omitempty"`
	} `json:"account"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type horizonResponse struct {
	Received      bool    `json:"received"`
	TotalRate     float64 `json:"totalRate"`
	PolicyNumbers []struct {
		PlanKey  string `json:"planKey"`
		PolicyNo string `json:"policyNo"`
	} `json:"policyNumbers"`
}

func NewHorizonAdapter(cfg config.CarrierConfig) *HorizonAdapter {
	return &HorizonAdapter{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		partnerCode: cfg.PartnerCode,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (a *HorizonAdapter) Name() string {
	return "horizon"
}

func (a *HorizonAdapter) Submit(ctx context.Context, payload *EnrollmentPayload) (*Result, error) {
	body, err := json.Marshal(a.translate(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to encode enrollment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/enrollments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build enrollment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("carrier request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read carrier response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The carrier's own status and body pass through unmodified so the
		// orchestrator can surface meaningful 4xx detail to the caller.
		return nil, &Error{StatusCode: resp.StatusCode, Body: respBody}
	}

	var decoded horizonResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode carrier response: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		raw = map[string]interface{}{"body": string(respBody)}
	}

	result := &Result{
		PolicyNumbers: make(map[string]string, len(decoded.PolicyNumbers)),
		TotalRate:     decoded.TotalRate,
		Raw:           raw,
	}
	for _, p := range decoded.PolicyNumbers {
		result.PolicyNumbers[p.PlanKey] = p.PolicyNo
	}

	return result, nil
}

func (a *HorizonAdapter) translate(payload *EnrollmentPayload) *horizonRequest {
	req := &horizonRequest{
		PartnerCode: a.partnerCode,
		Applicant:   payload.Demographics,
		Attestation: payload.Attestation,
		Agent:       payload.Partner,
		ExternalRef: payload.ApplicationID,
	}
	if payload.PartnerCode != "" {
		req.PartnerCode = payload.PartnerCode
	}

	for _, line := range payload.Coverages {
		req.Plans = append(req.Plans, horizonPlan{
			PlanKey:       line.PlanKey,
			ProductCode:   line.ProductCode,
			Premium:       line.Premium,
			EffectiveDate: line.EffectiveDate,
			BillingCycle:  line.PaymentFrequency,
			Riders:        line.Riders,
		})
	}

	if payload.Payment != nil {
		req.Payment.Type = payload.Payment.Method
		if card := payload.Payment.Card; card != nil {
			req.Payment.Account.Number = card.Number
			req.Payment.Account.CVV = card.CVV
			req.Payment.Account.ExpMonth = card.ExpMonth
			req.Payment.Account.ExpYear = card.ExpYear
			req.Payment.FirstName = card.HolderFirst
			req.Payment.LastName = card.HolderLast
		}
		if bank := payload.Payment.Bank; bank != nil {
			req.Payment.Account.Number = bank.AccountNumber
			req.Payment.Account.Routing = bank.RoutingNumber
			req.Payment.Account.AccountType = bank.AccountType
			req.Payment.Account.DraftDate = bank.DesiredDraftDate
			req.Payment.FirstName = bank.HolderFirst
			req.Payment.LastName = bank.HolderLast
		}
	}

	return req
}
