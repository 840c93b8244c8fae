// internal/services/payload_builder.go
package services

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/healthbridge/enroll-backend/internal/carrier"
	"github.com/healthbridge/enroll-backend/internal/models"
)

// EnrollmentDraft is the typed view of an application's enrollment_data
// document as the application-building flows persist it.
type EnrollmentDraft struct {
	Demographics  map[string]interface{}   `json:"demographics"`
	Coverages     []DraftCoverage          `json:"coverages"`
	Attestation   map[string]interface{}   `json:"attestation"`
	Partner       map[string]interface{}   `json:"partner"`
	Applicants    []map[string]interface{} `json:"applicants"`
	Location      DraftLocation            `json:"location"`
	SelectedPlans []DraftPlanRef           `json:"selected_plans"`
}

type DraftCoverage struct {
	PlanKey     string  `json:"plan_key"`
	ProductCode string  `json:"product_code"`
	Premium     float64 `json:"premium"`
}

type DraftLocation struct {
	Zip   string `json:"zip"`
	State string `json:"state"`
}

type DraftPlanRef struct {
	PlanKey     string `json:"plan_key"`
	ProductCode string `json:"product_code"`
}

// ParseEnrollmentDraft decodes the JSONB draft. A nil document yields an
// empty draft rather than an error; submission validation catches genuinely
// unusable applications elsewhere.
func ParseEnrollmentDraft(data models.JSONB) (*EnrollmentDraft, error) {
	draft := &EnrollmentDraft{}
	if data == nil {
		return draft, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode enrollment data: %w", err)
	}
	if err := json.Unmarshal(raw, draft); err != nil {
		return nil, fmt.Errorf("failed to decode enrollment data: %w", err)
	}
	return draft, nil
}

// CoverageLine returns the draft line matching a plan key, or nil.
func (d *EnrollmentDraft) CoverageLine(planKey string) *DraftCoverage {
	for i := range d.Coverages {
		if d.Coverages[i].PlanKey == planKey {
			return &d.Coverages[i]
		}
	}
	return nil
}

type PriceSource string

const (
	PriceSourceRecalculated PriceSource = "recalculated"
	PriceSourcePersisted    PriceSource = "persisted"
	PriceSourceDraft        PriceSource = "draft"
)

// PriceDecision records which source priced a coverage line, for the audit
// trail and for observability of price drift between quote and submission.
type PriceDecision struct {
	PlanKey  string      `json:"plan_key"`
	Premium  float64     `json:"premium"`
	Source   PriceSource `json:"source"`
	OldPrice float64     `json:"old_price,omitempty"`
	Changed  bool        `json:"changed"`
}

// BuildEnrollmentPayload merges the application draft, per-line pricing and
// the resolved payment fields into one carrier-shaped payload. Pure merge:
// no I/O, and the output lives in memory only.
//
// Price fallback law, applied per line in order: the recalculated price when
// the rate engine returned one; else the coverage's persisted monthly
// premium; else whatever price the draft already carried, which means
// pricing may be stale and is logged as a warning.
func BuildEnrollmentPayload(
	app *models.Application,
	coverages []models.Coverage,
	draft *EnrollmentDraft,
	payment *SensitivePaymentFields,
	quotes map[string]*QuoteResult,
) (*carrier.EnrollmentPayload, []PriceDecision) {
	payload := &carrier.EnrollmentPayload{
		ApplicationID: app.ID.String(),
		Demographics:  draft.Demographics,
		Attestation:   draft.Attestation,
		Partner:       draft.Partner,
		Payment:       paymentBlock(payment),
	}

	decisions := make([]PriceDecision, 0, len(coverages))
	for i := range coverages {
		coverage := &coverages[i]
		draftLine := draft.CoverageLine(coverage.PlanKey)

		premium, decision := priceLine(coverage, draftLine, quotes[coverage.PlanKey])
		decisions = append(decisions, decision)

		payload.Coverages = append(payload.Coverages, carrier.CoverageLine{
			PlanKey:          coverage.PlanKey,
			PlanName:         coverage.PlanName,
			ProductCode:      lineProductCode(draftLine, coverage, draft.SelectedPlans),
			Premium:          premium,
			EffectiveDate:    lineEffectiveDate(coverage, app),
			PaymentFrequency: string(coverage.PaymentFrequency),
			Riders:           coverage.Riders,
		})
	}

	return payload, decisions
}

func priceLine(coverage *models.Coverage, draftLine *DraftCoverage, quote *QuoteResult) (float64, PriceDecision) {
	decision := PriceDecision{PlanKey: coverage.PlanKey}

	if quote != nil {
		decision.Source = PriceSourceRecalculated
		decision.Premium = quote.Price
		decision.OldPrice = coverage.MonthlyPremium
		decision.Changed = quote.Price != coverage.MonthlyPremium
		if decision.Changed {
			logrus.WithFields(logrus.Fields{
				"plan_key":  coverage.PlanKey,
				"old_price": coverage.MonthlyPremium,
				"new_price": quote.Price,
			}).Info("Premium changed on recalculation")
		}
		return quote.Price, decision
	}

	if coverage.MonthlyPremium > 0 {
		decision.Source = PriceSourcePersisted
		decision.Premium = coverage.MonthlyPremium
		return coverage.MonthlyPremium, decision
	}

	// Last resort: the price embedded in the draft. It predates approval and
	// may no longer match the carrier's current rates.
	var draftPremium float64
	if draftLine != nil {
		draftPremium = draftLine.Premium
	}
	logrus.WithFields(logrus.Fields{
		"plan_key": coverage.PlanKey,
		"premium":  draftPremium,
	}).Warn("No recalculated or persisted premium; submitting stale draft price")
	decision.Source = PriceSourceDraft
	decision.Premium = draftPremium
	return draftPremium, decision
}

func lineProductCode(draftLine *DraftCoverage, coverage *models.Coverage, selectedPlans []DraftPlanRef) string {
	code, _ := ResolveProductCode(draftLine, coverage, selectedPlans)
	return code
}

func lineEffectiveDate(coverage *models.Coverage, app *models.Application) string {
	if coverage.EffectiveDate != nil {
		return coverage.EffectiveDate.Format("2006-01-02")
	}
	if app.EffectiveDate != nil {
		return app.EffectiveDate.Format("2006-01-02")
	}
	return ""
}

func paymentBlock(payment *SensitivePaymentFields) *carrier.PaymentBlock {
	if payment == nil {
		return nil
	}

	block := &carrier.PaymentBlock{Method: string(payment.Method)}
	if card := payment.Card; card != nil {
		block.Card = &carrier.CardBlock{
			Number:      card.Number,
			CVV:         card.CVV,
			Brand:       card.Brand,
			ExpMonth:    card.ExpMonth,
			ExpYear:     card.ExpYear,
			HolderFirst: card.HolderFirst,
			HolderLast:  card.HolderLast,
		}
	}
	if bank := payment.Bank; bank != nil {
		block.Bank = &carrier.BankBlock{
			AccountNumber:    bank.AccountNumber,
			RoutingNumber:    bank.RoutingNumber,
			AccountType:      bank.AccountType,
			BankName:         bank.BankName,
			DesiredDraftDate: bank.DesiredDraftDate,
			HolderFirst:      bank.HolderFirst,
			HolderLast:       bank.HolderLast,
		}
	}
	return block
}
