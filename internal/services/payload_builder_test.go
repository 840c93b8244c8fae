// internal/services/payload_builder_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/enroll-backend/internal/models"
)

func builderApp() (*models.Application, *EnrollmentDraft) {
	effective := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	app := &models.Application{
		ApplicantName: "Jordan Reyes",
		Status:        models.ApplicationStatusApproved,
		EffectiveDate: &effective,
		CarrierRef:    "horizon",
	}
	app.ID = uuid.New()
	app.Coverages = []models.Coverage{
		{
			ApplicationID:    app.ID,
			PlanKey:          "dental-plus",
			PlanName:         "Dental Plus",
			MonthlyPremium:   289.00,
			PaymentFrequency: models.PaymentFrequencyMonthly,
			Metadata:         models.JSONB{"product_code": "DEN-200"},
		},
		{
			ApplicationID:    app.ID,
			PlanKey:          "vision-basic",
			PlanName:         "Vision Basic",
			MonthlyPremium:   42.75,
			PaymentFrequency: models.PaymentFrequencyMonthly,
			Metadata:         models.JSONB{"product_code": "VIS-100"},
		},
	}
	draft := &EnrollmentDraft{
		Demographics: map[string]interface{}{"first_name": "Jordan"},
		Attestation:  map[string]interface{}{"agreed": true},
		Location:     DraftLocation{Zip: "07030", State: "NJ"},
		Coverages: []DraftCoverage{
			{PlanKey: "dental-plus", ProductCode: "DEN-200", Premium: 250.00},
			{PlanKey: "vision-basic", ProductCode: "VIS-100", Premium: 40.00},
		},
	}
	return app, draft
}

func TestBuildPayloadPrefersRecalculatedPrice(t *testing.T) {
	app, draft := builderApp()
	quotes := map[string]*QuoteResult{"dental-plus": {Price: 312.50}}

	payload, decisions := BuildEnrollmentPayload(app, app.Coverages, draft, testPayment(), quotes)

	require.Len(t, payload.Coverages, 2)
	assert.Equal(t, 312.50, payload.Coverages[0].Premium)
	// No quote for the second line: persisted premium wins.
	assert.Equal(t, 42.75, payload.Coverages[1].Premium)

	require.Len(t, decisions, 2)
	assert.Equal(t, PriceSourceRecalculated, decisions[0].Source)
	assert.True(t, decisions[0].Changed)
	assert.Equal(t, 289.00, decisions[0].OldPrice)
	assert.Equal(t, PriceSourcePersisted, decisions[1].Source)
}

func TestBuildPayloadFallsBackToDraftPrice(t *testing.T) {
	app, draft := builderApp()
	app.Coverages[0].MonthlyPremium = 0 // never priced after approval

	payload, decisions := BuildEnrollmentPayload(app, app.Coverages, draft, testPayment(), nil)

	assert.Equal(t, 250.00, payload.Coverages[0].Premium)
	assert.Equal(t, PriceSourceDraft, decisions[0].Source)
}

func TestBuildPayloadUnchangedRecalculation(t *testing.T) {
	app, draft := builderApp()
	quotes := map[string]*QuoteResult{"dental-plus": {Price: 289.00}}

	_, decisions := BuildEnrollmentPayload(app, app.Coverages, draft, testPayment(), quotes)

	assert.Equal(t, PriceSourceRecalculated, decisions[0].Source)
	assert.False(t, decisions[0].Changed)
}

func TestBuildPayloadCarrierShape(t *testing.T) {
	app, draft := builderApp()

	payload, _ := BuildEnrollmentPayload(app, app.Coverages, draft, testPayment(), nil)

	assert.Equal(t, app.ID.String(), payload.ApplicationID)
	assert.Equal(t, draft.Demographics, payload.Demographics)
	assert.Equal(t, draft.Attestation, payload.Attestation)
	assert.Equal(t, "DEN-200", payload.Coverages[0].ProductCode)
	assert.Equal(t, "2026-11-01", payload.Coverages[0].EffectiveDate)
	assert.Equal(t, "monthly", payload.Coverages[0].PaymentFrequency)

	require.NotNil(t, payload.Payment)
	require.NotNil(t, payload.Payment.Card)
	assert.Equal(t, "credit_card", payload.Payment.Method)
	assert.Equal(t, "4242424242424242", payload.Payment.Card.Number)
	assert.Nil(t, payload.Payment.Bank)
}

func TestBuildPayloadCoverageEffectiveDateOverridesApplication(t *testing.T) {
	app, draft := builderApp()
	lineDate := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	app.Coverages[1].EffectiveDate = &lineDate

	payload, _ := BuildEnrollmentPayload(app, app.Coverages, draft, testPayment(), nil)

	assert.Equal(t, "2026-11-01", payload.Coverages[0].EffectiveDate)
	assert.Equal(t, "2026-12-01", payload.Coverages[1].EffectiveDate)
}

func TestBuildPayloadBankBlock(t *testing.T) {
	app, draft := builderApp()
	payment := &SensitivePaymentFields{
		Method: models.PaymentMethodACH,
		Bank: &BankFields{
			AccountNumber:    "000987654321",
			RoutingNumber:    "121000358",
			AccountType:      "checking",
			BankName:         "First Federal",
			DesiredDraftDate: "2026-11-05",
			HolderFirst:      "Sam",
			HolderLast:       "Okafor",
		},
	}

	payload, _ := BuildEnrollmentPayload(app, app.Coverages, draft, payment, nil)

	require.NotNil(t, payload.Payment.Bank)
	assert.Nil(t, payload.Payment.Card)
	assert.Equal(t, "121000358", payload.Payment.Bank.RoutingNumber)
	assert.Equal(t, "2026-11-05", payload.Payment.Bank.DesiredDraftDate)
}

func TestParseEnrollmentDraftNilData(t *testing.T) {
	draft, err := ParseEnrollmentDraft(nil)
	require.NoError(t, err)
	assert.Empty(t, draft.Coverages)
	assert.Nil(t, draft.CoverageLine("anything"))
}

func TestResolveProductCodeStrategyOrder(t *testing.T) {
	coverage := &models.Coverage{
		PlanKey:  "dental-plus",
		Metadata: models.JSONB{"product_code": "META-1"},
	}
	selected := []DraftPlanRef{{PlanKey: "dental-plus", ProductCode: "SEL-1"}}

	// Draft line wins over everything.
	code, source := ResolveProductCode(&DraftCoverage{PlanKey: "dental-plus", ProductCode: "DRAFT-1"}, coverage, selected)
	assert.Equal(t, "DRAFT-1", code)
	assert.Equal(t, "draft_line", source)

	// Without a draft code, coverage metadata wins.
	code, source = ResolveProductCode(&DraftCoverage{PlanKey: "dental-plus"}, coverage, selected)
	assert.Equal(t, "META-1", code)
	assert.Equal(t, "coverage_metadata", source)

	// Then the selected-plans list.
	coverage.Metadata = nil
	code, source = ResolveProductCode(nil, coverage, selected)
	assert.Equal(t, "SEL-1", code)
	assert.Equal(t, "selected_plans", source)

	// Nothing resolvable.
	code, _ = ResolveProductCode(nil, coverage, nil)
	assert.Equal(t, "", code)
}
