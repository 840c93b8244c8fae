// internal/services/submission_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/healthbridge/enroll-backend/internal/carrier"
	"github.com/healthbridge/enroll-backend/internal/metrics"
	"github.com/healthbridge/enroll-backend/internal/models"
)

// PaymentResolver is the resolution capability the orchestrator depends on.
type PaymentResolver interface {
	Resolve(ctx context.Context, record *models.PaymentInstrumentRecord) (*SensitivePaymentFields, error)
}

// SubmissionService runs the enrollment submission pipeline: precondition
// guard, claim, payment resolution, price recalculation, payload assembly,
// carrier submission, and durable outcome recording.
type SubmissionService struct {
	store    SubmissionStore
	resolver PaymentResolver
	rater    RateQuoter
	carriers *carrier.Registry
	logger   *logrus.Entry
	now      func() time.Time
}

func NewSubmissionService(store SubmissionStore, resolver PaymentResolver, rater RateQuoter, carriers *carrier.Registry) *SubmissionService {
	return &SubmissionService{
		store:    store,
		resolver: resolver,
		rater:    rater,
		carriers: carriers,
		logger:   logrus.WithField("component", "submission_service"),
		now:      time.Now,
	}
}

// Submit runs the whole pipeline for one application. The caller is assumed
// to already hold a privileged role; this service does not re-derive
// authorization.
func (s *SubmissionService) Submit(ctx context.Context, applicationID uuid.UUID) (*carrier.Result, error) {
	log := s.logger.WithField("application_id", applicationID)

	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	// Pure, free, synchronous guard. Runs before any vault or carrier call
	// and before the status claim, so a rejected application is untouched.
	if subErr := s.validateEffectiveDate(app); subErr != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeValidationFailed).Inc()
		return nil, subErr
	}

	// At-most-one-in-flight guard: only one invocation can move the row to
	// `submitting`; everyone else sees a conflict.
	claimed, err := s.store.ClaimForSubmission(ctx, applicationID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if !claimed {
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeConflict).Inc()
		return nil, NewSubmissionInProgressError()
	}

	result, err := s.runClaimed(ctx, log, app)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// runClaimed is everything that happens after the status claim. Any failure
// in here lands the application in `submission_failed` with a structured
// error record.
func (s *SubmissionService) runClaimed(ctx context.Context, log *logrus.Entry, app *models.Application) (*carrier.Result, error) {
	record, err := s.store.GetCurrentPaymentRecord(ctx, app.ID)
	if err != nil {
		subErr := NewPersistenceError(err)
		s.persistFailure(ctx, log, app.ID, subErr)
		return nil, subErr
	}

	payment, err := s.resolver.Resolve(ctx, record)
	if err != nil {
		subErr, ok := AsSubmissionError(err)
		if !ok {
			subErr = NewPaymentResolutionError(ResolutionVaultRetrievalFailed, "payment resolution failed", err)
		}
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeResolutionFailed).Inc()
		metrics.PaymentResolutionFailures.WithLabelValues(string(ResolutionKindOf(subErr))).Inc()
		log.WithError(err).Warn("Payment resolution failed; aborting before carrier call")
		s.persistFailure(ctx, log, app.ID, subErr)
		return nil, subErr
	}

	draft, err := ParseEnrollmentDraft(app.EnrollmentData)
	if err != nil {
		subErr := NewValidationError(fmt.Sprintf("enrollment data is unreadable: %v", err))
		s.persistFailure(ctx, log, app.ID, subErr)
		return nil, subErr
	}

	quotes := s.recalculatePrices(ctx, log, app, draft)

	payload, decisions := BuildEnrollmentPayload(app, app.Coverages, draft, payment, quotes)
	for _, decision := range decisions {
		if decision.Source != PriceSourceRecalculated {
			metrics.PriceFallbacks.WithLabelValues(string(decision.Source)).Inc()
		}
	}

	adapter, err := s.carriers.Get(app.CarrierRef)
	if err != nil {
		subErr := NewCarrierUnavailableError(err)
		s.persistFailure(ctx, log, app.ID, subErr)
		return nil, subErr
	}

	start := s.now()
	result, err := adapter.Submit(ctx, payload)
	metrics.ExternalCallDuration.WithLabelValues("carrier").Observe(time.Since(start).Seconds())
	if err != nil {
		subErr := classifyCarrierError(err)
		if subErr.Code == ErrCodeCarrierRejected {
			metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeCarrierRejected).Inc()
		} else {
			metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeCarrierError).Inc()
		}
		log.WithError(err).Error("Carrier submission failed")
		s.persistFailure(ctx, log, app.ID, subErr)
		s.appendResults(ctx, log, app, decisions, nil, subErr)
		return nil, subErr
	}

	if err := s.store.RecordSuccess(ctx, app.ID, models.JSONB(result.Raw)); err != nil {
		subErr := NewPersistenceError(err)
		log.WithError(err).Error("Carrier accepted the enrollment but recording the outcome failed")
		return nil, subErr
	}

	s.appendResults(ctx, log, app, decisions, result, nil)
	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeSubmitted).Inc()
	log.WithField("policies", result.PolicyNumbers).Info("Enrollment submitted")
	return result, nil
}

func (s *SubmissionService) validateEffectiveDate(app *models.Application) *SubmissionError {
	start := app.CoverageStartDate()
	if start == nil {
		return NewValidationError("application has no effective date")
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	if !startDay.After(today) {
		return NewValidationError(fmt.Sprintf(
			"effective date %s must be strictly after the current date", startDay.Format("2006-01-02")))
	}
	return nil
}

// recalculatePrices asks the rate engine for a current premium per coverage
// line. Lines are independent: a failed or skipped quote never aborts the
// others, it only means the line falls back to its persisted price.
func (s *SubmissionService) recalculatePrices(ctx context.Context, log *logrus.Entry, app *models.Application, draft *EnrollmentDraft) map[string]*QuoteResult {
	quotes := make(map[string]*QuoteResult)

	for i := range app.Coverages {
		coverage := &app.Coverages[i]
		draftLine := draft.CoverageLine(coverage.PlanKey)

		productCode, source := ResolveProductCode(draftLine, coverage, draft.SelectedPlans)
		if productCode == "" {
			// Not an error: the line still has a usable persisted price.
			log.WithField("plan_key", coverage.PlanKey).
				Warn("No product code resolvable; skipping recalculation for line")
			continue
		}

		quote, err := s.rater.Quote(ctx, &QuoteRequest{
			PlanKey:          coverage.PlanKey,
			ProductCode:      productCode,
			Applicants:       draft.Applicants,
			Zip:              draft.Location.Zip,
			State:            draft.Location.State,
			EffectiveDate:    lineEffectiveDate(coverage, app),
			PaymentFrequency: coverage.PaymentFrequency,
		})
		if err != nil {
			log.WithError(err).WithField("plan_key", coverage.PlanKey).
				Warn("Price recalculation failed; line will use fallback pricing")
			continue
		}

		log.WithFields(logrus.Fields{
			"plan_key":            coverage.PlanKey,
			"price":               quote.Price,
			"product_code_source": source,
		}).Info("Premium recalculated")
		quotes[coverage.PlanKey] = quote
	}

	return quotes
}

func classifyCarrierError(err error) *SubmissionError {
	if carrierErr, ok := err.(*carrier.Error); ok && carrierErr.IsRejection() {
		// Business rejection: the carrier's status and body pass through to
		// the caller verbatim.
		return NewCarrierRejectedError(carrierErr.StatusCode, carrierErr.BodyJSON())
	}
	return NewCarrierUnavailableError(err)
}

// persistFailure writes the structured error record. A failure here is
// logged but never returned: persistence problems must not mask the real
// cause surfaced to the caller.
func (s *SubmissionService) persistFailure(ctx context.Context, log *logrus.Entry, applicationID uuid.UUID, subErr *SubmissionError) {
	apiError := models.JSONB{
		"code":      string(subErr.Code),
		"message":   subErr.Message,
		"timestamp": subErr.Timestamp.Format(time.RFC3339),
	}
	if subErr.Details != nil {
		apiError["carrier_error_body"] = subErr.Details
	}

	if err := s.store.RecordFailure(ctx, applicationID, apiError); err != nil {
		log.WithError(err).Error("Failed to persist submission failure record")
	}
}

// appendResults writes the append-only audit rows, one per coverage line.
func (s *SubmissionService) appendResults(ctx context.Context, log *logrus.Entry, app *models.Application, decisions []PriceDecision, result *carrier.Result, subErr *SubmissionError) {
	rows := make([]models.SubmissionResult, 0, len(decisions))
	for _, decision := range decisions {
		row := models.SubmissionResult{
			ApplicationID: app.ID,
			PlanKey:       decision.PlanKey,
		}
		if result != nil {
			row.SubmissionReceived = true
			row.PolicyNo = result.PolicyNumbers[decision.PlanKey]
			row.TotalRate = result.TotalRate
		} else if subErr != nil {
			row.SubmissionErrors = models.JSONB{
				"code":    string(subErr.Code),
				"message": subErr.Message,
				"details": subErr.Details,
			}
		}
		rows = append(rows, row)
	}

	if err := s.store.AppendSubmissionResults(ctx, rows); err != nil {
		log.WithError(err).Error("Failed to append submission audit rows")
	}
}
