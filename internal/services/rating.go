// internal/services/rating.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/healthbridge/enroll-backend/internal/config"
	"github.com/healthbridge/enroll-backend/internal/metrics"
	"github.com/healthbridge/enroll-backend/internal/models"
)

// RateQuoter re-prices one coverage line against the carrier's rate engine.
type RateQuoter interface {
	Quote(ctx context.Context, req *QuoteRequest) (*QuoteResult, error)
}

type QuoteRequest struct {
	PlanKey          string                   `json:"plan_key"`
	ProductCode      string                   `json:"product_code"`
	Applicants       []map[string]interface{} `json:"applicants"`
	Zip              string                   `json:"zip"`
	State            string                   `json:"state"`
	EffectiveDate    string                   `json:"effective_date"`
	PaymentFrequency models.PaymentFrequency  `json:"payment_frequency"`
}

type QuoteResult struct {
	Price float64 `json:"price"`
}

type quoteResponse struct {
	Success bool    `json:"success"`
	Price   float64 `json:"price"`
	Error   string  `json:"error"`
}

// RatingClient is the HTTP implementation of RateQuoter.
type RatingClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Entry
}

func NewRatingClient(cfg config.RateEngineConfig) *RatingClient {
	return &RatingClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logrus.WithField("component", "rating_client"),
	}
}

func (c *RatingClient) Quote(ctx context.Context, quoteReq *QuoteRequest) (*QuoteResult, error) {
	body, err := json.Marshal(quoteReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quotes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ExternalCallDuration.WithLabelValues("rate_engine").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("rate engine request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate engine response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("rate engine returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded quoteResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode rate engine response: %w", err)
	}

	if !decoded.Success {
		return nil, fmt.Errorf("rate engine declined quote for plan %s: %s", quoteReq.PlanKey, decoded.Error)
	}

	return &QuoteResult{Price: decoded.Price}, nil
}

// productCodeStrategy is one named source for a carrier product code. The
// ordered strategy list keeps the lookup precedence auditable instead of
// burying it in a chain of fallback expressions.
type productCodeStrategy struct {
	name    string
	resolve func() string
}

// ResolveProductCode tries each source in precedence order: the draft
// coverage line, persisted coverage metadata, then the selected-plans side
// list. Returns the code and the name of the source that produced it, or
// ("", "") when no source resolves. Recalculation is then skipped for the
// line; the persisted premium still prices it.
func ResolveProductCode(draftLine *DraftCoverage, coverage *models.Coverage, selectedPlans []DraftPlanRef) (string, string) {
	strategies := []productCodeStrategy{
		{
			name: "draft_line",
			resolve: func() string {
				if draftLine == nil {
					return ""
				}
				return draftLine.ProductCode
			},
		},
		{
			name: "coverage_metadata",
			resolve: func() string {
				return coverage.ProductCode()
			},
		},
		{
			name: "selected_plans",
			resolve: func() string {
				for _, plan := range selectedPlans {
					if plan.PlanKey == coverage.PlanKey {
						return plan.ProductCode
					}
				}
				return ""
			},
		},
	}

	for _, strategy := range strategies {
		if code := strategy.resolve(); code != "" {
			logrus.WithFields(logrus.Fields{
				"plan_key":     coverage.PlanKey,
				"product_code": code,
				"source":       strategy.name,
			}).Debug("Resolved carrier product code")
			return code, strategy.name
		}
	}

	return "", ""
}
