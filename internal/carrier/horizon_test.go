// internal/carrier/horizon_test.go
package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/enroll-backend/internal/config"
)

func testPayload() *EnrollmentPayload {
	return &EnrollmentPayload{
		ApplicationID: "a6e1f8a0-1111-4222-8333-444455556666",
		Demographics:  map[string]interface{}{"first_name": "Dana", "last_name": "Whitfield"},
		Coverages: []CoverageLine{
			{
				PlanKey:          "dental-plus",
				ProductCode:      "HZN-DEN-200",
				Premium:          312.50,
				EffectiveDate:    "2026-10-01",
				PaymentFrequency: "monthly",
			},
		},
		Payment: &PaymentBlock{
			Method: "credit_card",
			Card: &CardBlock{
				Number:      "4111111111111111",
				CVV:         "123",
				ExpMonth:    4,
				ExpYear:     2028,
				HolderFirst: "Dana",
				HolderLast:  "Whitfield",
			},
		},
	}
}

func newTestAdapter(baseURL string) *HorizonAdapter {
	return NewHorizonAdapter(config.CarrierConfig{
		Name:           "horizon",
		BaseURL:        baseURL,
		APIKey:         "test-key",
		PartnerCode:    "HB-001",
		TimeoutSeconds: 5,
	})
}

func TestHorizonSubmitSuccess(t *testing.T) {
	var got horizonRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/enrollments", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"received": true,
			"totalRate": 312.50,
			"policyNumbers": [{"planKey": "dental-plus", "policyNo": "POL-90210"}]
		}`))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	result, err := adapter.Submit(context.Background(), testPayload())
	require.NoError(t, err)

	assert.Equal(t, "POL-90210", result.PolicyNumbers["dental-plus"])
	assert.Equal(t, 312.50, result.TotalRate)
	assert.Equal(t, true, result.Raw["received"])

	// Wire translation
	assert.Equal(t, "HB-001", got.PartnerCode)
	require.Len(t, got.Plans, 1)
	assert.Equal(t, "HZN-DEN-200", got.Plans[0].ProductCode)
	assert.Equal(t, 312.50, got.Plans[0].Premium)
	assert.Equal(t, "4111111111111111", got.Payment.Account.Number)
	assert.Equal(t, "Dana", got.Payment.FirstName)
	assert.Equal(t, "Whitfield", got.Payment.LastName)
}

func TestHorizonSubmitRejectionPreservesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"INVALID_SSN","message":"SSN failed checksum"}`))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	_, err := adapter.Submit(context.Background(), testPayload())
	require.Error(t, err)

	carrierErr, ok := err.(*Error)
	require.True(t, ok, "expected *carrier.Error, got %T", err)
	assert.Equal(t, http.StatusBadRequest, carrierErr.StatusCode)
	assert.True(t, carrierErr.IsRejection())
	assert.JSONEq(t, `{"code":"INVALID_SSN","message":"SSN failed checksum"}`, string(carrierErr.Body))

	body, ok := carrierErr.BodyJSON().(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "INVALID_SSN", body["code"])
}

func TestHorizonSubmitServerErrorIsNotRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	_, err := adapter.Submit(context.Background(), testPayload())
	require.Error(t, err)

	carrierErr, ok := err.(*Error)
	require.True(t, ok)
	assert.False(t, carrierErr.IsRejection())
	assert.Equal(t, "upstream unavailable", carrierErr.BodyJSON())
}

func TestHorizonSubmitTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := adapter.Submit(ctx, testPayload())
	require.Error(t, err)
	_, ok := err.(*Error)
	assert.False(t, ok, "timeout must not be classified as a carrier rejection")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	adapter := newTestAdapter("http://localhost")
	registry.Register(adapter)

	found, err := registry.Get("horizon")
	require.NoError(t, err)
	assert.Equal(t, adapter, found)

	_, err = registry.Get("acme-life")
	assert.Error(t, err)
}
