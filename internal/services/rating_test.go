// internal/services/rating_test.go
package services

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

func newRatingClient(baseURL string) *RatingClient {
	return NewRatingClient(config.RateEngineConfig{
		BaseURL:        baseURL,
		APIKey:         "test-rate-key",
		TimeoutSeconds: 2,
	})
}

func TestRatingClientQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/quotes", r.URL.Path)
		assert.Equal(t, "test-rate-key", r.Header.Get("X-Api-Key"))

		var req QuoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dental-plus", req.PlanKey)
		assert.Equal(t, "DEN-200", req.ProductCode)
		assert.Equal(t, "07030", req.Zip)

		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "price": 312.50})
	}))
	defer server.Close()

	quote, err := newRatingClient(server.URL).Quote(context.Background(), &QuoteRequest{
		PlanKey:     "dental-plus",
		ProductCode: "DEN-200",
		Zip:         "07030",
		State:       "NJ",
	})

	require.NoError(t, err)
	assert.Equal(t, 312.50, quote.Price)
}

func TestRatingClientDeclinedQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "unsupported state"})
	}))
	defer server.Close()

	_, err := newRatingClient(server.URL).Quote(context.Background(), &QuoteRequest{PlanKey: "dental-plus"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported state")
}

func TestRatingClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newRatingClient(server.URL).Quote(context.Background(), &QuoteRequest{PlanKey: "dental-plus"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRatingClientContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newRatingClient(server.URL).Quote(ctx, &QuoteRequest{PlanKey: "dental-plus"})
	require.Error(t, err)
}
