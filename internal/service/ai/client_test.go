package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

func TestClientScoreLead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/score-lead", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score": 0.82, "probability": 0.7, "reason": "high engagement"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 0)
	score, err := client.ScoreLead(context.Background(), domain.Lead{ID: "lead-1", Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, 0.82, score.Score)
	assert.Equal(t, 0.7, score.Probability)
	assert.Equal(t, "high engagement", score.Reason)
}

func TestClientRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 3)
	err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 2)
	err := client.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAIUnavailable)
	assert.Equal(t, int32(3), calls.Load()) // первая попытка + 2 повтора
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 3)
	err := client.Health(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAIUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientRecommendProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/recommend-products", r.URL.Path)
		require.Equal(t, "customer-1", r.URL.Query().Get("customer_id"))
		require.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recommendations": [
			{"product_id": "p1", "score": 0.9, "reason": "often bought"},
			{"product_id": "p2", "score": 0.5, "reason": "seasonal"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, 0)
	recommendations, err := client.RecommendProducts(context.Background(), "customer-1", 2)
	require.NoError(t, err)
	require.Len(t, recommendations, 2)
	assert.Equal(t, "p1", recommendations[0].ProductID)
	assert.Equal(t, 0.9, recommendations[0].Score)
}
