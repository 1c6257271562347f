package httpx

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerCRUD(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/customers", map[string]any{
		"name":  "Ivan Petrov",
		"email": "ivan@example.com",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created customerResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)

	resp, body = doJSON(t, http.MethodPut, server.URL+"/customers/"+created.ID, map[string]any{
		"name":  "Ivan Petrov",
		"phone": "+84123456789",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated customerResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "+84123456789", updated.Phone)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/customers", map[string]any{"email": "no-name@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/customers/"+created.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/customers/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLeadScoring(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/leads", map[string]any{
		"name":   "Warm Lead",
		"source": "website",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created leadResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "new", created.Status)
	assert.Nil(t, created.ScoredAt)

	resp, body = doJSON(t, http.MethodPost, server.URL+"/leads/"+created.ID+"/score", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var scored leadResponse
	require.NoError(t, json.Unmarshal(body, &scored))
	assert.NotNil(t, scored.ScoredAt)
}

func TestRecommendationsRequireExistingCustomer(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/customers/missing/recommendations", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	respCreate, body := doJSON(t, http.MethodPost, server.URL+"/customers", map[string]any{"name": "Buyer"}, nil)
	require.Equal(t, http.StatusCreated, respCreate.StatusCode)
	var customer customerResponse
	require.NoError(t, json.Unmarshal(body, &customer))

	resp, body = doJSON(t, http.MethodGet, server.URL+"/customers/"+customer.ID+"/recommendations?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var recommendations []recommendationResponse
	require.NoError(t, json.Unmarshal(body, &recommendations))
	assert.Len(t, recommendations, 2)
}
