package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm/internal/service/ai"
	"github.com/vladislavdragonenkov/crm/internal/service/order"
	"github.com/vladislavdragonenkov/crm/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	outbox := memory.NewOutboxRepository()
	orders := memory.NewOrderRepository(outbox)
	history := memory.NewHistoryRepository()
	coordinator := order.NewCoordinatorWithoutMetrics(orders, history)

	handler := NewHandler(Deps{
		Coordinator: coordinator,
		Customers:   memory.NewCustomerRepository(),
		Products:    memory.NewProductRepository(),
		Leads:       memory.NewLeadRepository(),
		AI:          ai.NewMockService(),
		Idempotency: memory.NewIdempotencyRepository(),
	})

	server := httptest.NewServer(NewRouter(handler, nil))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func createTestOrder(t *testing.T, server *httptest.Server) orderResponse {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/orders", map[string]any{
		"customer_id":  "customer-1",
		"total_amount": 150,
		"items": []map[string]any{
			{"product_id": "product-a", "quantity": 1, "price_unit": 100},
			{"product_id": "product-b", "quantity": 2, "price_unit": 25},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created orderResponse
	require.NoError(t, json.Unmarshal(body, &created))
	return created
}

func TestCreateOrderEndpoint(t *testing.T) {
	server := newTestServer(t)

	created := createTestOrder(t, server)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 150.0, created.TotalAmount)
	assert.Equal(t, "paid", created.Status)
	assert.Equal(t, "VND", created.Currency)
	require.Len(t, created.Items, 2)
	assert.Equal(t, 100.0, created.Items[0].Subtotal)
}

func TestCreateOrderEndpointValidation(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/orders", map[string]any{
		"total_amount": 10,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "validation_error", errResp.Error)
}

func TestCreateOrderIdempotencyReplay(t *testing.T) {
	server := newTestServer(t)

	payload := map[string]any{
		"customer_id":  "customer-1",
		"total_amount": 99,
	}
	headers := map[string]string{"Idempotency-Key": "key-1"}

	resp1, body1 := doJSON(t, http.MethodPost, server.URL+"/orders", payload, headers)
	require.Equal(t, http.StatusCreated, resp1.StatusCode)

	resp2, body2 := doJSON(t, http.MethodPost, server.URL+"/orders", payload, headers)
	require.Equal(t, http.StatusCreated, resp2.StatusCode)
	assert.Equal(t, "true", resp2.Header.Get("X-Idempotent-Replay"))
	assert.JSONEq(t, string(body1), string(body2))

	// Тот же ключ с другим телом — конфликт.
	other := map[string]any{"customer_id": "customer-2", "total_amount": 5}
	resp3, _ := doJSON(t, http.MethodPost, server.URL+"/orders", other, headers)
	assert.Equal(t, http.StatusConflict, resp3.StatusCode)

	// Создан ровно один заказ.
	respList, listBody := doJSON(t, http.MethodGet, server.URL+"/orders", nil, nil)
	require.Equal(t, http.StatusOK, respList.StatusCode)
	var orders []orderResponse
	require.NoError(t, json.Unmarshal(listBody, &orders))
	assert.Len(t, orders, 1)
}

func TestUpdateOrderEndpointReplacesItems(t *testing.T) {
	server := newTestServer(t)
	created := createTestOrder(t, server)

	resp, body := doJSON(t, http.MethodPatch, server.URL+"/orders/"+created.ID, map[string]any{
		"total_amount": 60,
		"items": []map[string]any{
			{"product_id": "product-c", "quantity": 3, "price_unit": 20},
		},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated orderResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "product-c", updated.Items[0].ProductID)
	assert.Equal(t, 60.0, updated.TotalAmount)
	assert.Equal(t, created.Version+1, updated.Version)
}

func TestUpdateOrderEndpointVersionConflict(t *testing.T) {
	server := newTestServer(t)
	created := createTestOrder(t, server)

	resp, _ := doJSON(t, http.MethodPatch, server.URL+"/orders/"+created.ID, map[string]any{
		"notes":            "stale update",
		"expected_version": created.Version + 10,
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpdateOrderStatusEndpoint(t *testing.T) {
	server := newTestServer(t)
	created := createTestOrder(t, server)

	resp, body := doJSON(t, http.MethodPatch, server.URL+"/orders/"+created.ID+"/status", map[string]any{
		"status": "processing",
		"reason": "packing started",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated orderResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "processing", updated.Status)

	// Недопустимый переход: processing -> pending.
	resp, _ = doJSON(t, http.MethodPatch, server.URL+"/orders/"+created.ID+"/status", map[string]any{
		"status": "pending",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	respHist, histBody := doJSON(t, http.MethodGet, server.URL+"/orders/"+created.ID+"/history", nil, nil)
	require.Equal(t, http.StatusOK, respHist.StatusCode)
	var events []statusEventResponse
	require.NoError(t, json.Unmarshal(histBody, &events))
	require.Len(t, events, 2)
	assert.Equal(t, "processing", events[1].Status)
}

func TestDeleteOrderEndpoint(t *testing.T) {
	server := newTestServer(t)
	created := createTestOrder(t, server)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/orders/"+created.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	respGet, _ := doJSON(t, http.MethodGet, server.URL+"/orders/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, respGet.StatusCode)
}

func TestGetOrderNotFound(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/orders/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "not_found", errResp.Error)
}
