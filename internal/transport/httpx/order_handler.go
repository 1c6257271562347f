package httpx

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

const headerIdempotencyKey = "Idempotency-Key"

// CreateOrder создаёт заказ. Заголовок Idempotency-Key делает запрос
// безопасным для повторов: повтор с тем же телом вернёт сохранённый ответ.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if key == "" || h.idempotency == nil {
		status, payload := h.createOrder(r, body)
		writeJSON(w, status, payload)
		return
	}

	hash := requestHash(http.MethodPost, "/orders", body)
	_, err = h.idempotency.CreateProcessing(key, hash, time.Now().UTC().Add(h.idempotencyTTL))
	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		writeError(w, http.StatusConflict, "idempotency_conflict", domain.ErrIdempotencyHashMismatch.Error())
		return
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		record, getErr := h.idempotency.Get(key)
		if getErr == nil && record.Status != domain.IdempotencyStatusProcessing {
			w.Header().Set("X-Idempotent-Replay", "true")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(record.HTTPStatus)
			_, _ = w.Write(record.ResponseBody)
			return
		}
		writeError(w, http.StatusConflict, "request_in_flight", "request with this idempotency key is still being processed")
		return
	case err != nil:
		respondError(w, err)
		return
	}

	status, payload := h.createOrder(r, body)
	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		respondError(w, marshalErr)
		return
	}

	if status < http.StatusBadRequest {
		if markErr := h.idempotency.MarkDone(key, data, status); markErr != nil {
			h.logger.WithError(markErr).WithField("idempotency_key", key).Warn("не удалось сохранить ответ idempotency-ключа")
		}
	} else {
		if markErr := h.idempotency.MarkFailed(key, data, status); markErr != nil {
			h.logger.WithError(markErr).WithField("idempotency_key", key).Warn("не удалось сохранить ошибку idempotency-ключа")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (h *Handler) createOrder(r *http.Request, body []byte) (int, any) {
	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_json", Message: err.Error()}
	}

	input, err := req.toServiceRequest()
	if err != nil {
		return http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error()}
	}

	created, err := h.coordinator.CreateOrder(r.Context(), input)
	if err != nil {
		return statusFromError(err), errorBody(err)
	}
	return http.StatusCreated, h.orderResponse(r.Context(), created)
}

// GetOrder возвращает заказ с позициями.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	fetched, err := h.coordinator.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.orderResponse(r.Context(), fetched))
}

// ListOrders возвращает заказы по фильтру из query-параметров.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter := domain.OrderFilter{
		CustomerID: r.URL.Query().Get("customer_id"),
		Status:     domain.OrderStatus(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respondError(w, domain.ErrOrderStatusUnknown)
		return
	}
	filter.Limit = queryInt(r, "limit")
	filter.Offset = queryInt(r, "offset")

	orders, err := h.coordinator.ListOrders(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}

	responses := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		responses = append(responses, h.orderResponse(r.Context(), o))
	}
	writeJSON(w, http.StatusOK, responses)
}

// UpdateOrder применяет частичное обновление заказа.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	updated, err := h.coordinator.UpdateOrder(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.orderResponse(r.Context(), updated))
}

// UpdateOrderStatus меняет статус заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	updated, err := h.coordinator.UpdateStatus(r.Context(), chi.URLParam(r, "id"), domain.OrderStatus(req.Status), req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.orderResponse(r.Context(), updated))
}

// DeleteOrder удаляет заказ вместе с позициями.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OrderHistory возвращает историю смен статуса заказа.
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if _, err := h.coordinator.GetOrder(r.Context(), orderID); err != nil {
		respondError(w, err)
		return
	}

	events, err := h.coordinator.History(orderID)
	if err != nil {
		respondError(w, err)
		return
	}

	responses := make([]statusEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, statusEventResponse{
			OrderID:  event.OrderID,
			Status:   string(event.Status),
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	writeJSON(w, http.StatusOK, responses)
}

func requestHash(method, path string, body []byte) string {
	sum := sha256.Sum256(append([]byte(method+" "+path+"\n"), body...))
	return hex.EncodeToString(sum[:])
}

func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
