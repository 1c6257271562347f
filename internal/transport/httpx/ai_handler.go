package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// AIHealth проверяет доступность AI-сервиса.
func (h *Handler) AIHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.ai.Health(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SegmentCustomers запрашивает у AI-сервиса сегменты для набора клиентов
// и сохраняет присвоенные сегменты.
func (h *Handler) SegmentCustomers(w http.ResponseWriter, r *http.Request) {
	var req segmentCustomersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(req.CustomerIDs) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "customer_ids are required")
		return
	}

	customers := make([]domain.Customer, 0, len(req.CustomerIDs))
	for _, id := range req.CustomerIDs {
		customer, err := h.customers.Get(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		customers = append(customers, customer)
	}

	segments, err := h.ai.SegmentCustomers(r.Context(), customers)
	if err != nil {
		respondError(w, err)
		return
	}

	byID := make(map[string]domain.Customer, len(customers))
	for _, customer := range customers {
		byID[customer.ID] = customer
	}

	responses := make([]segmentResponse, 0, len(segments))
	for _, segment := range segments {
		if customer, ok := byID[segment.CustomerID]; ok && segment.Segment != "" {
			customer.Segment = segment.Segment
			if err := h.customers.Update(r.Context(), customer); err != nil {
				h.logger.WithError(err).WithField("customer_id", customer.ID).Warn("не удалось сохранить сегмент клиента")
			}
		}
		responses = append(responses, segmentResponse{
			CustomerID: segment.CustomerID,
			Segment:    segment.Segment,
			Confidence: segment.Confidence,
		})
	}
	writeJSON(w, http.StatusOK, responses)
}

// RecommendProducts возвращает AI-рекомендации товаров для клиента.
func (h *Handler) RecommendProducts(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	if _, err := h.customers.Get(r.Context(), customerID); err != nil {
		respondError(w, err)
		return
	}

	recommendations, err := h.ai.RecommendProducts(r.Context(), customerID, queryInt(r, "limit"))
	if err != nil {
		respondError(w, err)
		return
	}

	responses := make([]recommendationResponse, 0, len(recommendations))
	for _, rec := range recommendations {
		responses = append(responses, recommendationResponse{
			ProductID: rec.ProductID,
			Score:     rec.Score,
			Reason:    rec.Reason,
		})
	}
	writeJSON(w, http.StatusOK, responses)
}
