package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// CreateCustomer создаёт клиента.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		Segment:   req.Segment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errs := customer.ValidateInvariants(); len(errs) > 0 {
		respondError(w, errors.Join(errs...))
		return
	}

	if err := h.customers.Create(r.Context(), customer); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

// GetCustomer возвращает клиента по ID.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// ListCustomers возвращает клиентов с пагинацией.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		respondError(w, err)
		return
	}

	responses := make([]customerResponse, 0, len(customers))
	for _, customer := range customers {
		responses = append(responses, toCustomerResponse(customer))
	}
	writeJSON(w, http.StatusOK, responses)
}

// UpdateCustomer перезаписывает данные клиента.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	existing, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	existing.Name = req.Name
	existing.Email = req.Email
	existing.Phone = req.Phone
	existing.Address = req.Address
	existing.Segment = req.Segment
	existing.UpdatedAt = time.Now().UTC()

	if errs := existing.ValidateInvariants(); len(errs) > 0 {
		respondError(w, errors.Join(errs...))
		return
	}
	if err := h.customers.Update(r.Context(), existing); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(existing))
}

// DeleteCustomer удаляет клиента.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.customers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
