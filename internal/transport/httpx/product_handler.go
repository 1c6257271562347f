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

// CreateProduct создаёт товар каталога.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Category:  req.Category,
		PriceUnit: req.PriceUnit,
		Currency:  req.Currency,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if product.Currency == "" {
		product.Currency = domain.DefaultCurrency
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if errs := product.ValidateInvariants(); len(errs) > 0 {
		respondError(w, errors.Join(errs...))
		return
	}
	if err := h.products.Create(r.Context(), product); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// GetProduct возвращает товар по ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// ListProducts возвращает товары с пагинацией.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		respondError(w, err)
		return
	}

	responses := make([]productResponse, 0, len(products))
	for _, product := range products {
		responses = append(responses, toProductResponse(product))
	}
	writeJSON(w, http.StatusOK, responses)
}

// UpdateProduct перезаписывает данные товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	existing, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	existing.Name = req.Name
	existing.Category = req.Category
	existing.PriceUnit = req.PriceUnit
	if req.Currency != "" {
		existing.Currency = req.Currency
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}
	existing.UpdatedAt = time.Now().UTC()

	if errs := existing.ValidateInvariants(); len(errs) > 0 {
		respondError(w, errors.Join(errs...))
		return
	}
	if err := h.products.Update(r.Context(), existing); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(existing))
}

// DeleteProduct удаляет товар.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
