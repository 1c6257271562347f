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

// CreateLead создаёт лида.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	now := time.Now().UTC()
	lead := domain.Lead{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Source:    req.Source,
		Status:    domain.LeadStatus(req.Status),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if lead.Status == "" {
		lead.Status = domain.LeadStatusNew
	}

	if errs := lead.ValidateInvariants(); len(errs) > 0 {
		respondError(w, errors.Join(errs...))
		return
	}
	if err := h.leads.Create(r.Context(), lead); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeadResponse(lead))
}

// GetLead возвращает лида по ID.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(lead))
}

// ListLeads возвращает лидов с пагинацией.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leads.List(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		respondError(w, err)
		return
	}

	responses := make([]leadResponse, 0, len(leads))
	for _, lead := range leads {
		responses = append(responses, toLeadResponse(lead))
	}
	writeJSON(w, http.StatusOK, responses)
}

// UpdateLead перезаписывает данные лида.
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	existing, err := h.leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	existing.Name = req.Name
	existing.Email = req.Email
	existing.Phone = req.Phone
	existing.Source = req.Source
	if req.Status != "" {
		existing.Status = domain.LeadStatus(req.Status)
	}
	existing.UpdatedAt = time.Now().UTC()

	if errs := existing.ValidateInvariants(); len(errs) > 0 {
		respondError(w, errors.Join(errs...))
		return
	}
	if err := h.leads.Update(r.Context(), existing); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(existing))
}

// DeleteLead удаляет лида.
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := h.leads.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ScoreLead запрашивает AI-скоринг лида и сохраняет результат.
func (h *Handler) ScoreLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	score, err := h.ai.ScoreLead(r.Context(), lead)
	if err != nil {
		respondError(w, err)
		return
	}

	lead.Score = score.Score
	lead.Probability = score.Probability
	lead.ScoredAt = time.Now().UTC()
	lead.UpdatedAt = lead.ScoredAt
	if err := h.leads.Update(r.Context(), lead); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(lead))
}
