package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// LeadRepository — in-memory хранилище лидов.
type LeadRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Lead
}

// NewLeadRepository создаёт пустое in-memory хранилище лидов.
func NewLeadRepository() *LeadRepository {
	return &LeadRepository{items: make(map[string]domain.Lead)}
}

func (r *LeadRepository) Create(ctx context.Context, lead domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[lead.ID] = lead
	return nil
}

func (r *LeadRepository) Get(ctx context.Context, id string) (domain.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.items[id]
	if !ok {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	return lead, nil
}

func (r *LeadRepository) List(ctx context.Context, limit, offset int) ([]domain.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Lead, 0, len(r.items))
	for _, lead := range r.items {
		result = append(result, lead)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, limit, offset), nil
}

func (r *LeadRepository) Update(ctx context.Context, lead domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[lead.ID]; !ok {
		return domain.ErrLeadNotFound
	}
	r.items[lead.ID] = lead
	return nil
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrLeadNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.LeadRepository = (*LeadRepository)(nil)
