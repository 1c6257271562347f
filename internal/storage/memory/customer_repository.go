package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// CustomerRepository — in-memory хранилище клиентов.
type CustomerRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Customer
}

// NewCustomerRepository создаёт пустое in-memory хранилище клиентов.
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{items: make(map[string]domain.Customer)}
}

func (r *CustomerRepository) Create(ctx context.Context, customer domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[customer.ID] = customer
	return nil
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.items[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Customer, 0, len(r.items))
	for _, customer := range r.items {
		result = append(result, customer)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, limit, offset), nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[customer.ID]; !ok {
		return domain.ErrCustomerNotFound
	}
	r.items[customer.ID] = customer
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	delete(r.items, id)
	return nil
}

// paginate применяет offset/limit к уже отсортированному списку.
func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ domain.CustomerRepository = (*CustomerRepository)(nil)
