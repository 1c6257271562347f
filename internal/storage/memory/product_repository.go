package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// ProductRepository — in-memory хранилище товаров.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository создаёт пустое in-memory хранилище товаров.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[string]domain.Product)}
}

func (r *ProductRepository) Create(ctx context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[product.ID] = product
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return paginate(result, limit, offset), nil
}

func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	r.items[product.ID] = product
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
var _ domain.ProductLookup = (*ProductRepository)(nil)
