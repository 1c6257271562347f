package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// OrderRepository — in-memory реализация хранилища заказов.
// Транзакции выполняются последовательно под общим мьютексом,
// мутации применяются к снапшоту и публикуются только при успехе fn.
type OrderRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	outbox domain.OutboxRepository
}

// NewOrderRepository создаёт пустое in-memory хранилище заказов.
// outbox может быть nil, тогда события транзакций отбрасываются.
func NewOrderRepository(outbox domain.OutboxRepository) *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]domain.Order),
		outbox: outbox,
	}
}

func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OrderDate.After(result[j].OrderDate)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.Order{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// WithinTx выполняет fn над снапшотом хранилища. Ошибка fn отбрасывает
// снапшот вместе с накопленными событиями.
func (r *OrderRepository) WithinTx(ctx context.Context, fn func(tx domain.OrderTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := make(map[string]domain.Order, len(r.orders))
	for id, order := range r.orders {
		staged[id] = cloneOrder(order)
	}

	tx := &memoryOrderTx{staged: staged}
	if err := fn(tx); err != nil {
		return err
	}

	if r.outbox != nil {
		for _, event := range tx.events {
			if _, err := r.outbox.Enqueue(event); err != nil {
				return err
			}
		}
	}
	r.orders = staged
	return nil
}

// memoryOrderTx применяет мутации к снапшоту заказов.
type memoryOrderTx struct {
	staged map[string]domain.Order
	events []domain.OutboxMessage
}

func (t *memoryOrderTx) InsertOrder(ctx context.Context, order domain.Order) error {
	if _, exists := t.staged[order.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	stored := cloneOrder(order)
	stored.Lines = nil // позиции вставляются отдельно через InsertLines
	t.staged[order.ID] = stored
	return nil
}

func (t *memoryOrderTx) UpdateOrder(ctx context.Context, order domain.Order) error {
	existing, ok := t.staged[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if existing.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}

	updated := cloneOrder(order)
	updated.Lines = existing.Lines // позиции меняются только через InsertLines/DeleteLines
	updated.Version = existing.Version + 1
	updated.CreatedAt = existing.CreatedAt
	t.staged[order.ID] = updated
	return nil
}

func (t *memoryOrderTx) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) error {
	existing, ok := t.staged[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	existing.Status = status
	existing.UpdatedAt = updatedAt
	existing.Version++
	t.staged[orderID] = existing
	return nil
}

func (t *memoryOrderTx) DeleteOrder(ctx context.Context, orderID string) error {
	if _, ok := t.staged[orderID]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(t.staged, orderID)
	return nil
}

func (t *memoryOrderTx) InsertLines(ctx context.Context, orderID string, lines []domain.OrderLine) error {
	existing, ok := t.staged[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	for _, line := range lines {
		line.OrderID = orderID
		existing.Lines = append(existing.Lines, line)
	}
	t.staged[orderID] = existing
	return nil
}

func (t *memoryOrderTx) DeleteLines(ctx context.Context, orderID string) error {
	existing, ok := t.staged[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	existing.Lines = nil
	t.staged[orderID] = existing
	return nil
}

func (t *memoryOrderTx) EnqueueEvent(ctx context.Context, msg domain.OutboxMessage) error {
	t.events = append(t.events, msg)
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	clone := order
	if len(order.Lines) > 0 {
		clone.Lines = make([]domain.OrderLine, len(order.Lines))
		copy(clone.Lines, order.Lines)
	}
	return clone
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
var _ domain.OrderTx = (*memoryOrderTx)(nil)
