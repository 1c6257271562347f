package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// historyRepositoryInMemory хранит историю смен статуса заказа.
type historyRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.StatusEvent
}

// NewHistoryRepository создаёт in-memory реализацию HistoryRepository.
func NewHistoryRepository() *historyRepositoryInMemory {
	return &historyRepositoryInMemory{
		events: make(map[string][]domain.StatusEvent),
	}
}

// Append добавляет событие в конец истории заказа.
func (r *historyRepositoryInMemory) Append(event domain.StatusEvent) error {
	if event.OrderID == "" {
		return domain.ErrOrderIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.OrderID] = append(r.events[event.OrderID], event)
	return nil
}

// List возвращает копию истории заказа в порядке добавления.
func (r *historyRepositoryInMemory) List(orderID string) ([]domain.StatusEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.events[orderID]
	result := make([]domain.StatusEvent, len(stored))
	copy(result, stored)
	return result, nil
}

var _ domain.HistoryRepository = (*historyRepositoryInMemory)(nil)
