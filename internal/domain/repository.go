package domain

import (
	"context"
	"time"
)

// OrderFilter задаёт параметры выборки заказов.
// Пустой CustomerID означает «все заказы».
type OrderFilter struct {
	CustomerID string
	Status     OrderStatus
	Limit      int
	Offset     int
}

// OrderTx — операции над агрегатом заказа внутри одной транзакции.
// Все мутации шапки и позиций проходят только через OrderTx: либо
// фиксируются целиком, либо целиком откатываются.
type OrderTx interface {
	// InsertOrder сохраняет новую шапку заказа.
	// Возвращает ErrOrderAlreadyExists, если ID занят.
	InsertOrder(ctx context.Context, order Order) error
	// UpdateOrder перезаписывает шапку заказа с проверкой версии (optimistic locking).
	// Возвращает ErrOrderNotFound или ErrOrderVersionConflict.
	UpdateOrder(ctx context.Context, order Order) error
	// UpdateStatus меняет только статус и updated_at.
	UpdateStatus(ctx context.Context, orderID string, status OrderStatus, updatedAt time.Time) error
	// DeleteOrder удаляет шапку заказа. Возвращает ErrOrderNotFound, если заказа нет.
	DeleteOrder(ctx context.Context, orderID string) error
	// InsertLines массово вставляет позиции заказа.
	InsertLines(ctx context.Context, orderID string, lines []OrderLine) error
	// DeleteLines удаляет все позиции заказа.
	DeleteLines(ctx context.Context, orderID string) error
	// EnqueueEvent кладёт событие в transactional outbox в рамках той же транзакции.
	EnqueueEvent(ctx context.Context, msg OutboxMessage) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает заказы по фильтру, каждый вместе с позициями,
	// отсортированные по дате заказа по убыванию.
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
	// WithinTx выполняет fn внутри транзакционной единицы работы.
	// Ошибка fn откатывает все мутации, сделанные через OrderTx.
	WithinTx(ctx context.Context, fn func(tx OrderTx) error) error
}

// CustomerRepository описывает хранилище клиентов.
type CustomerRepository interface {
	Create(ctx context.Context, customer Customer) error
	Get(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context, limit, offset int) ([]Customer, error)
	Update(ctx context.Context, customer Customer) error
	Delete(ctx context.Context, id string) error
}

// ProductRepository описывает хранилище товаров.
type ProductRepository interface {
	Create(ctx context.Context, product Product) error
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, limit, offset int) ([]Product, error)
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id string) error
}

// ProductLookup — read-only доступ к товарам для обогащения ответов.
// Не участвует в транзакциях заказа.
type ProductLookup interface {
	Get(ctx context.Context, id string) (Product, error)
}

// LeadRepository описывает хранилище лидов.
type LeadRepository interface {
	Create(ctx context.Context, lead Lead) error
	Get(ctx context.Context, id string) (Lead, error)
	List(ctx context.Context, limit, offset int) ([]Lead, error)
	Update(ctx context.Context, lead Lead) error
	Delete(ctx context.Context, id string) error
}

// HistoryRepository хранит события смены статуса заказа.
type HistoryRepository interface {
	Append(event StatusEvent) error
	List(orderID string) ([]StatusEvent, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
