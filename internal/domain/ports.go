package domain

import (
	"context"
	"time"
)

// LeadScore — результат AI-оценки лида.
type LeadScore struct {
	Score       float64
	Probability float64
	Reason      string
}

// Segment — сегмент клиента, присвоенный AI-сервисом.
type Segment struct {
	CustomerID string
	Segment    string
	Confidence float64
}

// Recommendation — рекомендация товара для клиента.
type Recommendation struct {
	ProductID string
	Score     float64
	Reason    string
}

// AIService описывает взаимодействие с внешним AI-микросервисом.
// Клиент не реализует модели — только тонкий прокси с retry.
type AIService interface {
	// Health проверяет доступность сервиса.
	Health(ctx context.Context) error
	// ScoreLead возвращает скоринг лида.
	ScoreLead(ctx context.Context, lead Lead) (LeadScore, error)
	// SegmentCustomers возвращает сегменты для набора клиентов.
	SegmentCustomers(ctx context.Context, customers []Customer) ([]Segment, error)
	// RecommendProducts возвращает рекомендации товаров для клиента.
	RecommendProducts(ctx context.Context, customerID string, limit int) ([]Recommendation, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// StatusEvent описывает одну смену статуса в истории заказа.
type StatusEvent struct {
	OrderID  string
	Status   OrderStatus
	Reason   string
	Occurred time.Time
}
