package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/storage/memory"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []domain.OutboxMessage
	failFirst int
}

func (p *capturingPublisher) Publish(msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failFirst > 0 {
		p.failFirst--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func TestWorkerPublishesPendingMessages(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &capturingPublisher{}
	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0))

	for i := 0; i < 3; i++ {
		if _, err := repo.Enqueue(domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   "order-1",
			EventType:     "order.created",
			Payload:       []byte(`{}`),
		}); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	worker.ProcessOnce(context.Background())

	if got := publisher.count(); got != 3 {
		t.Fatalf("unexpected published count: got=%d want=3", got)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d messages", len(pending))
	}
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &capturingPublisher{failFirst: 2}
	worker := NewWorker(repo, publisher, WithMaxAttempts(3), WithRetryBaseDelay(0))

	if _, err := repo.Enqueue(domain.OutboxMessage{
		EventType: "order.created",
		Payload:   []byte(`{}`),
	}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	worker.ProcessOnce(context.Background())

	if got := publisher.count(); got != 1 {
		t.Fatalf("expected message published after retries, got=%d", got)
	}
}

func TestWorkerRoutesToDLQAfterExhaustedRetries(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &capturingPublisher{failFirst: 100}
	dlq := &capturingPublisher{}
	worker := NewWorker(repo, publisher,
		WithMaxAttempts(2),
		WithRetryBaseDelay(0),
		WithDLQPublisher(dlq),
	)

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	worker.ProcessOnce(context.Background())

	if got := dlq.count(); got != 1 {
		t.Fatalf("expected message in DLQ, got=%d", got)
	}
	dlq.mu.Lock()
	dlqMsg := dlq.published[0]
	dlq.mu.Unlock()
	if dlqMsg.ID != msg.ID {
		t.Fatalf("dlq message id mismatch: got=%s want=%s", dlqMsg.ID, msg.ID)
	}

	// Сообщение помечено failed и не возвращается в backlog.
	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d messages", len(pending))
	}
}
