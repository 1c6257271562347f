package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/storage/memory"
	"github.com/vladislavdragonenkov/crm/internal/storage/postgres"
)

// storageSet объединяет все репозитории одного бэкенда.
type storageSet struct {
	Orders      domain.OrderRepository
	Customers   domain.CustomerRepository
	Products    domain.ProductRepository
	Leads       domain.LeadRepository
	History     domain.HistoryRepository
	Outbox      domain.OutboxRepository
	Idempotency domain.IdempotencyRepository

	// store не nil только для postgres-драйвера.
	store *postgres.Store
}

// Close освобождает ресурсы хранилища.
func (s *storageSet) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// initStorage создаёт репозитории для выбранного драйвера.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageSet, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		logger.Info("используем in-memory хранилище")
		outboxRepo := memory.NewOutboxRepository()
		return &storageSet{
			Orders:      memory.NewOrderRepository(outboxRepo),
			Customers:   memory.NewCustomerRepository(),
			Products:    memory.NewProductRepository(),
			Leads:       memory.NewLeadRepository(),
			History:     memory.NewHistoryRepository(),
			Outbox:      outboxRepo,
			Idempotency: memory.NewIdempotencyRepository(),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires CRM_POSTGRES_DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		logger.Info("используем PostgreSQL хранилище")

		return &storageSet{
			Orders:      postgres.NewOrderRepository(store),
			Customers:   postgres.NewCustomerRepository(store),
			Products:    postgres.NewProductRepository(store),
			Leads:       postgres.NewLeadRepository(store),
			History:     postgres.NewHistoryRepository(store),
			Outbox:      postgres.NewOutboxRepository(store),
			Idempotency: postgres.NewIdempotencyRepository(store),
			store:       store,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
