package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitStorage_Memory(t *testing.T) {
	logger := log.WithField("component", "test")

	storage, err := initStorage(context.Background(), DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("initStorage failed: %v", err)
	}
	defer storage.Close()

	if storage.Orders == nil {
		t.Error("expected Orders repository")
	}
	if storage.Customers == nil {
		t.Error("expected Customers repository")
	}
	if storage.Products == nil {
		t.Error("expected Products repository")
	}
	if storage.Leads == nil {
		t.Error("expected Leads repository")
	}
	if storage.History == nil {
		t.Error("expected History repository")
	}
	if storage.Outbox == nil {
		t.Error("expected Outbox repository")
	}
	if storage.Idempotency == nil {
		t.Error("expected Idempotency repository")
	}
	if storage.store != nil {
		t.Error("memory driver should not open a postgres store")
	}
}

func TestInitStorage_PostgresRequiresDSN(t *testing.T) {
	logger := log.WithField("component", "test")

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = ""

	if _, err := initStorage(context.Background(), cfg, logger); err == nil {
		t.Fatal("expected error for postgres driver without DSN")
	}
}

func TestInitStorage_UnknownDriver(t *testing.T) {
	logger := log.WithField("component", "test")

	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"

	if _, err := initStorage(context.Background(), cfg, logger); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
