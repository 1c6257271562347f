package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/storage/memory"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *memory.OrderRepository, domain.OutboxRepository) {
	t.Helper()
	outbox := memory.NewOutboxRepository()
	orders := memory.NewOrderRepository(outbox)
	history := memory.NewHistoryRepository()
	return NewCoordinatorWithoutMetrics(orders, history), orders, outbox
}

func TestCreateOrderComputesTotalsFromLines(t *testing.T) {
	coordinator, _, outbox := newTestCoordinator(t)

	created, err := coordinator.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 999, // клиентская сумма игнорируется при наличии позиций
		Items: []LineInput{
			{ProductID: "product-a", Quantity: 2, PriceUnit: 100, Discount: 0.1},
			{ProductID: "product-b", Quantity: 1, PriceUnit: 50},
		},
	})
	require.NoError(t, err)

	// 2*100*0.9 + 1*50 = 230
	assert.Equal(t, 230.0, created.TotalAmount)
	assert.Equal(t, domain.OrderStatusPaid, created.Status)
	assert.Equal(t, domain.DefaultCurrency, created.Currency)
	assert.Equal(t, int64(1), created.Version)
	require.Len(t, created.Lines, 2)
	for _, line := range created.Lines {
		assert.Equal(t, created.ID, line.OrderID)
		assert.NotEmpty(t, line.ID)
	}

	pending, err := outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "order.created", pending[0].EventType)
	assert.Equal(t, created.ID, pending[0].AggregateID)
}

func TestCreateOrderReadAfterWrite(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)

	created, err := coordinator.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 120,
	})
	require.NoError(t, err)

	fetched, err := coordinator.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, 120.0, fetched.TotalAmount)
	assert.Empty(t, fetched.Lines)
}

func TestCreateOrderValidation(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coordinator.CreateOrder(ctx, CreateOrderRequest{TotalAmount: 10})
	assert.ErrorIs(t, err, domain.ErrCustomerRequired)

	_, err = coordinator.CreateOrder(ctx, CreateOrderRequest{CustomerID: "customer-1"})
	assert.ErrorIs(t, err, domain.ErrTotalAmountRequired)

	_, err = coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 10,
		Items:       []LineInput{{ProductID: "p", Quantity: 1, PriceUnit: 10, Discount: 1.5}},
	})
	assert.ErrorIs(t, err, domain.ErrLineDiscountInvalid)
	assert.True(t, domain.IsValidation(err))

	_, err = coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 10,
		Items:       []LineInput{{Quantity: -1, PriceUnit: -5}},
	})
	assert.ErrorIs(t, err, domain.ErrLineProductRequired)
	assert.ErrorIs(t, err, domain.ErrLineQuantityInvalid)
	assert.ErrorIs(t, err, domain.ErrLinePriceInvalid)
}

// failingLinesRepo ломает вставку позиций, чтобы проверить откат транзакции.
type failingLinesRepo struct {
	inner domain.OrderRepository
}

func (r *failingLinesRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	return r.inner.Get(ctx, id)
}

func (r *failingLinesRepo) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	return r.inner.List(ctx, filter)
}

func (r *failingLinesRepo) WithinTx(ctx context.Context, fn func(tx domain.OrderTx) error) error {
	return r.inner.WithinTx(ctx, func(tx domain.OrderTx) error {
		return fn(&failingLinesTx{OrderTx: tx})
	})
}

type failingLinesTx struct {
	domain.OrderTx
}

func (t *failingLinesTx) InsertLines(ctx context.Context, orderID string, lines []domain.OrderLine) error {
	return errors.New("disk is full")
}

func TestCreateOrderRollsBackWhenLinesFail(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	orders := memory.NewOrderRepository(outbox)
	history := memory.NewHistoryRepository()
	coordinator := NewCoordinatorWithoutMetrics(&failingLinesRepo{inner: orders}, history)

	_, err := coordinator.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 100,
		Items:       []LineInput{{ProductID: "product-a", Quantity: 1, PriceUnit: 100}},
	})
	require.Error(t, err)
	assert.True(t, domain.IsStorage(err))

	// Шапка заказа не должна сохраниться после отката.
	list, err := orders.List(context.Background(), domain.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	pending, err := outbox.PullPending(10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUpdateOrderReplacesAllLines(t *testing.T) {
	coordinator, _, outbox := newTestCoordinator(t)
	ctx := context.Background()

	created, err := coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 150,
		Items: []LineInput{
			{ProductID: "product-a", Quantity: 1, PriceUnit: 100},
			{ProductID: "product-b", Quantity: 1, PriceUnit: 50},
		},
	})
	require.NoError(t, err)

	total := 75.0
	updated, err := coordinator.UpdateOrder(ctx, created.ID, OrderPatch{
		TotalAmount: &total,
		Items:       &[]LineInput{{ProductID: "product-c", Quantity: 3, PriceUnit: 25}},
	})
	require.NoError(t, err)

	require.Len(t, updated.Lines, 1)
	assert.Equal(t, "product-c", updated.Lines[0].ProductID)
	assert.Equal(t, 75.0, updated.TotalAmount)
	assert.Equal(t, int64(2), updated.Version)

	pending, err := outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "order.updated", pending[1].EventType)
}

func TestUpdateOrderRequiresTotalWithItems(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	created, err := coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 100,
	})
	require.NoError(t, err)

	_, err = coordinator.UpdateOrder(ctx, created.ID, OrderPatch{
		Items: &[]LineInput{{ProductID: "product-a", Quantity: 1, PriceUnit: 10}},
	})
	assert.ErrorIs(t, err, domain.ErrTotalAmountForItems)
}

func TestUpdateOrderVersionConflict(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	created, err := coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 100,
	})
	require.NoError(t, err)

	stale := created.Version - 1
	notes := "updated"
	_, err = coordinator.UpdateOrder(ctx, created.ID, OrderPatch{
		Notes:           &notes,
		ExpectedVersion: &stale,
	})
	assert.ErrorIs(t, err, domain.ErrOrderVersionConflict)
}

func TestUpdateOrderNotFound(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)

	notes := "x"
	_, err := coordinator.UpdateOrder(context.Background(), "missing", OrderPatch{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	coordinator, _, outbox := newTestCoordinator(t)
	ctx := context.Background()

	created, err := coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 100,
		Status:      domain.OrderStatusPending,
	})
	require.NoError(t, err)

	updated, err := coordinator.UpdateStatus(ctx, created.ID, domain.OrderStatusPaid, "payment confirmed")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, updated.Status)

	// pending недостижим из paid
	_, err = coordinator.UpdateStatus(ctx, created.ID, domain.OrderStatusPending, "")
	assert.ErrorIs(t, err, domain.ErrStatusTransitionDenied)

	_, err = coordinator.UpdateStatus(ctx, created.ID, "bogus", "")
	assert.ErrorIs(t, err, domain.ErrOrderStatusUnknown)

	events, err := coordinator.History(created.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.OrderStatusPaid, events[1].Status)
	assert.Equal(t, "payment confirmed", events[1].Reason)

	pending, err := outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "order.status_changed", pending[1].EventType)
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	created, err := coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 100,
		Status:      domain.OrderStatusCompleted,
	})
	require.NoError(t, err)

	updated, err := coordinator.UpdateStatus(ctx, created.ID, domain.OrderStatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, updated.Status)
}

func TestDeleteOrderRemovesLines(t *testing.T) {
	coordinator, _, outbox := newTestCoordinator(t)
	ctx := context.Background()

	created, err := coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID:  "customer-1",
		TotalAmount: 100,
		Items:       []LineInput{{ProductID: "product-a", Quantity: 1, PriceUnit: 100}},
	})
	require.NoError(t, err)

	require.NoError(t, coordinator.DeleteOrder(ctx, created.ID))

	_, err = coordinator.GetOrder(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	err = coordinator.DeleteOrder(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	pending, err := outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "order.deleted", pending[1].EventType)
}

func TestListOrdersFiltersAndSorts(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()

	first, err := coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID: "customer-1", TotalAmount: 10, OrderDate: &older,
	})
	require.NoError(t, err)
	second, err := coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID: "customer-1", TotalAmount: 20, OrderDate: &newer,
	})
	require.NoError(t, err)
	_, err = coordinator.CreateOrder(ctx, CreateOrderRequest{
		CustomerID: "customer-2", TotalAmount: 30,
	})
	require.NoError(t, err)

	list, err := coordinator.ListOrders(ctx, domain.OrderFilter{CustomerID: "customer-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = coordinator.ListOrders(ctx, domain.OrderFilter{CustomerID: "customer-1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}
