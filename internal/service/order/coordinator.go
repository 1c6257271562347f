package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/crm/internal/metrics"
)

// LineInput описывает одну позицию во входном запросе.
// Subtotal клиента игнорируется и всегда пересчитывается на сервере.
type LineInput struct {
	ProductID     string
	Quantity      int32
	PriceUnit     float64
	OriginalPrice float64
	Discount      float64
}

// CreateOrderRequest — входные данные для создания заказа.
type CreateOrderRequest struct {
	CustomerID    string
	OrderDate     *time.Time
	TotalAmount   float64
	Currency      string
	PaymentMethod domain.PaymentMethod
	Status        domain.OrderStatus
	Channel       string
	Notes         string
	Items         []LineInput
}

// OrderPatch — частичное обновление заказа. nil-поле означает «не менять».
// Items заменяет ВСЕ позиции целиком: частичное редактирование позиций не поддерживается.
type OrderPatch struct {
	OrderDate     *time.Time
	TotalAmount   *float64
	Currency      *string
	PaymentMethod *domain.PaymentMethod
	Status        *domain.OrderStatus
	Channel       *string
	Notes         *string
	Items         *[]LineInput
	// ExpectedVersion включает optimistic locking на уровне запроса.
	ExpectedVersion *int64
}

// Coordinator выполняет атомарные операции над агрегатом заказа:
// шапка и позиции меняются в одной транзакции, события попадают в outbox
// той же транзакцией, история статусов пишется после фиксации.
type Coordinator struct {
	orders      domain.OrderRepository
	history     domain.HistoryRepository
	transitions domain.StatusTransitions
	metrics     *metrics.OrderMetrics
	logger      *log.Entry
}

// NewCoordinator создаёт координатор с таблицей переходов по умолчанию.
func NewCoordinator(orders domain.OrderRepository, history domain.HistoryRepository, m *metrics.OrderMetrics) *Coordinator {
	return NewCoordinatorWithTransitions(orders, history, m, domain.DefaultStatusTransitions())
}

// NewCoordinatorWithTransitions создаёт координатор с заданной таблицей переходов статуса.
func NewCoordinatorWithTransitions(orders domain.OrderRepository, history domain.HistoryRepository, m *metrics.OrderMetrics, transitions domain.StatusTransitions) *Coordinator {
	if transitions == nil {
		transitions = domain.DefaultStatusTransitions()
	}
	return &Coordinator{
		orders:      orders,
		history:     history,
		transitions: transitions,
		metrics:     m,
		logger:      log.WithField("component", "order-coordinator"),
	}
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(orders domain.OrderRepository, history domain.HistoryRepository) *Coordinator {
	return NewCoordinatorWithTransitions(orders, history, nil, nil)
}

// CreateOrder создаёт заказ вместе с позициями в одной транзакции.
// Итоговая сумма при наличии позиций пересчитывается на сервере.
func (c *Coordinator) CreateOrder(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	started := time.Now()

	if req.CustomerID == "" {
		c.recordFailure("create")
		return domain.Order{}, domain.ErrCustomerRequired
	}
	if req.TotalAmount == 0 {
		c.recordFailure("create")
		return domain.Order{}, domain.ErrTotalAmountRequired
	}

	now := time.Now().UTC()
	orderDate := now
	if req.OrderDate != nil {
		orderDate = req.OrderDate.UTC()
	}

	status := req.Status
	if status == "" {
		status = domain.OrderStatusPaid
	}
	currency := req.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	order := domain.Order{
		ID:            uuid.New().String(),
		CustomerID:    req.CustomerID,
		OrderDate:     orderDate,
		TotalAmount:   domain.RoundMoney(req.TotalAmount),
		Currency:      currency,
		PaymentMethod: req.PaymentMethod,
		Status:        status,
		Channel:       req.Channel,
		Notes:         req.Notes,
		Lines:         buildLines("", now, req.Items),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
	}

	// Сумма заказа при наличии позиций всегда производная от позиций.
	if len(order.Lines) > 0 {
		order.TotalAmount = order.LinesTotal()
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		c.recordFailure("create")
		return domain.Order{}, errors.Join(errs...)
	}

	err := c.orders.WithinTx(ctx, func(tx domain.OrderTx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if len(order.Lines) > 0 {
			if err := tx.InsertLines(ctx, order.ID, order.Lines); err != nil {
				return err
			}
		}
		return c.enqueueOrderEvent(ctx, tx, kafka.EventTypeOrderCreated, order, nil)
	})
	if err != nil {
		c.recordFailure("create")
		return domain.Order{}, c.wrapStorage("create order", err)
	}

	c.appendHistory(order.ID, order.Status, "order created")
	c.recordSuccess("create", started, func(m *metrics.OrderMetrics) { m.RecordCreated() })

	c.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"status":      order.Status,
		"total":       order.TotalAmount,
		"lines":       len(order.Lines),
	}).Info("заказ создан")

	return c.orders.Get(ctx, order.ID)
}

// UpdateOrder применяет частичное обновление заказа. Передача Items заменяет
// все позиции целиком и требует явной суммы заказа; сохранённая сумма при
// этом пересчитывается из позиций.
func (c *Coordinator) UpdateOrder(ctx context.Context, orderID string, patch OrderPatch) (domain.Order, error) {
	started := time.Now()

	if orderID == "" {
		c.recordFailure("update")
		return domain.Order{}, domain.ErrOrderIDRequired
	}

	current, err := c.orders.Get(ctx, orderID)
	if err != nil {
		c.recordFailure("update")
		return domain.Order{}, err
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != current.Version {
		c.recordFailure("update")
		return domain.Order{}, domain.ErrOrderVersionConflict
	}

	now := time.Now().UTC()
	updated := current
	statusChanged := false

	if patch.OrderDate != nil {
		updated.OrderDate = patch.OrderDate.UTC()
	}
	if patch.TotalAmount != nil {
		updated.TotalAmount = domain.RoundMoney(*patch.TotalAmount)
	}
	if patch.Currency != nil {
		updated.Currency = *patch.Currency
	}
	if patch.PaymentMethod != nil {
		updated.PaymentMethod = *patch.PaymentMethod
	}
	if patch.Channel != nil {
		updated.Channel = *patch.Channel
	}
	if patch.Notes != nil {
		updated.Notes = *patch.Notes
	}
	if patch.Status != nil && *patch.Status != current.Status {
		if !patch.Status.Valid() {
			c.recordFailure("update")
			return domain.Order{}, domain.ErrOrderStatusUnknown
		}
		if !c.transitions.CanTransition(current.Status, *patch.Status) {
			c.recordFailure("update")
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransitionDenied, current.Status, *patch.Status)
		}
		updated.Status = *patch.Status
		statusChanged = true
	}

	replaceLines := patch.Items != nil
	if replaceLines {
		if patch.TotalAmount == nil || *patch.TotalAmount == 0 {
			c.recordFailure("update")
			return domain.Order{}, domain.ErrTotalAmountForItems
		}
		updated.Lines = buildLines(orderID, now, *patch.Items)
		if len(updated.Lines) > 0 {
			updated.TotalAmount = updated.LinesTotal()
		}
	}

	updated.UpdatedAt = now

	if errs := updated.ValidateInvariants(); len(errs) > 0 {
		c.recordFailure("update")
		return domain.Order{}, errors.Join(errs...)
	}

	err = c.orders.WithinTx(ctx, func(tx domain.OrderTx) error {
		if replaceLines {
			// Полная замена позиций: старые удаляются, новые вставляются заново.
			if err := tx.DeleteLines(ctx, orderID); err != nil {
				return err
			}
			if len(updated.Lines) > 0 {
				if err := tx.InsertLines(ctx, orderID, updated.Lines); err != nil {
					return err
				}
			}
		}
		if err := tx.UpdateOrder(ctx, updated); err != nil {
			return err
		}
		if err := c.enqueueOrderEvent(ctx, tx, kafka.EventTypeOrderUpdated, updated, nil); err != nil {
			return err
		}
		if statusChanged {
			meta := map[string]interface{}{"previous_status": string(current.Status)}
			return c.enqueueOrderEvent(ctx, tx, kafka.EventTypeOrderStatusChanged, updated, meta)
		}
		return nil
	})
	if err != nil {
		c.recordFailure("update")
		return domain.Order{}, c.wrapStorage("update order", err)
	}

	if statusChanged {
		c.appendHistory(orderID, updated.Status, "status changed via update")
		if c.metrics != nil {
			c.metrics.RecordStatusChange()
		}
	}
	c.recordSuccess("update", started, func(m *metrics.OrderMetrics) { m.RecordUpdated() })

	c.logger.WithFields(log.Fields{
		"order_id":       orderID,
		"status":         updated.Status,
		"lines_replaced": replaceLines,
	}).Info("заказ обновлён")

	return c.orders.Get(ctx, orderID)
}

// UpdateStatus меняет только статус заказа с проверкой таблицы переходов.
func (c *Coordinator) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, reason string) (domain.Order, error) {
	started := time.Now()

	if orderID == "" {
		c.recordFailure("update_status")
		return domain.Order{}, domain.ErrOrderIDRequired
	}
	if !status.Valid() {
		c.recordFailure("update_status")
		return domain.Order{}, domain.ErrOrderStatusUnknown
	}

	current, err := c.orders.Get(ctx, orderID)
	if err != nil {
		c.recordFailure("update_status")
		return domain.Order{}, err
	}
	if !c.transitions.CanTransition(current.Status, status) {
		c.recordFailure("update_status")
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransitionDenied, current.Status, status)
	}

	now := time.Now().UTC()
	updated := current
	updated.Status = status
	updated.UpdatedAt = now

	err = c.orders.WithinTx(ctx, func(tx domain.OrderTx) error {
		if err := tx.UpdateStatus(ctx, orderID, status, now); err != nil {
			return err
		}
		meta := map[string]interface{}{"previous_status": string(current.Status)}
		if reason != "" {
			meta["reason"] = reason
		}
		return c.enqueueOrderEvent(ctx, tx, kafka.EventTypeOrderStatusChanged, updated, meta)
	})
	if err != nil {
		c.recordFailure("update_status")
		return domain.Order{}, c.wrapStorage("update order status", err)
	}

	c.appendHistory(orderID, status, reason)
	c.recordSuccess("update_status", started, func(m *metrics.OrderMetrics) { m.RecordStatusChange() })

	c.logger.WithFields(log.Fields{
		"order_id": orderID,
		"from":     current.Status,
		"to":       status,
	}).Info("статус заказа изменён")

	return c.orders.Get(ctx, orderID)
}

// DeleteOrder удаляет заказ и все его позиции в одной транзакции.
// Позиции удаляются первыми, затем шапка.
func (c *Coordinator) DeleteOrder(ctx context.Context, orderID string) error {
	started := time.Now()

	if orderID == "" {
		c.recordFailure("delete")
		return domain.ErrOrderIDRequired
	}

	current, err := c.orders.Get(ctx, orderID)
	if err != nil {
		c.recordFailure("delete")
		return err
	}

	err = c.orders.WithinTx(ctx, func(tx domain.OrderTx) error {
		if err := tx.DeleteLines(ctx, orderID); err != nil {
			return err
		}
		if err := tx.DeleteOrder(ctx, orderID); err != nil {
			return err
		}
		return c.enqueueOrderEvent(ctx, tx, kafka.EventTypeOrderDeleted, current, nil)
	})
	if err != nil {
		c.recordFailure("delete")
		return c.wrapStorage("delete order", err)
	}

	c.recordSuccess("delete", started, func(m *metrics.OrderMetrics) { m.RecordDeleted() })

	c.logger.WithField("order_id", orderID).Info("заказ удалён")
	return nil
}

// GetOrder возвращает заказ с позициями.
func (c *Coordinator) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}
	return c.orders.Get(ctx, orderID)
}

// ListOrders возвращает заказы по фильтру.
func (c *Coordinator) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	return c.orders.List(ctx, filter)
}

// History возвращает историю смен статуса заказа.
func (c *Coordinator) History(orderID string) ([]domain.StatusEvent, error) {
	if orderID == "" {
		return nil, domain.ErrOrderIDRequired
	}
	return c.history.List(orderID)
}

func (c *Coordinator) enqueueOrderEvent(ctx context.Context, tx domain.OrderTx, eventType kafka.EventType, order domain.Order, metadata map[string]interface{}) error {
	event := kafka.NewOrderEvent(eventType, order.ID, order.CustomerID, string(order.Status), metadata)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := domain.OutboxMessage{
		ID:            uuid.New().String(),
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}
	if err := tx.EnqueueEvent(ctx, msg); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordOutboxEvent()
	}
	return nil
}

// appendHistory пишет событие истории после фиксации транзакции.
// Сбой истории не откатывает заказ, только логируется.
func (c *Coordinator) appendHistory(orderID string, status domain.OrderStatus, reason string) {
	if c.history == nil {
		return
	}
	event := domain.StatusEvent{
		OrderID:  orderID,
		Status:   status,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := c.history.Append(event); err != nil {
		c.logger.WithError(err).WithField("order_id", orderID).Warn("не удалось записать историю статуса")
		return
	}
	if c.metrics != nil {
		c.metrics.RecordHistoryEvent()
	}
}

// wrapStorage пропускает доменные ошибки как есть, остальное оборачивает
// в StorageError с именем операции.
func (c *Coordinator) wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsValidation(err) || domain.IsNotFound(err) || domain.IsVersionConflict(err) ||
		errors.Is(err, domain.ErrOrderAlreadyExists) {
		return err
	}
	return domain.NewStorageError(op, err)
}

func (c *Coordinator) recordFailure(operation string) {
	if c.metrics != nil {
		c.metrics.RecordFailure(operation)
	}
}

func (c *Coordinator) recordSuccess(operation string, started time.Time, record func(*metrics.OrderMetrics)) {
	if c.metrics == nil {
		return
	}
	record(c.metrics)
	c.metrics.RecordDuration(operation, time.Since(started))
}

func buildLines(orderID string, now time.Time, items []LineInput) []domain.OrderLine {
	if len(items) == 0 {
		return nil
	}
	lines := make([]domain.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.OrderLine{
			ID:            uuid.New().String(),
			OrderID:       orderID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			PriceUnit:     item.PriceUnit,
			OriginalPrice: item.OriginalPrice,
			Discount:      item.Discount,
			CreatedAt:     now,
		})
	}
	return lines
}
