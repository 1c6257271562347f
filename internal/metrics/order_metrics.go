package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики транзакционных операций над заказами.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated  prometheus.Counter
	ordersUpdated  prometheus.Counter
	ordersDeleted  prometheus.Counter
	statusChanges  prometheus.Counter
	opFailed       *prometheus.CounterVec
	outboxEvents   prometheus.Counter
	historyEvents  prometheus.Counter

	// Гистограмма времени выполнения по операциям
	opDuration *prometheus.HistogramVec
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_orders_updated_total",
			Help: "Total number of orders updated",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		statusChanges: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_order_status_changes_total",
			Help: "Total number of order status transitions applied",
		}),
		opFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "crm_order_operation_failures_total",
			Help: "Total number of failed order operations grouped by operation",
		}, []string{"operation"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_order_outbox_events_total",
			Help: "Total number of order events enqueued to transactional outbox",
		}),
		historyEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_order_history_events_total",
			Help: "Total number of order status history events recorded",
		}),
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "crm_order_operation_duration_seconds",
			Help:    "Duration of order coordinator operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordCreated() {
	m.ordersCreated.Inc()
}

// RecordUpdated увеличивает счётчик обновлённых заказов.
func (m *OrderMetrics) RecordUpdated() {
	m.ordersUpdated.Inc()
}

// RecordDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordDeleted() {
	m.ordersDeleted.Inc()
}

// RecordStatusChange увеличивает счётчик применённых переходов статуса.
func (m *OrderMetrics) RecordStatusChange() {
	m.statusChanges.Inc()
}

// RecordFailure увеличивает счётчик неудачных операций.
func (m *OrderMetrics) RecordFailure(operation string) {
	m.opFailed.WithLabelValues(operation).Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordHistoryEvent увеличивает счётчик событий истории статусов.
func (m *OrderMetrics) RecordHistoryEvent() {
	m.historyEvents.Inc()
}

// RecordDuration записывает время выполнения операции координатора.
func (m *OrderMetrics) RecordDuration(operation string, duration time.Duration) {
	m.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
