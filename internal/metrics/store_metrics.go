package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты оформления корзины.
const (
	CheckoutPlaced   = "placed"
	CheckoutEmpty    = "empty"
	CheckoutBelowMOQ = "below_moq"
	CheckoutInvalid  = "invalid"
	CheckoutError    = "error"
)

// StoreMetrics содержит метрики витрины: корзины, оформление, FOMO и HTTP.
type StoreMetrics struct {
	cartActions  *prometheus.CounterVec
	cartSessions prometheus.Gauge

	checkouts      *prometheus.CounterVec
	checkoutAmount prometheus.Histogram

	orderStatusChanges *prometheus.CounterVec
	orderNotifications *prometheus.CounterVec

	fomoGenerations prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewStoreMetrics регистрирует метрики в DefaultRegisterer.
func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		cartActions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "store_cart_actions_total",
			Help: "Total number of cart actions dispatched, by action kind",
		}, []string{"action"}),
		cartSessions: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "store_cart_sessions",
			Help: "Number of live cart sessions",
		}),
		checkouts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "store_checkouts_total",
			Help: "Total number of checkout attempts grouped by result",
		}, []string{"result"}),
		checkoutAmount: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "store_checkout_amount_rupees",
			Help:    "Order amount of placed checkouts in rupees",
			Buckets: []float64{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000},
		}),
		orderStatusChanges: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "store_order_status_changes_total",
			Help: "Total number of order status transitions, by target status",
		}, []string{"status"}),
		orderNotifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "store_order_notifications_total",
			Help: "Total number of order events consumed by the notifier",
		}, []string{"event_type"}),
		fomoGenerations: registerCounter(registerer, prometheus.CounterOpts{
			Name: "store_fomo_generations_total",
			Help: "Total number of catalog FOMO snapshots generated",
		}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "store_http_requests_total",
			Help: "Total number of HTTP API requests",
		}, []string{"method", "route", "code"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "store_http_request_duration_seconds",
			Help:    "Duration of HTTP API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"route"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "store_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "store_outbox_events_total",
			Help: "Total number of order events enqueued to the outbox",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	return register(registerer, opts.Name, prometheus.Counter(prometheus.NewCounter(opts)))
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	return register(registerer, opts.Name, prometheus.NewCounterVec(opts, labels))
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	return register(registerer, opts.Name, prometheus.Gauge(prometheus.NewGauge(opts)))
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	return register(registerer, opts.Name, prometheus.Histogram(prometheus.NewHistogram(opts)))
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	return register(registerer, opts.Name, prometheus.NewHistogramVec(opts, labels))
}

func register[C prometheus.Collector](registerer prometheus.Registerer, name string, collector C) C {
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector %q: %v", name, err))
	}
	return collector
}

// RecordCartAction учитывает действие над корзиной (add_item, remove_item, ...).
func (m *StoreMetrics) RecordCartAction(action string) {
	m.cartActions.WithLabelValues(action).Inc()
}

// SetCartSessions выставляет число живых сессий корзины.
func (m *StoreMetrics) SetCartSessions(n int) {
	m.cartSessions.Set(float64(n))
}

// RecordCheckout учитывает попытку оформления; amountMinor учитывается только для placed.
func (m *StoreMetrics) RecordCheckout(result string, amountMinor int64) {
	m.checkouts.WithLabelValues(result).Inc()
	if result == CheckoutPlaced {
		m.checkoutAmount.Observe(float64(amountMinor) / 100)
	}
}

// RecordOrderStatusChange учитывает смену статуса заявки.
func (m *StoreMetrics) RecordOrderStatusChange(status string) {
	m.orderStatusChanges.WithLabelValues(status).Inc()
}

// RecordOrderNotification учитывает событие, обработанное notifier'ом.
func (m *StoreMetrics) RecordOrderNotification(eventType string) {
	m.orderNotifications.WithLabelValues(eventType).Inc()
}

// RecordFomoGeneration увеличивает счётчик генераций FOMO.
func (m *StoreMetrics) RecordFomoGeneration() {
	m.fomoGenerations.Inc()
}

// RecordHTTPRequest записывает запрос к API.
func (m *StoreMetrics) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, fmt.Sprintf("%d", code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *StoreMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *StoreMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
