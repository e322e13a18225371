package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()

	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	var total float64
	for metric := range ch {
		var m dto.Metric
		if err := metric.Write(&m); err != nil {
			t.Fatalf("write metric: %v", err)
		}
		if m.Counter != nil {
			total += m.Counter.GetValue()
		}
		if m.Gauge != nil {
			total += m.Gauge.GetValue()
		}
	}
	return total
}

func TestNewStoreMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetricsWithRegisterer(reg)

	m.RecordCartAction("add_item")
	m.RecordCartAction("add_item")
	m.RecordCartAction("clear_cart")
	if got := counterValue(t, m.cartActions.WithLabelValues("add_item")); got != 2 {
		t.Fatalf("expected 2 add_item actions, got %v", got)
	}

	m.SetCartSessions(7)
	if got := counterValue(t, m.cartSessions); got != 7 {
		t.Fatalf("expected 7 sessions, got %v", got)
	}

	m.RecordFomoGeneration()
	if got := counterValue(t, m.fomoGenerations); got != 1 {
		t.Fatalf("expected 1 fomo generation, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestNewStoreMetrics_ReRegisterReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewStoreMetricsWithRegisterer(reg)
	second := NewStoreMetricsWithRegisterer(reg)

	first.RecordOutboxEvent()
	second.RecordOutboxEvent()

	if got := counterValue(t, first.outboxEvents); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestRecordCheckout_ObservesAmountOnlyForPlaced(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetricsWithRegisterer(reg)

	m.RecordCheckout(CheckoutPlaced, 250_000)
	m.RecordCheckout(CheckoutEmpty, 0)
	m.RecordCheckout(CheckoutBelowMOQ, 0)

	var hist dto.Metric
	if err := m.checkoutAmount.Write(&hist); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	if hist.Histogram.GetSampleCount() != 1 {
		t.Fatalf("expected one observed amount, got %d", hist.Histogram.GetSampleCount())
	}
	if hist.Histogram.GetSampleSum() != 2500 {
		t.Fatalf("expected 2500 rupees, got %v", hist.Histogram.GetSampleSum())
	}
	if got := counterValue(t, m.checkouts); got != 3 {
		t.Fatalf("expected 3 checkout attempts, got %v", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetricsWithRegisterer(reg)

	m.RecordHTTPRequest("GET", "/api/cart", 200, 15*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/cart", 404, time.Millisecond)

	if got := counterValue(t, m.httpRequests.WithLabelValues("GET", "/api/cart", "200")); got != 1 {
		t.Fatalf("expected 1 ok request, got %v", got)
	}
	if got := counterValue(t, m.httpRequests); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
}

func TestRecordOrderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetricsWithRegisterer(reg)

	m.RecordOrderStatusChange("contacted")
	m.RecordOrderNotification("order.placed")
	m.RecordTimelineEvent()

	if got := counterValue(t, m.orderStatusChanges); got != 1 {
		t.Fatalf("unexpected status changes: %v", got)
	}
	if got := counterValue(t, m.orderNotifications); got != 1 {
		t.Fatalf("unexpected notifications: %v", got)
	}
	if got := counterValue(t, m.timelineEvents); got != 1 {
		t.Fatalf("unexpected timeline events: %v", got)
	}
}
