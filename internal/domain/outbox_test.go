package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOutboxMessagePartitionKey(t *testing.T) {
	require.Equal(t, "order-1", OutboxMessage{ID: "m-1", AggregateID: "order-1"}.PartitionKey())
	require.Equal(t, "m-1", OutboxMessage{ID: "m-1"}.PartitionKey())
}

func TestOutboxStatsOldestAge(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	require.Zero(t, OutboxStats{}.OldestAge(now))
	require.Zero(t, OutboxStats{PendingCount: 2}.OldestAge(now), "unknown oldest time")
	require.Zero(t, OutboxStats{PendingCount: 0, OldestPendingAt: now.Add(-time.Hour)}.OldestAge(now))
	require.Zero(t, OutboxStats{PendingCount: 1, OldestPendingAt: now.Add(time.Minute)}.OldestAge(now), "clock skew")
	require.Equal(t, 90*time.Second, OutboxStats{PendingCount: 1, OldestPendingAt: now.Add(-90 * time.Second)}.OldestAge(now))
}

func TestOrderEventOutboxMessage(t *testing.T) {
	at := time.Date(2026, 4, 1, 17, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	order := Order{ID: "o-7", CustomerName: "Anita", Status: OrderStatusContacted, Items: []OrderItem{{ID: "i-1"}, {ID: "i-2"}}}

	msg, err := NewOrderEvent(EventOrderStatusChanged, order, OrderStatusNew, at).OutboxMessage()
	require.NoError(t, err)
	require.Equal(t, AggregateOrder, msg.AggregateType)
	require.Equal(t, "o-7", msg.PartitionKey())
	require.Empty(t, msg.ID, "repository assigns the id")

	var event OrderEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	require.Equal(t, "new", event.PreviousStatus)
	require.Equal(t, 2, event.ItemCount)
	require.Equal(t, time.UTC, event.Timestamp.Location())
}

func TestStatusNote(t *testing.T) {
	require.Equal(t, "new -> contacted", StatusNote(OrderStatusNew, OrderStatusContacted, "  "))
	require.Equal(t, "contacted -> canceled: out of stock", StatusNote(OrderStatusContacted, OrderStatusCanceled, " out of stock "))
}
