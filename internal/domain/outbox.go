package domain

import "time"

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"

	AggregateOrder = "order"
)

// OutboxMessage — событие, сохранённое вместе с заявкой и ждущее отправки брокеру.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// PartitionKey держит события одной заявки в одной партиции.
func (m OutboxMessage) PartitionKey() string {
	if m.AggregateID != "" {
		return m.AggregateID
	}
	return m.ID
}

// OutboxStats — срез очереди outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
	// FailedCount — события, ушедшие в DLQ после исчерпания попыток.
	FailedCount int
}

// OldestAge — сколько ждёт самое старое событие; 0, если очередь пуста.
func (s OutboxStats) OldestAge(now time.Time) time.Duration {
	if s.PendingCount == 0 || s.OldestPendingAt.IsZero() {
		return 0
	}
	return max(now.Sub(s.OldestPendingAt), 0)
}

// OutboxPublisher отправляет событие наружу. Повторная отправка того же ID допустима.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}
