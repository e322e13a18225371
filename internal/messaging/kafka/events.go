package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "textile.order.events"
	TopicDeadLetterQueue = "textile.order.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	// HeaderBuild — сборка витрины, отправившей сообщение.
	HeaderBuild = "x-store-build"
)

// Envelope — формат сообщения, которое outbox публикует в topic.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// DeadLetter описывает сообщение, отправленное в DLQ.
type DeadLetter struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int32  `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"`
	RetryCount        int    `json:"retry_count"`
}

// ParseEnvelope разбирает outbox-конверт из сообщения.
func ParseEnvelope(message *sarama.ConsumerMessage) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(message.Value, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return env, nil
}

// ParseOrderEvent парсит OrderEvent из конверта.
func ParseOrderEvent(message *sarama.ConsumerMessage) (domain.OrderEvent, error) {
	env, err := ParseEnvelope(message)
	if err != nil {
		return domain.OrderEvent{}, err
	}
	if env.AggregateType != domain.AggregateOrder {
		return domain.OrderEvent{}, fmt.Errorf("unexpected aggregate type %q", env.AggregateType)
	}
	var event domain.OrderEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		return domain.OrderEvent{}, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	return event, nil
}
