package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

var errNoProducer = errors.New("kafka outbox publisher has no producer")

// OutboxTopicPublisher кладёт события outbox в один topic, обернув их в Envelope.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	now      func() time.Time
}

// NewOutboxPublisher публикует в topic; пустой topic означает TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errNoProducer
	}
	if !json.Valid(event.Payload) {
		return fmt.Errorf("outbox %s: payload is not valid json", event.ID)
	}

	return p.producer.PublishEvent(p.topic, event.PartitionKey(), Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       event.Payload,
		PublishedAt:   p.now().UTC(),
	}, sarama.RecordHeader{Key: []byte(HeaderEventType), Value: []byte(event.EventType)})
}
