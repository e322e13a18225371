package app

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/textilestore/internal/metrics"
)

const notifierMaxRetries = 3

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList, kafka.WithProducerLogger(logger.WithField("component", "kafka-producer")))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// startNotifier подписывает consumer group на события заявок.
// Сообщения, которые не удалось разобрать, уходят в DLQ через producer.
func startNotifier(ctx context.Context, cfg Config, producer *kafka.Producer, m *metrics.StoreMetrics, logger *log.Entry) *kafka.Consumer {
	handler := kafka.OrderNotifier(logger.WithField("component", "order-notifier"), func(e domain.OrderEvent) {
		if m != nil {
			m.RecordOrderNotification(e.EventType)
		}
	})
	consumer, err := kafka.NewConsumer(splitBrokers(cfg.KafkaBrokers), cfg.KafkaNotifierGroup, []string{cfg.KafkaTopic}, handler,
		kafka.WithDeadLetters(producer),
		kafka.WithMaxRetries(notifierMaxRetries),
		kafka.WithConsumerLogger(logger.WithField("component", "notifier-consumer")),
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create order notifier, continuing without it")
		return nil
	}
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Warn("order notifier stopped")
		}
	}()
	return consumer
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// logPublisher публикует события outbox в лог, когда Kafka не настроена.
type logPublisher struct {
	logger *log.Entry
}

func (p logPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"event_id":   event.ID,
		"event_type": event.EventType,
		"order_id":   event.AggregateID,
	}).Info("order event")
	return nil
}
