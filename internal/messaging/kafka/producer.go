package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/version"
)

const defaultClientID = "textilestore"

// ProducerOption настраивает Producer.
type ProducerOption func(*Producer)

func WithClientID(id string) ProducerOption {
	return func(p *Producer) {
		if id != "" {
			p.clientID = id
		}
	}
}

func WithProducerLogger(logger *log.Entry) ProducerOption {
	return func(p *Producer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Producer отправляет JSON-сообщения синхронно, с подтверждением всех реплик.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
	clientID string
	build    string
	now      func() time.Time
}

// NewProducer подключается к брокерам. Идемпотентный producer требует
// MaxOpenRequests = 1.
func NewProducer(brokers []string, opts ...ProducerOption) (*Producer, error) {
	p := newProducer(nil, opts...)

	cfg := sarama.NewConfig()
	cfg.ClientID = p.clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	p.producer = sp
	return p, nil
}

func newProducer(sp sarama.SyncProducer, opts ...ProducerOption) *Producer {
	p := &Producer{
		producer: sp,
		logger:   log.WithField("component", "kafka-producer"),
		clientID: defaultClientID,
		build:    version.Current().Short(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishEvent кодирует event в JSON и ждёт подтверждения брокера.
// К headers добавляется HeaderBuild.
func (p *Producer) PublishEvent(topic, key string, event any, headers ...sarama.RecordHeader) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	headers = append(headers, sarama.RecordHeader{Key: []byte(HeaderBuild), Value: []byte(p.build)})
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Headers:   headers,
		Timestamp: p.now(),
	})
	fields := log.Fields{"topic": topic, "key": key}
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("kafka send failed")
		return fmt.Errorf("send to %s: %w", topic, err)
	}

	fields["partition"], fields["offset"] = partition, offset
	p.logger.WithFields(fields).Debug("message sent to kafka")
	return nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
