package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// MessageHandler обрабатывает одно сообщение topic'а.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 200 * time.Millisecond
)

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку, которую повтор не исправит: сообщение сразу уходит в DLQ.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// eventPublisher — то, что нужно consumer'у от Producer для DLQ.
type eventPublisher interface {
	PublishEvent(topic, key string, event any, headers ...sarama.RecordHeader) error
}

// ConsumerOption настраивает Consumer.
type ConsumerOption func(*Consumer)

// WithDeadLetters включает DLQ: после исчерпания попыток сообщение
// публикуется в TopicDeadLetterQueue и offset коммитится.
func WithDeadLetters(p *Producer) ConsumerOption {
	return func(c *Consumer) {
		if p != nil {
			c.dlq = p
		}
	}
}

func WithMaxRetries(n int) ConsumerOption {
	return func(c *Consumer) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

func WithRetryDelay(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

func WithConsumerLogger(logger *log.Entry) ConsumerOption {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Consumer читает topic'и consumer group'ой и вызывает handler для каждого сообщения.
type Consumer struct {
	group      sarama.ConsumerGroup
	topics     []string
	handler    MessageHandler
	logger     *log.Entry
	wg         sync.WaitGroup
	dlq        eventPublisher
	maxRetries int
	retryDelay time.Duration
	now        func() time.Time
}

// NewConsumer подключает группу groupID. Новая группа начинает с последних offset'ов.
func NewConsumer(brokers []string, groupID string, topics []string, handler MessageHandler, opts ...ConsumerOption) (*Consumer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = defaultClientID
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("create consumer group %s: %w", groupID, err)
	}
	return newConsumer(group, topics, handler, opts...), nil
}

func newConsumer(group sarama.ConsumerGroup, topics []string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		group:      group,
		topics:     topics,
		handler:    handler,
		logger:     log.WithField("component", "kafka-consumer"),
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start запускает чтение в фоне до отмены ctx. Ошибки группы только логируются.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		// Consume возвращается после каждого rebalance.
		for ctx.Err() == nil {
			if err := c.group.Consume(ctx, c.topics, c); err != nil {
				c.logger.WithError(err).Error("consume session ended with error")
			}
		}
	}()
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer group error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает группу и ждёт фоновые горутины.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("close consumer group: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim коммитит offset только обработанных или отправленных в DLQ сообщений.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok || msg == nil {
				return nil
			}
			fields := log.Fields{"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset}
			if err := c.process(ctx, msg); err != nil {
				c.logger.WithError(err).WithFields(fields).Error("message left uncommitted")
				continue
			}
			session.MarkMessage(msg, "")
		}
	}
}

// process вызывает handler до maxRetries раз с учётом x-retry-count
// и отдаёт сообщение в DLQ, когда попытки кончились.
func (c *Consumer) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	attempt := retryCount(msg)
	for {
		err := c.handler(ctx, msg)
		if err == nil {
			return nil
		}
		attempt++
		if IsPermanent(err) || attempt >= c.maxRetries {
			return c.deadLetter(msg, err, attempt)
		}

		c.logger.WithError(err).WithFields(log.Fields{
			"topic":   msg.Topic,
			"attempt": attempt,
			"max":     c.maxRetries,
		}).Warn("message handling failed, retrying")
		if c.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
}

func (c *Consumer) deadLetter(msg *sarama.ConsumerMessage, cause error, attempts int) error {
	if c.dlq == nil {
		return cause
	}

	failedAt := c.now().UTC().Format(time.RFC3339)
	letter := DeadLetter{
		OriginalTopic:     msg.Topic,
		OriginalPartition: msg.Partition,
		OriginalOffset:    msg.Offset,
		OriginalKey:       string(msg.Key),
		OriginalValue:     string(msg.Value),
		ErrorMessage:      cause.Error(),
		FailedAt:          failedAt,
		RetryCount:        attempts,
	}
	err := c.dlq.PublishEvent(TopicDeadLetterQueue, string(msg.Key), letter,
		sarama.RecordHeader{Key: []byte(HeaderOriginalTopic), Value: []byte(msg.Topic)},
		sarama.RecordHeader{Key: []byte(HeaderErrorMessage), Value: []byte(cause.Error())},
		sarama.RecordHeader{Key: []byte(HeaderFailedAt), Value: []byte(failedAt)},
		sarama.RecordHeader{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(attempts))},
	)
	if err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	c.logger.WithFields(log.Fields{
		"topic":    msg.Topic,
		"offset":   msg.Offset,
		"attempts": attempts,
	}).Warn("message moved to DLQ")
	return nil
}

// retryCount читает x-retry-count, выставленный при повторной публикации.
func retryCount(msg *sarama.ConsumerMessage) int {
	for _, h := range msg.Headers {
		if h == nil || string(h.Key) != HeaderRetryCount {
			continue
		}
		if n, err := strconv.Atoi(string(h.Value)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
