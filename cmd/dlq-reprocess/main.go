package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/textilestore/internal/service/outbox"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
	// Фильтры; пустое значение пропускает всё.
	eventType string
	orderID   string
}

// replayMessage — сообщение, которое будет возвращено в рабочий topic.
type replayMessage struct {
	topic     string
	key       string
	eventType string
	value     json.RawMessage
}

var errSkip = errors.New("not a replay candidate")

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

// publisher — часть kafka.Producer, которой достаточно для повторной публикации.
type publisher interface {
	PublishEvent(topic, key string, event any, headers ...sarama.RecordHeader) error
	Close() error
}

type saramaSource struct {
	consumer sarama.Consumer
}

func (s saramaSource) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	return s.consumer.ConsumePartition(topic, partition, offset)
}

func (s saramaSource) Close() error { return s.consumer.Close() }

var connect = func(cfg config) (offsetClient, partitionSource, publisher, error) {
	sc := sarama.NewConfig()
	sc.ClientID = "textilestore-dlq-reprocess"
	sc.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, sc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if !cfg.execute {
		return client, saramaSource{consumer: consumer}, nil, nil
	}

	producer, err := kafka.NewProducer(cfg.brokers, kafka.WithClientID("textilestore-dlq-reprocess"))
	if err != nil {
		_ = consumer.Close()
		_ = client.Close()
		return nil, nil, nil, err
	}
	return client, saramaSource{consumer: consumer}, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := run(ctx, cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func parseConfig(args []string, getenv func(string) string) (config, error) {
	var (
		cfg     config
		brokers string
	)
	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.StringVar(&brokers, "brokers", "", "Kafka brokers, comma-separated (fallback: KAFKA_BROKERS)")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ topic to scan")
	fs.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicOrderEvents, "topic for outbox records without an original topic")
	fs.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of DLQ messages to scan")
	fs.BoolVar(&cfg.execute, "execute", false, "publish replayed messages; default is dry-run")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "scan the latest messages of each partition")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "stop reading a partition after this idle time")
	fs.StringVar(&cfg.eventType, "event-type", "", "replay only this event type, e.g. order.placed")
	fs.StringVar(&cfg.orderID, "order-id", "", "replay only events of this order")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokers) == "" {
		brokers = getenv("KAFKA_BROKERS")
	}
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.brokers = append(cfg.brokers, b)
		}
	}

	switch {
	case len(cfg.brokers) == 0:
		return config{}, errors.New("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	case strings.TrimSpace(cfg.sourceTopic) == "":
		return config{}, errors.New("source-topic is required")
	case strings.TrimSpace(cfg.targetTopic) == "":
		return config{}, errors.New("target-topic is required")
	case cfg.limit <= 0:
		return config{}, errors.New("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return config{}, errors.New("idle-timeout must be > 0")
	}
	cfg.eventType = strings.TrimSpace(cfg.eventType)
	cfg.orderID = strings.TrimSpace(cfg.orderID)
	return cfg, nil
}

func run(ctx context.Context, cfg config) error {
	client, source, pub, err := connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if pub != nil {
			_ = pub.Close()
		}
		_ = source.Close()
		_ = client.Close()
	}()

	stats, err := replay(ctx, cfg, client, source, pub)
	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  stats.scanned,
		"replayed": stats.replayed,
		"skipped":  stats.skipped,
		"filtered": stats.filtered,
		"source":   cfg.sourceTopic,
		"event":    cfg.eventType,
		"order_id": cfg.orderID,
	}).Info("dlq replay finished")
	return err
}

type replayStats struct {
	scanned  int
	replayed int
	skipped  int
	filtered int
}

func (s *replayStats) add(o replayStats) {
	s.scanned += o.scanned
	s.replayed += o.replayed
	s.skipped += o.skipped
	s.filtered += o.filtered
}

func replay(ctx context.Context, cfg config, client offsetClient, source partitionSource, pub publisher) (replayStats, error) {
	var total replayStats
	if cfg.execute && pub == nil {
		return total, errors.New("publisher is required in execute mode")
	}

	partitions, err := client.Partitions(cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("list partitions of %s: %w", cfg.sourceTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, p := range partitions {
		if total.scanned >= cfg.limit {
			break
		}
		stats, err := replayPartition(ctx, cfg, client, source, pub, p, cfg.limit-total.scanned)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func replayPartition(ctx context.Context, cfg config, client offsetClient, source partitionSource, pub publisher, partition int32, limit int) (replayStats, error) {
	var stats replayStats

	oldest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("oldest offset of partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("newest offset of partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if cfg.fromNewest {
		start = max(newest-int64(limit), oldest)
	}

	pc, err := source.ConsumePartition(cfg.sourceTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(cfg.idleTimeout)
	defer idle.Stop()

	for stats.scanned < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-idle.C:
			return stats, nil
		case cerr := <-pc.Errors():
			if cerr != nil {
				return stats, fmt.Errorf("partition %d: %w", partition, cerr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			idle.Reset(cfg.idleTimeout)
			stats.scanned++

			fields := log.Fields{"partition": msg.Partition, "offset": msg.Offset}
			rm, err := decodeDeadLetter(msg, cfg.targetTopic)
			if err != nil {
				stats.skipped++
				if !errors.Is(err, errSkip) {
					log.WithError(err).WithFields(fields).Warn("skip malformed dlq message")
				}
				continue
			}
			if !cfg.matches(rm) {
				stats.filtered++
				continue
			}

			fields["target_topic"] = rm.topic
			fields["key"] = rm.key
			fields["event_type"] = rm.eventType
			if cfg.execute {
				if err := pub.PublishEvent(rm.topic, rm.key, rm.value, sarama.RecordHeader{
					Key:   []byte(kafka.HeaderEventType),
					Value: []byte(rm.eventType),
				}); err != nil {
					return stats, fmt.Errorf("replay offset %d: %w", msg.Offset, err)
				}
				log.WithFields(fields).Info("dlq message replayed")
			} else {
				log.WithFields(fields).Info("dlq replay candidate")
			}
			stats.replayed++

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}
	return stats, nil
}

func (c config) matches(rm replayMessage) bool {
	if c.eventType != "" && rm.eventType != c.eventType {
		return false
	}
	if c.orderID != "" && rm.key != c.orderID {
		return false
	}
	return true
}

// decodeDeadLetter распознаёт два формата DLQ: запись consumer'а
// (kafka.DeadLetter) и конверт outbox с outbox.DeadLetter внутри.
func decodeDeadLetter(msg *sarama.ConsumerMessage, defaultTopic string) (replayMessage, error) {
	var dl kafka.DeadLetter
	if err := json.Unmarshal(msg.Value, &dl); err == nil && dl.OriginalValue != "" {
		if !json.Valid([]byte(dl.OriginalValue)) {
			return replayMessage{}, errors.New("original value is not valid JSON")
		}
		topic := strings.TrimSpace(dl.OriginalTopic)
		if topic == "" {
			topic = defaultTopic
		}
		rm := replayMessage{topic: topic, key: dl.OriginalKey, value: json.RawMessage(dl.OriginalValue)}
		var env kafka.Envelope
		if json.Unmarshal(rm.value, &env) == nil {
			rm.eventType = env.EventType
		}
		return rm, nil
	}

	var env kafka.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil || len(env.Payload) == 0 {
		return replayMessage{}, errSkip
	}
	var record outbox.DeadLetter
	if err := json.Unmarshal(env.Payload, &record); err != nil {
		return replayMessage{}, fmt.Errorf("decode outbox dead letter: %w", err)
	}
	if len(record.Event) == 0 {
		return replayMessage{}, errors.New("outbox dead letter has no event payload")
	}

	replayed := kafka.Envelope{
		ID:            firstNonEmpty(record.OutboxID, env.ID),
		AggregateType: firstNonEmpty(env.AggregateType, domain.AggregateOrder),
		AggregateID:   firstNonEmpty(record.OrderID, env.AggregateID),
		EventType:     firstNonEmpty(record.EventType, env.EventType),
		Payload:       record.Event,
		PublishedAt:   time.Now().UTC(),
	}
	value, err := json.Marshal(replayed)
	if err != nil {
		return replayMessage{}, fmt.Errorf("encode envelope: %w", err)
	}
	return replayMessage{
		topic:     defaultTopic,
		key:       firstNonEmpty(replayed.AggregateID, replayed.ID),
		eventType: replayed.EventType,
		value:     value,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
