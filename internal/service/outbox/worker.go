package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
	defaultMaxAttempts  = 3
	defaultRetryDelay   = 50 * time.Millisecond
	maxRetryDelay       = 30 * time.Second
)

var (
	publishResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_outbox_publish_attempts_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"result"})
	pendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "store_outbox_pending_records",
		Help: "Order events waiting in the outbox.",
	})
	oldestPendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "store_outbox_oldest_pending_age_seconds",
		Help: "Age of the oldest pending order event.",
	})
)

// Option настраивает Worker.
type Option func(*Worker)

func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDLQPublisher задаёт, куда уходят события после последней неудачной попытки.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(w *Worker) { w.dlq = publisher }
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithMaxAttempts(attempts int) Option {
	return func(w *Worker) {
		if attempts > 0 {
			w.maxAttempts = attempts
		}
	}
}

// WithRetryBaseDelay задаёт первую паузу между попытками; дальше она удваивается.
// Ноль отключает паузы.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(w *Worker) {
		if delay >= 0 {
			w.retryDelay = delay
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// Batch — итог одного прохода по outbox.
type Batch struct {
	Sent         int
	Failed       int
	DeadLettered int
}

// Worker доставляет события заявок из outbox брокеру.
type Worker struct {
	repo         domain.OutboxRepository
	publisher    domain.OutboxPublisher
	dlq          domain.OutboxPublisher
	logger       *log.Entry
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	retryDelay   time.Duration
	now          func() time.Time
}

func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, opts ...Option) *Worker {
	w := &Worker{
		repo:         repo,
		publisher:    publisher,
		logger:       log.WithField("component", "outbox-worker"),
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		maxAttempts:  defaultMaxAttempts,
		retryDelay:   defaultRetryDelay,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run обрабатывает outbox сразу и затем раз в pollInterval до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker disabled: no repository or publisher")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		w.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce забирает до batchSize ожидающих событий и публикует их по порядку.
// Событие, исчерпавшее попытки, помечается failed и, если задан DLQ, копируется туда.
func (w *Worker) ProcessOnce(ctx context.Context) Batch {
	var batch Batch
	if ctx.Err() != nil {
		return batch
	}
	defer w.observeBacklog()

	events, err := w.repo.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending order events")
		return batch
	}

	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		fields := log.Fields{"outbox_id": event.ID, "order_id": event.AggregateID, "event_type": event.EventType}

		if err := w.deliver(ctx, event); err != nil {
			batch.Failed++
			publishResults.WithLabelValues("failed").Inc()
			w.logger.WithError(err).WithFields(fields).Error("order event not delivered")

			if w.deadLetter(event, err) {
				batch.DeadLettered++
			}
			if err := w.repo.MarkFailed(event.ID); err != nil {
				w.logger.WithError(err).WithFields(fields).Warn("failed to mark order event failed")
			}
			continue
		}

		batch.Sent++
		if err := w.repo.MarkSent(event.ID); err != nil {
			w.logger.WithError(err).WithFields(fields).Warn("failed to mark order event sent")
		}
	}

	if batch.Sent+batch.Failed > 0 {
		w.logger.WithFields(log.Fields{
			"sent":          batch.Sent,
			"failed":        batch.Failed,
			"dead_lettered": batch.DeadLettered,
		}).Debug("outbox batch processed")
	}
	return batch
}

// deliver делает до maxAttempts попыток публикации с растущей паузой.
func (w *Worker) deliver(ctx context.Context, event domain.OutboxMessage) error {
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err = w.publisher.Publish(event); err == nil {
			publishResults.WithLabelValues("sent").Inc()
			return nil
		}
		publishResults.WithLabelValues("retry_error").Inc()
		if attempt == w.maxAttempts {
			break
		}
		if pause := backoff(w.retryDelay, attempt); pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause):
			}
		}
	}
	return fmt.Errorf("publish %s after %d attempts: %w", event.EventType, w.maxAttempts, err)
}

// backoff возвращает base*2^(attempt-1), но не больше maxRetryDelay.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

func (w *Worker) observeBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to read outbox stats")
		return
	}
	pendingGauge.Set(float64(stats.PendingCount))

	oldestPendingGauge.Set(stats.OldestAge(w.now()).Seconds())
}

// DeadLetter — тело сообщения в DLQ: исходное событие и причина отказа.
// Его же разбирает cmd/dlq-reprocess.
type DeadLetter struct {
	OutboxID  string          `json:"outbox_id"`
	OrderID   string          `json:"order_id"`
	EventType string          `json:"event_type"`
	Event     json.RawMessage `json:"event"`
	Reason    string          `json:"reason"`
	Attempts  int             `json:"attempts"`
	GivenUpAt time.Time       `json:"given_up_at"`
}

// deadLetter копирует событие в DLQ и сообщает, удалось ли это.
func (w *Worker) deadLetter(event domain.OutboxMessage, cause error) bool {
	if w.dlq == nil {
		return false
	}
	body, err := json.Marshal(DeadLetter{
		OutboxID:  event.ID,
		OrderID:   event.AggregateID,
		EventType: event.EventType,
		Event:     json.RawMessage(event.Payload),
		Reason:    cause.Error(),
		Attempts:  w.maxAttempts,
		GivenUpAt: w.now().UTC(),
	})
	if err == nil {
		letter := event
		letter.Payload = body
		err = w.dlq.Publish(letter)
	}
	if err != nil {
		publishResults.WithLabelValues("dlq_failed").Inc()
		w.logger.WithError(err).WithField("outbox_id", event.ID).Warn("failed to dead-letter order event")
		return false
	}
	return true
}
