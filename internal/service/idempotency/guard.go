package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

const defaultTTL = 24 * time.Hour

var replays = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "store_checkout_idempotent_replays_total",
	Help: "Checkout requests answered from the idempotency store, by stored status.",
}, []string{"status"})

// Reply — ответ, который отдаётся повторно по тому же ключу.
type Reply struct {
	Status int
	Body   []byte
}

// Guard выполняет запрос один раз на ключ клиента и запоминает ответ.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	now    func() time.Time
	logger *log.Entry
}

// NewGuard создаёт Guard. ttl <= 0 означает сутки.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Guard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = log.New().WithField("component", "checkout-idempotency")
	}
	return &Guard{
		repo:   repo,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// HashRequest строит отпечаток запроса из его частей.
func HashRequest(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Do вызывает fn, если ключ новый, и сохраняет ответ. Для известного ключа
// возвращает сохранённый ответ и replayed=true. Ответы 4xx сохраняются и
// повторяются; после 5xx или паники в fn ключ освобождается для повтора.
func (g *Guard) Do(key, requestHash string, fn func() Reply) (reply Reply, replayed bool, err error) {
	record, err := g.repo.CreateProcessing(key, requestHash, g.now().Add(g.ttl))
	if err != nil {
		return g.replay(record, err)
	}

	defer func() {
		if p := recover(); p != nil {
			g.release(record.Key, "panic")
			panic(p)
		}
	}()
	reply = fn()

	if reply.Status >= 500 {
		g.release(record.Key, "server error")
		return reply, false, nil
	}
	mark := g.repo.MarkDone
	if reply.Status >= 400 {
		mark = g.repo.MarkFailed
	}
	if err := mark(record.Key, reply.Body, reply.Status); err != nil {
		g.logger.WithError(err).WithField("idempotency_key", record.Key).Warn("failed to store checkout reply")
	}
	return reply, false, nil
}

func (g *Guard) release(key, reason string) {
	logger := g.logger.WithFields(log.Fields{"idempotency_key": key, "reason": reason})
	if err := g.repo.DeleteProcessing(key); err != nil {
		logger.WithError(err).Warn("failed to release idempotency key")
		return
	}
	logger.Info("idempotency key released")
}

func (g *Guard) replay(record domain.IdempotencyRecord, createErr error) (Reply, bool, error) {
	if !errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists) {
		return Reply{}, false, createErr
	}
	switch record.Status {
	case domain.IdempotencyStatusProcessing:
		return Reply{}, false, domain.ErrIdempotencyInProgress
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		replays.WithLabelValues(string(record.Status)).Inc()
		g.logger.WithFields(log.Fields{
			"idempotency_key": record.Key,
			"status":          record.HTTPStatus,
		}).Info("checkout replayed from idempotency store")
		return Reply{Status: record.HTTPStatus, Body: record.ResponseBody}, true, nil
	default:
		return Reply{}, false, fmt.Errorf("unknown idempotency status %q", record.Status)
	}
}
