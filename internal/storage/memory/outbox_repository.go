package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

const defaultPullLimit = 100

type outboxState uint8

const (
	outboxPending outboxState = iota
	outboxSent
	outboxFailed
)

type outboxEntry struct {
	msg      domain.OutboxMessage
	state    outboxState
	queuedAt time.Time
}

// OutboxRepository держит события в порядке постановки; этот порядок и есть порядок отправки.
type OutboxRepository struct {
	mu      sync.RWMutex
	entries []*outboxEntry
	byID    map[string]*outboxEntry
	now     func() time.Time
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{byID: make(map[string]*outboxEntry), now: time.Now}
}

// Enqueue ставит событие в очередь. Повтор с тем же ID заменяет событие и возвращает его в pending.
func (r *OutboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Payload = append([]byte(nil), msg.Payload...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byID[msg.ID]; ok {
		e.msg, e.state = msg, outboxPending
		return msg, nil
	}
	e := &outboxEntry{msg: msg, queuedAt: r.now().UTC()}
	r.entries = append(r.entries, e)
	r.byID[msg.ID] = e
	return msg, nil
}

func (r *OutboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultPullLimit
	}
	return r.pending(limit), nil
}

func (r *OutboxRepository) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, e := range r.entries {
		switch e.state {
		case outboxPending:
			if stats.PendingCount == 0 {
				stats.OldestPendingAt = e.queuedAt
			}
			stats.PendingCount++
		case outboxFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (r *OutboxRepository) MarkSent(id string) error   { return r.set(id, outboxSent) }
func (r *OutboxRepository) MarkFailed(id string) error { return r.set(id, outboxFailed) }

// AllPending — вся очередь без лимита.
func (r *OutboxRepository) AllPending() []domain.OutboxMessage {
	return r.pending(-1)
}

func (r *OutboxRepository) set(id string, state outboxState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: outbox message %s not found", domain.ErrOutboxPublish, id)
	}
	e.state = state
	return nil
}

// pending копирует до limit ожидающих событий; limit < 0 снимает ограничение.
func (r *OutboxRepository) pending(limit int) []domain.OutboxMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.OutboxMessage{}
	for _, e := range r.entries {
		if limit >= 0 && len(out) == limit {
			break
		}
		if e.state == outboxPending {
			out = append(out, e.msg)
		}
	}
	return out
}
