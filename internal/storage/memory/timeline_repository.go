package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

type timelineRepositoryInMemory struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.TimelineEvent
	now     func() time.Time
}

func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{
		byOrder: make(map[string][]domain.TimelineEvent),
		now:     time.Now,
	}
}

// Append вставляет событие по времени; события с одинаковым временем идут в порядке добавления.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	if event.Occurred.IsZero() {
		event.Occurred = r.now()
	}
	event.Occurred = event.Occurred.UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.byOrder[event.OrderID]
	at := len(history)
	for at > 0 && history[at-1].Occurred.After(event.Occurred) {
		at--
	}
	r.byOrder[event.OrderID] = slices.Insert(history, at, event)
	return nil
}

func (r *timelineRepositoryInMemory) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if history := r.byOrder[orderID]; len(history) > 0 {
		return slices.Clone(history), nil
	}
	return []domain.TimelineEvent{}, nil
}
