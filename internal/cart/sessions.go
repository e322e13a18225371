package cart

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultSessionTTL    = 2 * time.Hour
	defaultSweepInterval = time.Minute
)

// Sessions — in-memory реестр корзин, привязанных к сессии.
// Корзины не сохраняются: после Drop или истечения TTL состояние теряется.
type Sessions struct {
	mu       sync.RWMutex
	stores   map[string]*Store
	ttl      time.Duration
	now      func() time.Time
	observer Observer
}

// SessionsOption настраивает реестр.
type SessionsOption func(*Sessions)

// WithTTL задаёт время жизни неактивной корзины.
func WithTTL(ttl time.Duration) SessionsOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver подключает наблюдателя ко всем создаваемым корзинам.
func WithObserver(observer Observer) SessionsOption {
	return func(s *Sessions) {
		s.observer = observer
	}
}

// NewSessions создаёт пустой реестр.
func NewSessions(options ...SessionsOption) *Sessions {
	s := &Sessions{
		stores: make(map[string]*Store),
		ttl:    defaultSessionTTL,
		now:    time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Get возвращает корзину сессии, если она существует.
func (s *Sessions) Get(id string) (*Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	store, ok := s.stores[id]
	return store, ok
}

// GetOrCreate возвращает корзину сессии, создавая пустую при необходимости.
func (s *Sessions) GetOrCreate(id string) *Store {
	if store, ok := s.Get(id); ok {
		return store
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.stores[id]; ok {
		return store
	}
	store := newStore(s.now, s.observer)
	s.stores[id] = store
	return store
}

// Drop завершает сессию и выбрасывает её корзину.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, id)
}

// Len возвращает число активных корзин.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stores)
}

// Sweep удаляет корзины, неактивные дольше TTL, и возвращает их количество.
func (s *Sessions) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, store := range s.stores {
		if now.Sub(store.lastTouched()) > s.ttl {
			delete(s.stores, id)
			removed++
		}
	}
	return removed
}

// RunSweeper периодически вызывает Sweep до отмены ctx.
func (s *Sessions) RunSweeper(ctx context.Context, interval time.Duration, logger *log.Entry) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = log.WithField("component", "cart-sweeper")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(s.now()); removed > 0 {
				logger.WithField("removed", removed).Debug("expired cart sessions dropped")
			}
		}
	}
}
