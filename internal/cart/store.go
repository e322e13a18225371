package cart

import (
	"sync"
	"time"
)

// Observer получает уведомление о каждом применённом action (метрики, логи).
type Observer func(action Action)

// Store держит состояние корзины одной сессии.
// Все изменения проходят через Reduce.
type Store struct {
	mu       sync.Mutex
	state    State
	touched  time.Time
	observer Observer
	now      func() time.Time
}

// NewStore создаёт пустую закрытую корзину.
func NewStore() *Store {
	return newStore(time.Now, nil)
}

func newStore(now func() time.Time, observer Observer) *Store {
	return &Store{
		state:    State{Items: []CartItem{}},
		touched:  now(),
		observer: observer,
		now:      now,
	}
}

// Dispatch применяет action и возвращает новое состояние.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	s.touched = s.now()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(action)
	}
	return snapshot
}

func (s *Store) AddItem(item CartItem) State {
	return s.Dispatch(AddItem{Item: item})
}

func (s *Store) RemoveItem(id string) State {
	return s.Dispatch(RemoveItem{ID: id})
}

func (s *Store) UpdateQuantity(id string, quantity int32) State {
	return s.Dispatch(UpdateQuantity{ID: id, Quantity: quantity})
}

func (s *Store) ClearCart() State {
	return s.Dispatch(ClearCart{})
}

func (s *Store) SetOpen(open bool) State {
	return s.Dispatch(SetOpen{Open: open})
}

// Deduct вычитает оформленные позиции из корзины под одной блокировкой.
// Позиции и количество, добавленные после снимка items, остаются в корзине.
func (s *Store) Deduct(items []CartItem) State {
	s.mu.Lock()
	applied := make([]Action, 0, len(items))
	for _, item := range items {
		current, ok := Find(s.state, item.ID)
		if !ok {
			continue
		}
		var action Action = RemoveItem{ID: item.ID}
		if left := current.Quantity - item.Quantity; left > 0 {
			action = UpdateQuantity{ID: item.ID, Quantity: left}
		}
		s.state = Reduce(s.state, action)
		applied = append(applied, action)
	}
	s.touched = s.now()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if s.observer != nil {
		for _, action := range applied {
			s.observer(action)
		}
	}
	return snapshot
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// TotalItems возвращает суммарное количество единиц в корзине.
func (s *Store) TotalItems() int64 {
	return TotalItems(s.Snapshot())
}

// TotalPrice возвращает сумму корзины в минимальных единицах.
func (s *Store) TotalPrice() int64 {
	return TotalPrice(s.Snapshot())
}

func (s *Store) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func (s *Store) snapshotLocked() State {
	return State{Items: cloneItems(s.state.Items), IsOpen: s.state.IsOpen}
}
