package memory

import (
	"cmp"
	"slices"
	"sync"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

// orderRepositoryInMemory держит заявки в map; наружу отдаются только копии.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{orders: make(map[string]domain.Order)}
}

// Create отвечает ErrOrderVersionConflict на повторный ID, как уникальный ключ в postgres.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.orders[order.ID]; taken {
		return domain.ErrOrderVersionConflict
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if order, ok := r.orders[id]; ok {
		return cloneOrder(order), nil
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

// List отдаёт новые заявки первыми; при равном времени больший ID раньше.
func (r *orderRepositoryInMemory) List(status domain.OrderStatus, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	var out []domain.Order
	for _, order := range r.orders {
		if status == "" || order.Status == status {
			out = append(out, cloneOrder(order))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 {
		out = out[:min(limit, len(out))]
	}
	if out == nil {
		out = []domain.Order{}
	}
	return out, nil
}

// Save принимает заявку только с той версией, что лежит в хранилище, и увеличивает её.
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	switch {
	case !ok:
		return domain.ErrOrderNotFound
	case stored.Version != order.Version:
		return domain.ErrOrderVersionConflict
	}
	order.Version++
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	order.Items = slices.Clone(order.Items)
	return order
}
