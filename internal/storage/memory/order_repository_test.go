package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/storage/memory"
)

func newOrder(id string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:           id,
		CustomerName: "Meera Fabrics",
		Phone:        "+919811111111",
		Status:       domain.OrderStatusNew,
		Currency:     domain.DefaultCurrency,
		AmountMinor:  500,
		Items: []domain.OrderItem{
			{ID: "item-1", ProductID: "p-1", Name: "Chiffon", Qty: 5, PriceMinor: 100, MOQ: 5, CreatedAt: createdAt},
		},
		Version:   0,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", time.Now().UTC())

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != order.ID {
		t.Fatalf("expected id %s, got %s", order.ID, stored.ID)
	}

	stored.Items[0].Qty = 99
	again, _ := repo.Get(order.ID)
	if again.Items[0].Qty != 5 {
		t.Fatal("stored order must not share items with callers")
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListFiltersAndOrders(t *testing.T) {
	repo := memory.NewOrderRepository()
	base := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"o-1", "o-2", "o-3"} {
		order := newOrder(id, base.Add(time.Duration(i)*time.Minute))
		if id == "o-2" {
			order.Status = domain.OrderStatusContacted
		}
		if err := repo.Create(order); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	all, err := repo.List("", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "o-3" || all[2].ID != "o-1" {
		t.Fatalf("expected newest first, got %v", all)
	}

	newOnly, _ := repo.List(domain.OrderStatusNew, 1)
	if len(newOnly) != 1 || newOnly[0].ID != "o-3" {
		t.Fatalf("unexpected filtered list: %v", newOnly)
	}
}

func TestOrderRepository_Save(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", time.Now().UTC())
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	stored.Status = domain.OrderStatusContacted
	if err := repo.Save(stored); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	updated, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if updated.Status != domain.OrderStatusContacted {
		t.Fatalf("expected status contacted, got %s", updated.Status)
	}
	if updated.Version != stored.Version+1 {
		t.Fatalf("expected version increment, got %d", updated.Version)
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", time.Now().UTC())
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	order.Version = 42
	if err := repo.Save(order); !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict error, got %v", err)
	}
}
