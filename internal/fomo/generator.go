package fomo

import (
	"sync"
	"time"
)

// Cities — фиксированный список городов для сигнала о слотах.
var Cities = []string{"Surat", "Ahmedabad", "Mumbai", "Jaipur", "Kolkata"}

const (
	lowStockBuckets  = 7
	maxBelievableLow = 5
	finalRunHour     = 18

	perkPoolTotal = 50
	perkPoolKey   = "perk-pool"
)

// CitySlots — сколько слотов отгрузки в город уже занято.
type CitySlots struct {
	City  string `json:"city"`
	Taken int    `json:"taken"`
	Total int    `json:"total"`
}

// CatalogFomo — набор маркетинговых сигналов для каталога.
// Пустое поле означает, что сигнал скрыт.
type CatalogFomo struct {
	FinalRunDate      *time.Time `json:"final_run_date,omitempty"`
	LowStockSets      *int       `json:"low_stock_sets,omitempty"`
	RecentInterest    *int       `json:"recent_interest,omitempty"`
	QueueSize         *int       `json:"queue_size,omitempty"`
	CitySlots         *CitySlots `json:"city_slots,omitempty"`
	ConcurrentViewers *int       `json:"concurrent_viewers,omitempty"`
}

// PerkPool — остаток бонусов для первых покупателей.
type PerkPool struct {
	Total int `json:"total"`
	Left  int `json:"left"`
}

// Generator синтезирует стабильные для ключа сигналы без хранилища.
// Единственная зависимость от окружения — часы.
type Generator struct {
	now func() time.Time

	perkOnce sync.Once
	perks    PerkPool
}

// NewGenerator создаёт генератор; nil now означает time.Now.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// CatalogFomo вычисляет сигналы для key. Порядок выборок фиксирован:
// каждая выборка сдвигает общее состояние генератора.
func (g *Generator) CatalogFomo(key string) CatalogFomo {
	r := NewRand(key)
	var out CatalogFomo

	lowStock := intn(r, lowStockBuckets)
	if lowStock <= maxBelievableLow {
		out.LowStockSets = &lowStock
	}

	daysOut := 7 + intn(r, 14)
	today := NowIST(g.now())
	finalRun := time.Date(today.Year(), today.Month(), today.Day()+daysOut, finalRunHour, 0, 0, 0, IST)
	out.FinalRunDate = &finalRun

	recent := 10 + intn(r, 50)
	out.RecentInterest = &recent

	queue := intn(r, 31)
	out.QueueSize = &queue

	city := Cities[intn(r, len(Cities))]
	total := 5 + intn(r, 4)
	taken := 1 + intn(r, total-1)
	out.CitySlots = &CitySlots{City: city, Taken: taken, Total: total}

	viewers := 3 + intn(r, 22)
	out.ConcurrentViewers = &viewers

	return out
}

// PerkPool возвращает размер пула и остаток. Использованная часть
// вычисляется один раз за процесс.
func (g *Generator) PerkPool() PerkPool {
	g.perkOnce.Do(func() {
		used := 20 + intn(NewRand(perkPoolKey), 25)
		g.perks = PerkPool{Total: perkPoolTotal, Left: perkPoolTotal - used}
	})
	return g.perks
}

// NextWeeklyCutoff возвращает ближайший дедлайн weekday hour:minute по IST.
func (g *Generator) NextWeeklyCutoff(hour, minute int, weekday time.Weekday) DispatchCutoff {
	return nextWeeklyCutoff(g.now(), hour, minute, weekday)
}

// Countdown считает время до target относительно текущих часов.
func (g *Generator) Countdown(target time.Time) Countdown {
	return countdown(g.now(), target)
}
