package health

import (
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

// BacklogChecker переводит сервис в degraded, когда самое старое
// pending-сообщение outbox ждёт дольше maxAge.
type BacklogChecker struct {
	name   string
	stats  func() (domain.OutboxStats, error)
	maxAge time.Duration
	now    func() time.Time
}

func NewBacklogChecker(name string, stats func() (domain.OutboxStats, error), maxAge time.Duration) *BacklogChecker {
	return &BacklogChecker{name: name, stats: stats, maxAge: maxAge, now: time.Now}
}

func (c *BacklogChecker) Check() Check {
	start := c.now()
	stats, err := c.stats()
	check := Check{Name: c.name, Status: StatusHealthy, DurationMs: c.now().Sub(start).Milliseconds()}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
		return check
	}

	var notes []string
	if age := stats.OldestAge(c.now()); age > c.maxAge {
		check.Status = StatusDegraded
		notes = append(notes, fmt.Sprintf("%d pending, oldest %s", stats.PendingCount, age.Truncate(time.Second)))
	}
	// failed-сообщения уже в DLQ; о них сообщаем, но статус не трогаем
	if stats.FailedCount > 0 {
		notes = append(notes, fmt.Sprintf("%d failed", stats.FailedCount))
	}
	check.Message = strings.Join(notes, "; ")
	return check
}
