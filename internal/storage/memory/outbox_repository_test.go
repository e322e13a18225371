package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

func statusEvent(orderID string) domain.OutboxMessage {
	return domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   orderID,
		EventType:     domain.EventOrderStatusChanged,
		Payload:       []byte(`{"status":"confirmed"}`),
	}
}

// steppedClock сдвигает время на секунду при каждом вызове.
func steppedClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func TestOutboxRepository_QueueOrder(t *testing.T) {
	repo := NewOutboxRepository()
	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	repo.now = steppedClock(start)

	var ids []string
	for _, orderID := range []string{"o-1", "o-2", "o-3"} {
		saved, err := repo.Enqueue(statusEvent(orderID))
		require.NoError(t, err)
		require.NotEmpty(t, saved.ID)
		ids = append(ids, saved.ID)
	}

	batch, err := repo.PullPending(2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, ids[:2], []string{batch[0].ID, batch[1].ID})

	require.NoError(t, repo.MarkSent(ids[0]))
	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount)
	require.True(t, stats.OldestPendingAt.Equal(start.Add(time.Second)), "oldest is the second event")

	require.Len(t, repo.AllPending(), 2)
	all, err := repo.PullPending(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestOutboxRepository_FailedAreCountedNotPulled(t *testing.T) {
	repo := NewOutboxRepository()
	saved, err := repo.Enqueue(statusEvent("o-1"))
	require.NoError(t, err)

	require.NoError(t, repo.MarkFailed(saved.ID))
	pending, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Empty(t, pending)

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Equal(t, domain.OutboxStats{FailedCount: 1}, stats)

	require.ErrorIs(t, repo.MarkSent("missing"), domain.ErrOutboxPublish)
}

func TestOutboxRepository_ReenqueueKeepsPosition(t *testing.T) {
	repo := NewOutboxRepository()
	first, err := repo.Enqueue(domain.OutboxMessage{ID: "m-1", AggregateID: "o-1"})
	require.NoError(t, err)
	_, err = repo.Enqueue(domain.OutboxMessage{ID: "m-2", AggregateID: "o-2"})
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailed(first.ID))

	_, err = repo.Enqueue(domain.OutboxMessage{ID: "m-1", AggregateID: "o-1", EventType: "retry"})
	require.NoError(t, err)

	pending := repo.AllPending()
	require.Equal(t, []string{"m-1", "m-2"}, []string{pending[0].ID, pending[1].ID})
	require.Equal(t, "retry", pending[0].EventType)
}

func TestOutboxRepository_CopiesPayload(t *testing.T) {
	repo := NewOutboxRepository()
	msg := statusEvent("o-1")
	_, err := repo.Enqueue(msg)
	require.NoError(t, err)

	msg.Payload[0] = 'X'
	require.JSONEq(t, `{"status":"confirmed"}`, string(repo.AllPending()[0].Payload))
}
