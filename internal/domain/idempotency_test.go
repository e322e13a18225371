package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIdempotencyStatus(t *testing.T) {
	for _, s := range []IdempotencyStatus{IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed} {
		require.True(t, s.Valid(), s)
	}
	require.False(t, IdempotencyStatus("replayed").Valid())
	require.False(t, IdempotencyStatus("").Valid())
}

func TestIdempotencyRecordExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.False(t, IdempotencyRecord{}.Expired(now), "no ttl means keep")
	require.True(t, IdempotencyRecord{TTLAt: now}.Expired(now))
	require.True(t, IdempotencyRecord{TTLAt: now.Add(-time.Hour)}.Expired(now))
	require.False(t, IdempotencyRecord{TTLAt: now.Add(time.Second)}.Expired(now))
}
