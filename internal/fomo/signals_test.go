package fomo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestPickSignals(t *testing.T) {
	finalRun := time.Date(2026, 1, 20, 18, 0, 0, 0, IST)

	cases := []struct {
		name        string
		in          CatalogFomo
		wantUrgency SignalKind
		wantProof   SignalKind
	}{
		{
			name: "low stock and recent interest win",
			in: CatalogFomo{
				LowStockSets: intPtr(3), FinalRunDate: &finalRun,
				RecentInterest: intPtr(25), ConcurrentViewers: intPtr(20),
			},
			wantUrgency: SignalLowStock,
			wantProof:   SignalRecentInterest,
		},
		{
			name: "hidden low stock falls back to final run",
			in: CatalogFomo{
				FinalRunDate: &finalRun, RecentInterest: intPtr(0), ConcurrentViewers: intPtr(12),
			},
			wantUrgency: SignalFinalRun,
			wantProof:   SignalConcurrentViewers,
		},
		{
			name: "few viewers hide proof",
			in: CatalogFomo{
				LowStockSets: intPtr(0), ConcurrentViewers: intPtr(7),
			},
			wantUrgency: SignalLowStock,
		},
		{
			name: "nothing to show",
			in:   CatalogFomo{LowStockSets: intPtr(6)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PickSignals(tc.in)
			if tc.wantUrgency == "" {
				require.Nil(t, got.Urgency)
			} else {
				require.NotNil(t, got.Urgency)
				require.Equal(t, tc.wantUrgency, got.Urgency.Kind)
				require.NotEmpty(t, got.Urgency.Text)
			}
			if tc.wantProof == "" {
				require.Nil(t, got.Proof)
			} else {
				require.NotNil(t, got.Proof)
				require.Equal(t, tc.wantProof, got.Proof.Kind)
			}
		})
	}
}

func TestPickSignals_Texts(t *testing.T) {
	got := PickSignals(CatalogFomo{LowStockSets: intPtr(1), RecentInterest: intPtr(14)})
	require.Equal(t, "Only 1 set left", got.Urgency.Text)
	require.Equal(t, "14 retailers enquired this week", got.Proof.Text)

	finalRun := time.Date(2026, 1, 20, 18, 0, 0, 0, IST)
	got = PickSignals(CatalogFomo{FinalRunDate: &finalRun})
	require.Equal(t, "Final production run closes Tue, 20 Jan 2026", got.Urgency.Text)
}
