package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

type fixedChecker Check

func (c fixedChecker) Check() Check { return Check(c) }

func get(t *testing.T, h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_WorstStatusWins(t *testing.T) {
	cases := map[string]struct {
		statuses  []Status
		want      Status
		wantCode  int
		wantReady int
	}{
		"no checks":      {nil, StatusHealthy, http.StatusOK, http.StatusOK},
		"all healthy":    {[]Status{StatusHealthy, StatusHealthy}, StatusHealthy, http.StatusOK, http.StatusOK},
		"one degraded":   {[]Status{StatusHealthy, StatusDegraded}, StatusDegraded, http.StatusOK, http.StatusOK},
		"one unhealthy":  {[]Status{StatusDegraded, StatusUnhealthy}, StatusUnhealthy, http.StatusServiceUnavailable, http.StatusServiceUnavailable},
		"unknown status": {[]Status{"maintenance"}, StatusHealthy, http.StatusOK, http.StatusOK},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewHandler("v1.2.0")
			for i, s := range tc.statuses {
				name := string(rune('a' + i))
				h.RegisterChecker(name, fixedChecker{Name: name, Status: s})
			}

			rec := get(t, h.ServeHTTP, "/healthz")
			require.Equal(t, tc.wantCode, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.Equal(t, tc.want, resp.Status)
			require.Equal(t, "v1.2.0", resp.Version)
			require.Len(t, resp.Checks, len(tc.statuses))

			require.Equal(t, tc.wantReady, get(t, h.ReadinessHandler, "/readyz").Code)
		})
	}
}

func TestHandler_RegisterReplaces(t *testing.T) {
	h := NewHandler("dev")
	h.RegisterChecker("postgres", fixedChecker{Name: "postgres", Status: StatusUnhealthy})
	h.RegisterChecker("postgres", fixedChecker{Name: "postgres", Status: StatusHealthy})

	resp := h.Evaluate()
	require.Equal(t, StatusHealthy, resp.Status)
	require.Len(t, resp.Checks, 1)
}

func TestLivenessHandler(t *testing.T) {
	rec := get(t, LivenessHandler, "/livez")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestSimpleChecker(t *testing.T) {
	ok := NewSimpleChecker("postgres", func() error { return nil }).Check()
	require.Equal(t, StatusHealthy, ok.Status)
	require.Empty(t, ok.Message)

	down := NewSimpleChecker("postgres", func() error { return errors.New("connection refused") }).Check()
	require.Equal(t, StatusUnhealthy, down.Status)
	require.Equal(t, "connection refused", down.Message)
	require.Equal(t, "postgres", down.Name)
}

func TestBacklogChecker(t *testing.T) {
	now := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	stats := domain.OutboxStats{}
	checker := NewBacklogChecker("outbox", func() (domain.OutboxStats, error) { return stats, nil }, time.Minute)
	checker.now = func() time.Time { return now }

	require.Equal(t, StatusHealthy, checker.Check().Status)

	stats = domain.OutboxStats{PendingCount: 3, OldestPendingAt: now.Add(-30 * time.Second)}
	require.Equal(t, StatusHealthy, checker.Check().Status)

	stats.OldestPendingAt = now.Add(-5 * time.Minute)
	check := checker.Check()
	require.Equal(t, StatusDegraded, check.Status)
	require.Equal(t, "3 pending, oldest 5m0s", check.Message)

	stats.FailedCount = 2
	require.Equal(t, "3 pending, oldest 5m0s; 2 failed", checker.Check().Message)

	stats = domain.OutboxStats{FailedCount: 1}
	check = checker.Check()
	require.Equal(t, StatusHealthy, check.Status)
	require.Equal(t, "1 failed", check.Message)

	broken := NewBacklogChecker("outbox", func() (domain.OutboxStats, error) {
		return domain.OutboxStats{}, errors.New("db down")
	}, time.Minute)
	require.Equal(t, StatusUnhealthy, broken.Check().Status)
}
