package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/textilestore/internal/health"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("test", "metrics-server")
}

// waitHTTP опрашивает url, пока сервер не начнёт отвечать.
func waitHTTP(t *testing.T, url string) *http.Response {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s did not come up: %v", url, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestMetricsServer_Endpoints(t *testing.T) {
	port := findFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := healthcheck.NewHandler("test")
	var dbUp atomic.Bool
	dbUp.Store(true)
	health.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
		if dbUp.Load() {
			return nil
		}
		return errors.New("connection refused")
	}))
	startMetricsServer(ctx, fmt.Sprintf("127.0.0.1:%d", port), quietLogger(), health)

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitHTTP(t, base+"/livez").Body.Close()

	cases := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/metrics", http.StatusOK, "go_goroutines"},
		{"/healthz", http.StatusOK, `"status":"healthy"`},
		{"/readyz", http.StatusOK, "ready"},
		{"/livez", http.StatusOK, "ok"},
	}
	for _, tc := range cases {
		resp, err := http.Get(base + tc.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tc.wantCode {
			t.Errorf("%s: expected %d, got %d", tc.path, tc.wantCode, resp.StatusCode)
		}
		if !strings.Contains(string(body), tc.contains) {
			t.Errorf("%s: body %q does not contain %q", tc.path, body, tc.contains)
		}
	}

	dbUp.Store(false)
	resp, err := http.Get(base + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz must fail without postgres, got %d", resp.StatusCode)
	}
}

func TestMetricsServer_StopsOnCancel(t *testing.T) {
	port := findFreePort(t)
	ctx, cancel := context.WithCancel(context.Background())

	srv := startMetricsServer(ctx, fmt.Sprintf("127.0.0.1:%d", port), quietLogger(), healthcheck.NewHandler("test"))
	if srv == nil {
		t.Fatal("expected server")
	}
	url := fmt.Sprintf("http://127.0.0.1:%d/livez", port)
	waitHTTP(t, url).Body.Close()

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err != nil {
			return
		}
		resp.Body.Close()
		if time.Now().After(deadline) {
			t.Fatal("metrics server still serving after cancel")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestMetricsServer_PortBusy(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ошибка ListenAndServe только логируется
	if srv := startMetricsServer(ctx, busy.Addr().String(), quietLogger(), healthcheck.NewHandler("test")); srv == nil {
		t.Fatal("expected server even when the port is busy")
	}
}

func TestShutdownHTTP(t *testing.T) {
	shutdownHTTP(nil, quietLogger())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(healthcheck.LivenessHandler), ReadHeaderTimeout: time.Second}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(lis) }()

	waitHTTP(t, "http://"+lis.Addr().String()).Body.Close()
	shutdownHTTP(srv, quietLogger())

	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("unexpected serve error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func findFreePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}
