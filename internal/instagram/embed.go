package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultEmbedURL — официальный скрипт встраивания постов.
const DefaultEmbedURL = "https://www.instagram.com/embed.js"

const (
	fetchTimeout   = 10 * time.Second
	maxScriptBytes = 2 << 20
)

// EmbedLoader загружает embed-скрипт один раз за процесс и держит его в памяти.
// Повторные вызовы Ensure во время загрузки не запускают новую загрузку.
// Загруженный скрипт не сбрасывается.
type EmbedLoader struct {
	url    string
	client *http.Client
	logger *log.Entry

	mu        sync.Mutex
	loading   bool
	ready     bool
	script    []byte
	lastErr   error
	callbacks []func()
	// attempt закрывается, когда текущая загрузка завершилась.
	attempt chan struct{}
}

// NewEmbedLoader создаёт загрузчик. Пустой url означает DefaultEmbedURL.
func NewEmbedLoader(url string, client *http.Client, logger *log.Entry) *EmbedLoader {
	if url == "" {
		url = DefaultEmbedURL
	}
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	if logger == nil {
		logger = log.New().WithField("component", "instagram-embed")
	}
	return &EmbedLoader{url: url, client: client, logger: logger}
}

// Ensure сообщает, готов ли скрипт. Если готов, cb вызывается сразу.
// Иначе cb ставится в очередь и будет вызван после загрузки; загрузка
// стартует, если ещё не идёт. При неудачной загрузке очередь отбрасывается,
// следующий Ensure повторяет загрузку.
func (l *EmbedLoader) Ensure(ctx context.Context, cb func()) bool {
	l.mu.Lock()
	if l.ready {
		l.mu.Unlock()
		if cb != nil {
			cb()
		}
		return true
	}
	if cb != nil {
		l.callbacks = append(l.callbacks, cb)
	}
	l.startLocked(ctx)
	l.mu.Unlock()
	return false
}

// startLocked запускает загрузку, если она ещё не идёт, и возвращает канал
// текущей попытки. Вызывается под l.mu.
func (l *EmbedLoader) startLocked(ctx context.Context) <-chan struct{} {
	if l.loading {
		return l.attempt
	}
	l.loading = true
	l.attempt = make(chan struct{})
	go l.load(context.WithoutCancel(ctx), l.attempt)
	return l.attempt
}

// Script возвращает загруженный скрипт.
func (l *EmbedLoader) Script() ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.script, l.ready
}

// LastError возвращает ошибку последней неудачной загрузки.
func (l *EmbedLoader) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Wait блокируется до окончания загрузки или отмены ctx. Ошибка загрузки
// возвращается сразу, в очереди ничего не остаётся.
func (l *EmbedLoader) Wait(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	if l.ready {
		defer l.mu.Unlock()
		return l.script, nil
	}
	done := l.startLocked(ctx)
	l.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready {
		return l.script, nil
	}
	return nil, fmt.Errorf("load embed script: %w", l.lastErr)
}

func (l *EmbedLoader) load(ctx context.Context, done chan struct{}) {
	defer close(done)
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	script, err := l.fetch(ctx)

	l.mu.Lock()
	l.loading = false
	if err != nil {
		l.lastErr = err
		dropped := len(l.callbacks)
		l.callbacks = nil
		l.mu.Unlock()
		l.logger.WithError(err).WithFields(log.Fields{"url": l.url, "dropped_callbacks": dropped}).Warn("instagram embed load failed")
		return
	}
	l.ready = true
	l.script = script
	l.lastErr = nil
	pending := l.callbacks
	l.callbacks = nil
	l.mu.Unlock()

	l.logger.WithFields(log.Fields{"url": l.url, "bytes": len(script), "callbacks": len(pending)}).Info("instagram embed loaded")
	for _, cb := range pending {
		cb()
	}
}

func (l *EmbedLoader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxScriptBytes {
		return nil, errors.New("embed script too large")
	}
	return body, nil
}

// Handler отдаёт скрипт витрине. Пока скрипт не готов, ждёт не дольше wait.
func (l *EmbedLoader) Handler(wait time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		defer cancel()

		script, err := l.Wait(ctx)
		if err != nil {
			w.Header().Set("Retry-After", "5")
			http.Error(w, "embed script unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(script)
	})
}
