package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/vladislavdragonenkov/textilestore/internal/metrics"
)

const visitorIdleTTL = 3 * time.Minute

// RateLimiter ограничивает запросы с одного IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
	// proxies — кому разрешено передавать X-Forwarded-For.
	proxies []netip.Prefix
}

// LimiterOption настраивает RateLimiter.
type LimiterOption func(*RateLimiter)

// WithTrustedProxies разрешает брать адрес клиента из X-Forwarded-For,
// когда запрос пришёл от одного из этих прокси.
func WithTrustedProxies(proxies ...netip.Prefix) LimiterOption {
	return func(rl *RateLimiter) {
		rl.proxies = append(rl.proxies, proxies...)
	}
}

// ParseTrustedProxies разбирает список адресов и подсетей через запятую.
func ParseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter создаёт лимитер на rps запросов в секунду с запасом burst.
// rps <= 0 отключает ограничение.
func NewRateLimiter(rps float64, burst int, opts ...LimiterOption) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow проверяет, можно ли обслужить ещё один запрос с ip.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	rl.mu.Unlock()
	return v.limiter.Allow()
}

// Cleanup удаляет давно не появлявшихся посетителей.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for ip, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > visitorIdleTTL {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// Run периодически чистит посетителей до отмены ctx.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// Middleware отвечает 429, когда лимит исчерпан.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rl.clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP берёт адрес соединения. Заголовок X-Forwarded-For учитывается
// только от доверенного прокси: справа налево до первого недоверенного адреса.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	remote := remoteIP(r.RemoteAddr)
	if !rl.trusted(remote) {
		return remote
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop != "" && !rl.trusted(hop) {
			return hop
		}
	}
	return remote
}

func (rl *RateLimiter) trusted(ip string) bool {
	if len(rl.proxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.Trim(remoteAddr, "[]")
	}
	return ip
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// observe логирует запрос и пишет метрики по шаблону маршрута.
func observe(next http.Handler, m *metrics.StoreMetrics, logger *log.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				logger.WithField("panic", p).WithField("path", r.URL.Path).Error("handler panicked")
				writeError(rec, http.StatusInternalServerError, "internal error")
			}

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)
			if m != nil {
				m.RecordHTTPRequest(r.Method, route, rec.code, elapsed)
			}
			entry := logger.WithFields(log.Fields{
				"method":   r.Method,
				"route":    route,
				"status":   rec.code,
				"duration": elapsed.String(),
			})
			if rec.code >= http.StatusInternalServerError {
				entry.Warn("http request")
			} else {
				entry.Debug("http request")
			}
		}()

		next.ServeHTTP(rec, r)
	})
}
