package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/textilestore/internal/auth"
	"github.com/vladislavdragonenkov/textilestore/internal/cart"
	"github.com/vladislavdragonenkov/textilestore/internal/metrics"
	"github.com/vladislavdragonenkov/textilestore/internal/service/catalog"
	"github.com/vladislavdragonenkov/textilestore/internal/service/checkout"
	"github.com/vladislavdragonenkov/textilestore/internal/service/idempotency"
	"github.com/vladislavdragonenkov/textilestore/internal/service/orders"
	"github.com/vladislavdragonenkov/textilestore/internal/storage/memory"
)

const (
	adminEmail    = "owner@textiles.in"
	adminPassword = "handloom-2026"
)

type harness struct {
	t        *testing.T
	handler  http.Handler
	sessions *cart.Sessions
	outbox   *memory.OutboxRepository
}

func newHarness(t *testing.T, limiter *RateLimiter) *harness {
	t.Helper()
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	entry := logger.WithField("component", "httpapi-test")
	m := metrics.NewStoreMetricsWithRegisterer(prometheus.NewRegistry())

	outbox := memory.NewOutboxRepository()
	orderSvc := orders.NewService(memory.NewOrderRepository(), outbox, memory.NewTimelineRepository(), entry, orders.WithMetrics(m))
	catalogSvc := catalog.NewService(memory.NewCatalogRepository(), memory.NewProductRepository(), nil, entry, catalog.WithMetrics(m))
	tokens, err := auth.NewTokenIssuer("api-test-secret", time.Hour)
	require.NoError(t, err)
	authSvc := auth.NewService(memory.NewUserRepository(), tokens, entry)
	require.NoError(t, authSvc.EnsureAdmin(adminEmail, adminPassword))
	sessions := cart.NewSessions()

	srv := NewServer(Deps{
		Catalog:     catalogSvc,
		Orders:      orderSvc,
		Checkout:    checkout.NewService(orderSvc, "+91 90000 00000", m, entry),
		Idempotency: idempotency.NewGuard(memory.NewIdempotencyRepository(), time.Hour, entry),
		Auth:        authSvc,
		Tokens:      tokens,
		Sessions:    sessions,
		Limiter:     limiter,
		Metrics:     m,
		Logger:      entry,
	})
	return &harness{t: t, handler: srv.Handler(), sessions: sessions, outbox: outbox}
}

func (h *harness) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.7:5555"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (h *harness) adminHeaders() map[string]string {
	rec := h.do(http.MethodPost, "/api/auth/login", map[string]string{"email": adminEmail, "password": adminPassword}, nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode[auth.Session](h.t, rec)
	return map[string]string{"Authorization": "Bearer " + session.Token}
}

// seed создаёт каталог с одним товаром и возвращает id товара.
func (h *harness) seed(admin map[string]string) (catalogID, productID string) {
	rec := h.do(http.MethodPost, "/api/admin/catalogs", map[string]any{"name": "Festive Silk"}, admin)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[catalogView](h.t, rec)

	rec = h.do(http.MethodPost, "/api/admin/products", map[string]any{
		"catalog_id":       c.ID,
		"name":             "Kanjivaram Saree",
		"price_minor":      250000,
		"quantity_per_set": "4 pcs per set",
		"image_urls":       []string{"https://cdn.example/k1.jpg"},
	}, admin)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[productView](h.t, rec)
	require.Equal(h.t, int32(4), p.MOQ)
	return c.ID, p.ID
}

func TestStorefrontEndpoints(t *testing.T) {
	h := newHarness(t, nil)
	catalogID, productID := h.seed(h.adminHeaders())

	rec := h.do(http.MethodGet, "/api/catalogs", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Catalogs []catalogView `json:"catalogs"`
	}](t, rec)
	require.Len(t, list.Catalogs, 1)
	require.Equal(t, "festive-silk", list.Catalogs[0].Slug)

	rec = h.do(http.MethodGet, "/api/catalogs/festive-silk", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	front := decode[struct {
		Catalog  catalogView   `json:"catalog"`
		Products []productView `json:"products"`
	}](t, rec)
	require.Len(t, front.Products, 1)
	require.Equal(t, productID, front.Products[0].ID)

	rec = h.do(http.MethodGet, "/api/catalogs/"+catalogID+"/fomo", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	fomo := decode[map[string]any](t, rec)
	require.Contains(t, fomo, "signals")
	require.Contains(t, fomo, "dispatch_cutoff")
	require.Contains(t, fomo, "perk_pool")

	rec = h.do(http.MethodGet, "/api/products/"+productID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/catalogs/unknown", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "catalog not found", decode[map[string]string](t, rec)["error"])
}

func TestCartAndCheckoutFlow(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.adminHeaders()
	_, productID := h.seed(admin)

	rec := h.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": productID}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := rec.Header().Get(cartSessionHeader)
	require.NotEmpty(t, session)
	require.True(t, strings.Contains(rec.Header().Get("Set-Cookie"), cartSessionCookie+"="+session))
	view := decode[cartView](t, rec)
	require.Equal(t, int32(4), view.Items[0].Quantity)

	sess := map[string]string{cartSessionHeader: session}
	rec = h.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": productID, "quantity": 2}, sess)
	require.Equal(t, int32(6), decode[cartView](t, rec).Items[0].Quantity)

	rec = h.do(http.MethodPut, "/api/cart/open", map[string]any{"open": true}, sess)
	require.True(t, decode[cartView](t, rec).IsOpen)

	rec = h.do(http.MethodPatch, "/api/cart/items/"+productID, map[string]any{"quantity": 3}, sess)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/api/cart/checkout", map[string]any{"name": "Kavya", "phone": "+919800000001"}, sess)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, decode[map[string]string](t, rec)["error"], "minimum order quantity")

	h.do(http.MethodPatch, "/api/cart/items/"+productID, map[string]any{"quantity": 8}, sess)
	rec = h.do(http.MethodGet, "/api/cart", nil, sess)
	view = decode[cartView](t, rec)
	require.Equal(t, int64(8), view.TotalItems)
	require.Equal(t, int64(8*250000), view.TotalPrice)

	rec = h.do(http.MethodPost, "/api/cart/checkout", map[string]any{"name": "Kavya", "phone": "+919800000001", "city": "Chennai"}, sess)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[checkout.Result](t, rec)
	require.NotEmpty(t, result.OrderID)
	require.True(t, strings.HasPrefix(result.WhatsAppURL, "https://wa.me/919000000000?text="))
	require.Len(t, h.outbox.AllPending(), 1)

	rec = h.do(http.MethodGet, "/api/cart", nil, sess)
	view = decode[cartView](t, rec)
	require.Empty(t, view.Items)
	require.True(t, view.IsOpen)

	rec = h.do(http.MethodGet, "/api/admin/orders?status=new", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[struct {
		Orders []orderView `json:"orders"`
	}](t, rec)
	require.Len(t, orders.Orders, 1)
	require.Equal(t, int64(2000000), orders.Orders[0].AmountMinor)

	rec = h.do(http.MethodPatch, "/api/admin/orders/"+result.OrderID+"/status", map[string]any{"status": "contacted"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "contacted", decode[orderView](t, rec).Status)

	rec = h.do(http.MethodPatch, "/api/admin/orders/"+result.OrderID+"/status", map[string]any{"status": "new"}, admin)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/orders/"+result.OrderID+"/timeline", nil, admin)
	events := decode[struct {
		Events []timelineView `json:"events"`
	}](t, rec)
	require.Len(t, events.Events, 2)
	require.Equal(t, "new -> contacted: by "+adminEmail, events.Events[1].Reason)
}

func TestCartEmptyCheckoutAndRemoval(t *testing.T) {
	h := newHarness(t, nil)
	_, productID := h.seed(h.adminHeaders())

	rec := h.do(http.MethodPost, "/api/cart/checkout", map[string]any{"name": "Kavya", "phone": "+91"}, map[string]string{cartSessionHeader: "s-1"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "cart is empty", decode[map[string]string](t, rec)["error"])

	sess := map[string]string{cartSessionHeader: "s-1"}
	h.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": productID}, sess)
	rec = h.do(http.MethodDelete, "/api/cart/items/"+productID, nil, sess)
	require.Empty(t, decode[cartView](t, rec).Items)

	h.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": productID}, sess)
	rec = h.do(http.MethodDelete, "/api/cart", nil, sess)
	require.Empty(t, decode[cartView](t, rec).Items)

	rec = h.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": "missing"}, sess)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": productID, "quantity": -1}, sess)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader("{"))
	req.Header.Set(cartSessionHeader, "s-1")
	bad := httptest.NewRecorder()
	h.handler.ServeHTTP(bad, req)
	require.Equal(t, http.StatusBadRequest, bad.Code)

	require.Equal(t, 1, h.sessions.Len())
}

func TestCheckoutIdempotencyKey(t *testing.T) {
	h := newHarness(t, nil)
	_, productID := h.seed(h.adminHeaders())

	sess := map[string]string{cartSessionHeader: "s-idem"}
	h.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": productID}, sess)

	customer := map[string]any{"name": "Kavya", "phone": "+919800000001"}
	keyed := map[string]string{cartSessionHeader: "s-idem", idempotencyKeyHeader: "tap-1"}
	first := h.do(http.MethodPost, "/api/cart/checkout", customer, keyed)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	require.Empty(t, first.Header().Get(idempotentReplayHeader))

	// корзина уже пуста, но повтор с тем же ключом отдаёт первую заявку
	second := h.do(http.MethodPost, "/api/cart/checkout", customer, keyed)
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	require.Equal(t, "true", second.Header().Get(idempotentReplayHeader))
	require.Equal(t, decode[checkout.Result](t, first).OrderID, decode[checkout.Result](t, second).OrderID)
	require.Len(t, h.outbox.AllPending(), 1)

	changed := map[string]any{"name": "Kavya", "phone": "+919800000002"}
	rec := h.do(http.MethodPost, "/api/cart/checkout", changed, keyed)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	long := map[string]string{cartSessionHeader: "s-idem", idempotencyKeyHeader: strings.Repeat("k", 129)}
	rec = h.do(http.MethodPost, "/api/cart/checkout", customer, long)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/cart/checkout", customer, sess)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "cart is empty", decode[map[string]string](t, rec)["error"])
}

func TestAdminRequiresToken(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/api/admin/orders", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/login", map[string]string{"email": adminEmail, "password": "wrong-password"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid credentials", decode[map[string]string](t, rec)["error"])

	rec = h.do(http.MethodGet, "/api/admin/orders?limit=zero", nil, h.adminHeaders())
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/admin/products", nil, h.adminHeaders())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	h := newHarness(t, NewRateLimiter(1, 2))

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/catalogs", nil, nil).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/catalogs", nil, nil).Code)
	rec := h.do(http.MethodGet, "/api/catalogs", nil, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodGet, "/api/catalogs", nil)
	other.RemoteAddr = "198.51.100.1:4444"
	otherRec := httptest.NewRecorder()
	h.handler.ServeHTTP(otherRec, other)
	require.Equal(t, http.StatusOK, otherRec.Code)
}

func TestRateLimiter_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/catalogs", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}

	require.Equal(t, 1, allowed)
	require.Len(t, rl.visitors, 1)
}

func TestRateLimiter_ClientIPBehindTrustedProxy(t *testing.T) {
	proxies, err := ParseTrustedProxies("10.0.0.0/8, 192.0.2.10")
	require.NoError(t, err)
	rl := NewRateLimiter(1, 1, WithTrustedProxies(proxies...))

	tests := map[string]struct {
		remote string
		xff    string
		want   string
	}{
		"untrusted peer":        {remote: "203.0.113.7:1", xff: "198.51.100.1", want: "203.0.113.7"},
		"single hop":            {remote: "10.1.2.3:1", xff: "198.51.100.1", want: "198.51.100.1"},
		"spoofed left part":     {remote: "10.1.2.3:1", xff: "1.2.3.4, 198.51.100.1", want: "198.51.100.1"},
		"chain of proxies":      {remote: "10.1.2.3:1", xff: "198.51.100.1, 192.0.2.10, 10.9.9.9", want: "198.51.100.1"},
		"no header":             {remote: "10.1.2.3:1", want: "10.1.2.3"},
		"only trusted hops":     {remote: "192.0.2.10:1", xff: "10.0.0.5", want: "192.0.2.10"},
		"mapped ipv4 peer":      {remote: "[::ffff:10.1.2.3]:1", xff: "198.51.100.2", want: "198.51.100.2"},
		"ipv6 untrusted direct": {remote: "[2001:db8::1]:1", want: "2001:db8::1"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			require.Equal(t, tt.want, rl.clientIP(req))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies("")
	require.NoError(t, err)
	require.Empty(t, proxies)

	proxies, err = ParseTrustedProxies(" 10.0.0.1/8 ,::1 ")
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.0/8", "::1/128"}, []string{proxies[0].String(), proxies[1].String()})

	_, err = ParseTrustedProxies("10.0.0.0/40")
	require.Error(t, err)
	_, err = ParseTrustedProxies("proxy.local")
	require.Error(t, err)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	require.True(t, rl.Allow("a"))
	require.True(t, rl.Allow("b"))

	now = now.Add(visitorIdleTTL + time.Second)
	require.True(t, rl.Allow("b"))
	require.Equal(t, 1, rl.Cleanup())
}
