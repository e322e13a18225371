// Package httpapi — REST API витрины и админки.
package httpapi

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/auth"
	"github.com/vladislavdragonenkov/textilestore/internal/cart"
	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/instagram"
	"github.com/vladislavdragonenkov/textilestore/internal/metrics"
	"github.com/vladislavdragonenkov/textilestore/internal/service/catalog"
	"github.com/vladislavdragonenkov/textilestore/internal/service/checkout"
	"github.com/vladislavdragonenkov/textilestore/internal/service/idempotency"
	"github.com/vladislavdragonenkov/textilestore/internal/service/orders"
)

// Deps — зависимости API. Embed, Limiter и Metrics необязательны.
type Deps struct {
	Catalog  *catalog.Service
	Orders   *orders.Service
	Checkout *checkout.Service
	// Idempotency — необязателен; без него Idempotency-Key игнорируется.
	Idempotency *idempotency.Guard
	Auth        *auth.Service
	Tokens      auth.Validator
	Sessions    *cart.Sessions
	Embed       *instagram.EmbedLoader
	Limiter     *RateLimiter
	Metrics     *metrics.StoreMetrics
	Logger      *log.Entry
	// CartTTL — время жизни cookie сессии корзины.
	CartTTL time.Duration
}

// Server собирает маршруты API.
type Server struct {
	catalog     *catalog.Service
	orders      *orders.Service
	checkout    *checkout.Service
	idempotency *idempotency.Guard
	auth        *auth.Service
	tokens      auth.Validator
	sessions    *cart.Sessions
	embed       *instagram.EmbedLoader
	limiter     *RateLimiter
	metrics     *metrics.StoreMetrics
	logger      *log.Entry
	cartTTL     time.Duration
}

// NewServer создаёт API-сервер.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}
	sessions := d.Sessions
	if sessions == nil {
		sessions = cart.NewSessions()
	}
	ttl := d.CartTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Server{
		catalog:     d.Catalog,
		orders:      d.Orders,
		checkout:    d.Checkout,
		idempotency: d.Idempotency,
		auth:        d.Auth,
		tokens:      d.Tokens,
		sessions:    sessions,
		embed:       d.Embed,
		limiter:     d.Limiter,
		metrics:     d.Metrics,
		logger:      logger,
		cartTTL:     ttl,
	}
}

// Handler возвращает корневой обработчик со всеми middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/catalogs", s.listCatalogs)
	mux.HandleFunc("GET /api/catalogs/{slug}", s.getStorefront)
	mux.HandleFunc("GET /api/catalogs/{id}/fomo", s.getFomo)
	mux.HandleFunc("GET /api/products/{id}", s.getProduct)

	mux.HandleFunc("GET /api/cart", s.getCart)
	mux.HandleFunc("POST /api/cart/items", s.addCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", s.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", s.removeCartItem)
	mux.HandleFunc("DELETE /api/cart", s.clearCart)
	mux.HandleFunc("PUT /api/cart/open", s.setCartOpen)
	mux.HandleFunc("POST /api/cart/checkout", s.checkoutCart)

	mux.HandleFunc("POST /api/auth/login", s.login)

	staff := auth.Middleware(s.tokens, domain.RoleAdmin, domain.RoleStaff)
	admin := auth.Middleware(s.tokens, domain.RoleAdmin)
	handle := func(pattern string, mw func(http.Handler) http.Handler, h http.HandlerFunc) {
		mux.Handle(pattern, mw(h))
	}

	handle("GET /api/admin/catalogs", staff, s.adminListCatalogs)
	handle("POST /api/admin/catalogs", admin, s.adminCreateCatalog)
	handle("PUT /api/admin/catalogs/{id}", admin, s.adminUpdateCatalog)
	handle("DELETE /api/admin/catalogs/{id}", admin, s.adminDeleteCatalog)

	handle("GET /api/admin/products", staff, s.adminListProducts)
	handle("POST /api/admin/products", admin, s.adminCreateProduct)
	handle("PUT /api/admin/products/{id}", admin, s.adminUpdateProduct)
	handle("DELETE /api/admin/products/{id}", admin, s.adminDeleteProduct)

	handle("GET /api/admin/orders", staff, s.adminListOrders)
	handle("GET /api/admin/orders/{id}", staff, s.adminGetOrder)
	handle("PATCH /api/admin/orders/{id}/status", staff, s.adminChangeStatus)
	handle("GET /api/admin/orders/{id}/timeline", staff, s.adminTimeline)

	if s.embed != nil {
		mux.Handle("GET /static/instagram-embed.js", s.embed.Handler(5*time.Second))
	}

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	return observe(h, s.metrics, s.logger)
}
