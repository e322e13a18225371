package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/textilestore/internal/cart"
	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/service/checkout"
	"github.com/vladislavdragonenkov/textilestore/internal/service/idempotency"
)

const (
	cartSessionHeader = "X-Cart-Session"
	cartSessionCookie = "cart_session"
	maxSessionIDLen   = 64

	idempotencyKeyHeader   = "Idempotency-Key"
	idempotentReplayHeader = "Idempotent-Replay"
)

// cartFor находит корзину сессии. Без идентификатора сессия создаётся,
// а её id возвращается в заголовке и cookie.
func (s *Server) cartFor(w http.ResponseWriter, r *http.Request) *cart.Store {
	id := r.Header.Get(cartSessionHeader)
	if id == "" {
		if c, err := r.Cookie(cartSessionCookie); err == nil {
			id = c.Value
		}
	}
	if id == "" || len(id) > maxSessionIDLen {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     cartSessionCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.cartTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set(cartSessionHeader, id)

	store := s.sessions.GetOrCreate(id)
	if s.metrics != nil {
		s.metrics.SetCartSessions(s.sessions.Len())
	}
	return store
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	store := s.cartFor(w, r)
	writeJSON(w, http.StatusOK, toCartView(store.Snapshot()))
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

// addCartItem берёт название, цену и MOQ из каталога, а не от клиента.
// Без quantity добавляется MOQ.
func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Quantity < 0 {
		s.fail(w, r, domain.ErrItemQtyInvalid)
		return
	}
	product, err := s.catalog.PublicProduct(req.ProductID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	qty := req.Quantity
	if qty == 0 {
		qty = product.MOQ
	}

	store := s.cartFor(w, r)
	state := store.AddItem(cart.CartItem{
		ID:         product.ID,
		Name:       product.Name,
		PriceMinor: product.PriceMinor,
		Quantity:   qty,
		MOQ:        product.MOQ,
		Note:       req.Note,
	})
	writeJSON(w, http.StatusOK, toCartView(state))
}

type quantityRequest struct {
	Quantity int32 `json:"quantity"`
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	store := s.cartFor(w, r)
	writeJSON(w, http.StatusOK, toCartView(store.UpdateQuantity(r.PathValue("id"), req.Quantity)))
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	store := s.cartFor(w, r)
	writeJSON(w, http.StatusOK, toCartView(store.RemoveItem(r.PathValue("id"))))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	store := s.cartFor(w, r)
	writeJSON(w, http.StatusOK, toCartView(store.ClearCart()))
}

type openRequest struct {
	Open bool `json:"open"`
}

func (s *Server) setCartOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	store := s.cartFor(w, r)
	writeJSON(w, http.StatusOK, toCartView(store.SetOpen(req.Open)))
}

func (s *Server) checkoutCart(w http.ResponseWriter, r *http.Request) {
	var customer checkout.Customer
	if err := decodeJSON(w, r, &customer); err != nil {
		s.fail(w, r, err)
		return
	}
	store := s.cartFor(w, r)

	key := r.Header.Get(idempotencyKeyHeader)
	if key == "" || s.idempotency == nil {
		result, err := s.checkout.Checkout(customer, store)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
		return
	}

	payload, err := json.Marshal(customer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hash := idempotency.HashRequest([]byte(w.Header().Get(cartSessionHeader)), payload)
	reply, replayed, err := s.idempotency.Do(key, hash, func() idempotency.Reply {
		result, err := s.checkout.Checkout(customer, store)
		if err != nil {
			return s.failureReply(r, err)
		}
		body, _ := json.Marshal(result)
		return idempotency.Reply{Status: http.StatusCreated, Body: body}
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if replayed {
		w.Header().Set(idempotentReplayHeader, "true")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_, _ = w.Write(reply.Body)
}
