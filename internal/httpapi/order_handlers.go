package httpapi

import (
	"net/http"
	"strconv"

	"github.com/vladislavdragonenkov/textilestore/internal/auth"
	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

const defaultOrderPage = 50

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) adminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultOrderPage
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := s.orders.List(domain.OrderStatus(q.Get("status")), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (s *Server) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) adminChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	reason := req.Reason
	if p, ok := auth.PrincipalFrom(r.Context()); ok && p.Email != "" {
		if reason == "" {
			reason = "by " + p.Email
		} else {
			reason += " (by " + p.Email + ")"
		}
	}
	order, err := s.orders.ChangeStatus(r.PathValue("id"), domain.OrderStatus(req.Status), reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

func (s *Server) adminTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := s.orders.Timeline(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]timelineView, 0, len(events))
	for _, e := range events {
		out = append(out, timelineView{Type: e.Type, Reason: e.Reason, Occurred: e.Occurred})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}
