package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vladislavdragonenkov/textilestore/internal/auth"
	"github.com/vladislavdragonenkov/textilestore/internal/domain"
	"github.com/vladislavdragonenkov/textilestore/internal/service/idempotency"
)

const maxBodyBytes = 1 << 20

// errBadRequest — тело запроса не разобрано.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// statusFor переводит доменные ошибки в HTTP-коды.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, domain.ErrIdempotencyKeyTooLong):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSlugTaken), errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrUserExists), errors.Is(err, domain.ErrOrderVersionConflict),
		errors.Is(err, domain.ErrInvalidStatusTransition), errors.Is(err, domain.ErrIdempotencyInProgress):
		return http.StatusConflict
	case domain.IsValidation(err), errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail пишет ошибку; внутренние ошибки не раскрываются клиенту.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	reply := s.failureReply(r, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_, _ = w.Write(reply.Body)
}

// failureReply строит тело ошибки так же, как fail, но не пишет его в ответ.
func (s *Server) failureReply(r *http.Request, err error) idempotency.Reply {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		msg = "internal error"
	}
	body, _ := json.Marshal(map[string]string{"error": msg})
	return idempotency.Reply{Status: code, Body: body}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
