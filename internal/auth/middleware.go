package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

// Principal — аутентифицированный сотрудник.
type Principal struct {
	UserID string
	Email  string
	Role   domain.Role
}

type principalKey struct{}

// WithPrincipal кладёт principal в контекст.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom достаёт principal из контекста.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Validator проверяет bearer-токен.
type Validator interface {
	Validate(token string) (*Claims, error)
}

// Middleware пропускает только запросы с валидным токеном одной из ролей roles.
// Без ролей достаточно любого валидного токена. nil validator отклоняет всё.
func Middleware(validator Validator, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(header, " ")
			if header == "" || !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if validator == nil {
				writeError(w, http.StatusUnauthorized, "authentication not configured")
				return
			}

			claims, err := validator.Validate(strings.TrimSpace(token))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if !allowed(claims.Role, roles) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{UserID: claims.Subject, Email: claims.Email, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func allowed(role domain.Role, roles []domain.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
