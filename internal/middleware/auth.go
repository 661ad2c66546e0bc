package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/burakozf/splitledger/internal/api/httpx"
	"github.com/burakozf/splitledger/internal/auth"
)

type ctxKey string

const ctxUserIDKey ctxKey = "uid"

// UserID returns the verified caller id stored by Auth.
func UserID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(int64)
	return v, ok
}

// WithUserID is used by tests to fake an authenticated request.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

type AuthMiddleware struct {
	TM     *auth.TokenManager
	AppEnv string
}

func NewAuthMiddleware(tm *auth.TokenManager, appEnv string) *AuthMiddleware {
	return &AuthMiddleware{TM: tm, AppEnv: appEnv}
}

// Auth requires a bearer token and stores the caller id in the context.
// In dev, "Bearer dev-<numeric id>" bypasses signature verification.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		if m.AppEnv == "dev" && strings.HasPrefix(token, "dev-") {
			uid, err := strconv.ParseInt(strings.TrimPrefix(token, "dev-"), 10, 64)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid dev token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
			return
		}

		claims, err := m.TM.Parse(token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
	})
}
