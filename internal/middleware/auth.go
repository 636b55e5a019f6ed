package middleware

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/internal/service"
)

type ctxKey string

const identityKey ctxKey = "identity"

// BearerAuth resolves the Authorization header into a domain.Identity once
// per request and stores it in the context. Requests without a valid token
// are rejected with 401; handlers downstream read the identity with
// IdentityFromContext and never touch ambient token state.
func BearerAuth(auth service.AuthService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			identity, err := auth.Resolve(r.Context(), token)
			if err != nil {
				logger.Debug("token resolution failed", slog.Any("error", err))
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// ContextWithIdentity stores the resolved caller in the context.
func ContextWithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
