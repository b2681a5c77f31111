package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/athebyme/product-composite-platform/pkg/interfaces"
)

type principalKey struct{}

// PrincipalFromContext возвращает клиента, добавленного AuthMiddleware
func PrincipalFromContext(ctx context.Context) (*interfaces.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*interfaces.Principal)
	return p, ok
}

// AuthMiddleware промежуточное ПО для проверки Bearer токенов
func AuthMiddleware(authPort interfaces.AuthPort, logger interfaces.LoggerPort) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}

			principal, err := authPort.ValidateToken(r.Context(), parts[1])
			if err != nil {
				logger.WarnWithContext(r.Context(), "Invalid JWT token", interfaces.Err(err))
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), interfaces.UserIDKey, principal.UserID)
			ctx = context.WithValue(ctx, principalKey{}, principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole проверяет наличие определенной роли
func RequireRole(authPort interfaces.AuthPort, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !authPort.HasRole(principal, role) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
