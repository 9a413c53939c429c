package api

import (
	"context"
	"net/http"
	"strings"

	"partner-portal/internal/apperr"
	"partner-portal/internal/auth"
	"partner-portal/pkg/models"
)

type contextKey string

const claimsKey contextKey = "claims"

// claimsFrom извлекает полезную нагрузку токена из контекста запроса
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// authMiddleware требует действительный access-токен
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "требуется авторизация"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "некорректный формат авторизации"})
			return
		}

		claims, err := s.tokens.ParseAccessToken(parts[1])
		if err != nil {
			s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "недействительный токен"})
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminMiddleware требует роль администратора
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil || claims.Role != models.RoleAdmin {
			s.respondError(w, r, apperr.Forbidden("требуются права администратора"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
