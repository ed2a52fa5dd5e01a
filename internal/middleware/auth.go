package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/monetra/backend/internal/contextkeys"
	"github.com/monetra/backend/internal/domain"
	"github.com/monetra/backend/internal/handler"
	"github.com/monetra/backend/internal/service"
)

// Auth creates a JWT authentication middleware. The token is taken from the
// Authorization header or, failing that, the session cookie.
func Auth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if token == "" {
				handler.Fail(w, http.StatusUnauthorized, msg)
				return
			}

			claims, err := authSvc.VerifyToken(token)
			if err != nil {
				handler.Fail(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			// The account may have been removed after the token was issued.
			if _, err := authSvc.GetUserByID(r.Context(), claims.Sub); err != nil {
				if domain.IsCode(err, http.StatusNotFound) {
					handler.Fail(w, http.StatusUnauthorized, "user no longer exists")
					return
				}
				handler.Error(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.UserID, claims.Sub)
			ctx = context.WithValue(ctx, contextkeys.UserEmail, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, string) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", "invalid authorization header"
		}
		return parts[1], ""
	}
	if c, err := r.Cookie(handler.CookieName); err == nil && c.Value != "" {
		return c.Value, ""
	}
	return "", "no token provided"
}
