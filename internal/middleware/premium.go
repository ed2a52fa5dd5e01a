package middleware

import (
	"context"
	"net/http"

	"github.com/monetra/backend/internal/contextkeys"
	"github.com/monetra/backend/internal/handler"
)

// PremiumChecker reports whether a user holds an active membership.
type PremiumChecker interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
}

// Premium gates a route behind an active membership.
// Must be used AFTER Auth middleware which sets contextkeys.UserID in context.
func Premium(checker PremiumChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := r.Context().Value(contextkeys.UserID).(string)
			if !ok || userID == "" {
				handler.Fail(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			premium, err := checker.IsPremium(r.Context(), userID)
			if err != nil {
				handler.Error(w, err)
				return
			}
			if !premium {
				handler.Fail(w, http.StatusForbidden, "an active membership is required for this feature")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
