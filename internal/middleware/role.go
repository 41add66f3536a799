package middleware

import (
	"log"
	"net/http"

	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

// RequireRole only admits users holding one of roles. It must run after
// RequireAuth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
				return
			}
			if !user.Role.In(roles...) {
				log.Printf("[AUTH] user %d with role %s denied %s %s", user.ID, user.Role, r.Method, r.URL.Path)
				services.SendErrorResponse(w, "Insufficient permissions", http.StatusForbidden, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
