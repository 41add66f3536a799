package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

// Authenticator resolves a bearer token to the user and session behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, *models.Session, error)
}

type contextKey string

const (
	userKey    contextKey = "user"
	sessionKey contextKey = "session"
	tokenKey   contextKey = "token"
)

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func withIdentity(ctx context.Context, token string, user *models.User, session *models.Session) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	ctx = context.WithValue(ctx, sessionKey, session)
	return context.WithValue(ctx, tokenKey, token)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
				return
			}

			user, session, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				status := services.StatusCode(err)
				message := "Invalid token"
				switch {
				case errors.Is(err, services.ErrUserInactive):
					message = "Account is not active"
				case status == http.StatusInternalServerError:
					log.Printf("[AUTH] authentication error: %v", err)
					message = "An Internal Error Occurred"
				default:
					status = http.StatusUnauthorized
				}
				services.SendErrorResponse(w, message, status, nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), token, user, session)))
		})
	}
}

// OptionalAuth attaches the user when a valid token is present and lets every
// request through.
func OptionalAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if user, session, err := auth.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(withIdentity(r.Context(), token, user, session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*models.Session)
	return session, ok && session != nil
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
