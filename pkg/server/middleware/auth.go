package middleware

import (
	"net/http"
	"strings"

	"github.com/hospitaldigital/hospital-api/pkg/identity"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
	"github.com/hospitaldigital/hospital-api/pkg/token"
)

// Authenticator is middleware that validates bearer access tokens and
// loads the authenticated user into the request context.
type Authenticator struct {
	issuer *token.Issuer
	users  store.UsersStore
}

// NewAuthenticator creates a new bearer token authenticator middleware
func NewAuthenticator(issuer *token.Issuer, users store.UsersStore) *Authenticator {
	return &Authenticator{issuer: issuer, users: users}
}

// Middleware returns an HTTP middleware that validates access tokens
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if len(authHeader) == 0 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Authorization missing"))
			return
		}

		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenStr == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Malformed authorization header"))
			return
		}

		claims, err := a.issuer.Verify(tokenStr, token.TypeAccess)
		if err != nil {
			status := http.StatusUnauthorized
			msg := "Invalid token"
			if err == token.ErrExpiredToken {
				msg = "Token expired"
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(msg))
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Invalid token"))
			return
		}

		user, err := a.users.GetByID(userID)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Unknown user"))
			return
		}
		if !user.IsActive() {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("Account disabled"))
			return
		}

		id := identity.FromUser(user).WithRemoteIP(identity.ClientIP(r))
		r = r.WithContext(identity.Set(r.Context(), id))

		next.ServeHTTP(w, r)
	})
}
