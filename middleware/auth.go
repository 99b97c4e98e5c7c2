package middleware

import (
	"net/http"

	"gitea.com/go-chi/session"

	"github.com/blogem/oauth-login/userctx"
)

// RequireAuth ensures the user is authenticated.
// Anonymous visitors are sent back to the landing page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userctx.FromSession(session.GetSession(r))
		if user == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		// Add user to request context for use in handlers
		ctx := userctx.SetUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
