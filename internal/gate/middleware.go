package gate

import (
	"net/http"

	"github.com/ashureev/online-courses/internal/auth"
)

// TokenSource reads the browser's auth token from a request.
type TokenSource interface {
	Token(r *http.Request) string
}

// Require returns middleware that resolves the session once per request and
// redirects to LoginPath when there is none.
func Require(p auth.Provider, tokens TokenSource) func(http.Handler) http.Handler {
	return RequireFunc(p, tokens, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	})
}

// RequireFunc is Require with a custom response for a missing session.
// Gated responses are never cached, so a page restored by the browser's
// back/forward cache is fetched again and mounts a fresh view.
func RequireFunc(p auth.Provider, tokens TokenSource, onAbsent http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			var g Gate
			g.Observe(lookup(r.Context(), p, tokens.Token(r)))
			if _, ok := g.Redirect(); ok {
				onAbsent(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), g.Session())))
		})
	}
}
