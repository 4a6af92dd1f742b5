package middleware

import (
	"net/http"
	"strings"
)

// AuthCookie is the cookie set by a successful login.
const AuthCookie = "authenticated"

// publicPrefixes are reachable without logging in: the login page, static
// assets, and what the kiosk display and capture page need.
var publicPrefixes = []string{
	"/login",
	"/auth/login",
	"/static/",
	"/css/",
	"/js/",
	"/api/offers",
	"/api/display",
}

// AuthMiddleware checks that the user is logged in (has cookie 'authenticated=true').
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		cookie, err := r.Cookie(AuthCookie)
		if err != nil || cookie.Value != "true" {
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
