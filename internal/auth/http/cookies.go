package http

import (
	"net/http"
	"time"
)

const (
	refreshCookieName = "refresh_token"

	authCookiePath  = "/v1/auth"
	staffCookiePath = "/v1/staff"
)

// cookieConfig controls how refresh cookies are written. Secure is off in
// local development so the cookie survives plain http.
type cookieConfig struct {
	Path   string
	Secure bool
	MaxAge time.Duration
}

func (c cookieConfig) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     c.Path,
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c cookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     c.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshFromRequest picks the refresh token from an explicit body field
// first, falling back to the cookie set at login.
func refreshFromRequest(r *http.Request, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
