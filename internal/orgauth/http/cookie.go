package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/orgauth/pkg/httpx"
)

// CookieConfig controls the HTTP-only session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
	Domain string
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return httpx.DefaultCookieName
	}
	return c.Name
}

func (c CookieConfig) set(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
