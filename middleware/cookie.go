package middleware

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// SetSessionCookie writes the ticket from res as the session cookie.
func SetSessionCookie(w http.ResponseWriter, cfg goSession.Config, res *goSession.CreateResult) {
	if res == nil {
		return
	}
	writeSessionCookie(w, cfg, res.Ticket, res.MaxAge, res.ExpiresAt)
}

// SetRenewedSessionCookie replaces the session cookie with the ticket
// reissued by rolling expiry. It does nothing when res carries no renewal.
func SetRenewedSessionCookie(w http.ResponseWriter, cfg goSession.Config, res *goSession.AuthResult) {
	if res == nil || res.RenewedTicket == "" {
		return
	}
	writeSessionCookie(w, cfg, res.RenewedTicket, res.MaxAge, res.ExpiresAt)
}

func writeSessionCookie(w http.ResponseWriter, cfg goSession.Config, ticket string, ttl time.Duration, expiresAt time.Time) {
	maxAge := int(ttl / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    ticket,
		Path:     cookiePath(cfg),
		Domain:   cfg.Cookie.Domain,
		MaxAge:   maxAge,
		Expires:  expiresAt.UTC(),
		HttpOnly: true,
		Secure:   cfg.CookieSecure(),
		SameSite: cfg.Cookie.SameSite,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter, cfg goSession.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    "",
		Path:     cookiePath(cfg),
		Domain:   cfg.Cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.CookieSecure(),
		SameSite: cfg.Cookie.SameSite,
	})
}

func cookiePath(cfg goSession.Config) string {
	if cfg.Cookie.Path == "" {
		return "/"
	}
	return cfg.Cookie.Path
}
