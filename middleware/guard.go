package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/rs/zerolog/hlog"
)

// HeaderRenewedTicket carries the reissued ticket to bearer clients when
// rolling expiry moves a session's expiry forward.
const HeaderRenewedTicket = "X-Session-Ticket"

type ticketSource int

const (
	sourceCookie ticketSource = iota + 1
	sourceBearer
)

type authResultContextKey struct{}

// ResultFromContext returns the session attached by [Guard].
func ResultFromContext(ctx context.Context) (*goSession.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goSession.AuthResult)
	return res, ok
}

// WithResult attaches res to ctx the way [Guard] does.
func WithResult(ctx context.Context, res *goSession.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// ErrorHandler writes the response for a rejected request. err matches one
// of goSession.ErrUnauthenticated, ErrSessionInvalidated or
// ErrInfraUnavailable.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option customizes [Guard].
type Option func(*guardOptions)

type guardOptions struct {
	onError ErrorHandler
}

// WithErrorHandler replaces the default plain-text rejection responses.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *guardOptions) {
		if h != nil {
			o.onError = h
		}
	}
}

// Guard authenticates every request against engine. Invalidated sessions
// get their cookie cleared before the error handler runs. A ticket renewed
// by rolling expiry is written back the way it arrived: as the session
// cookie, or in the [HeaderRenewedTicket] response header for bearer
// requests.
func Guard(engine *goSession.Engine, opts ...Option) func(http.Handler) http.Handler {
	o := guardOptions{onError: defaultErrorHandler}
	for _, opt := range opts {
		opt(&o)
	}

	var cfg goSession.Config
	if engine != nil {
		cfg = engine.Config()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				o.onError(w, r, goSession.ErrUnauthenticated)
				return
			}

			ctx := RequestContext(r)
			token, source := ticketFromRequest(r, cfg)
			if source == 0 {
				o.onError(w, r, goSession.ErrUnauthenticated)
				return
			}

			res, err := engine.Authenticate(ctx, token)
			if err != nil {
				logger := hlog.FromRequest(r)
				switch {
				case errors.Is(err, goSession.ErrSessionInvalidated):
					ClearSessionCookie(w, cfg)
					logger.Debug().Msg("session invalidated")
				case errors.Is(err, goSession.ErrInfraUnavailable):
					logger.Warn().Err(err).Msg("session check unavailable")
				default:
					logger.Debug().Err(err).Msg("unauthenticated request")
				}
				o.onError(w, r, err)
				return
			}

			if res.Degraded {
				hlog.FromRequest(r).Warn().
					Str("session_id", res.SessionID).
					Msg("serving request on degraded session check")
			}
			if res.RenewedTicket != "" {
				if source == sourceCookie {
					SetRenewedSessionCookie(w, cfg, res)
				} else {
					w.Header().Set(HeaderRenewedTicket, res.RenewedTicket)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithResult(ctx, res)))
		})
	}
}

// RequestContext returns r's context annotated with the client address and
// user agent recorded in audit events.
func RequestContext(r *http.Request) context.Context {
	ctx := goSession.WithClientIP(r.Context(), clientIP(r))
	return goSession.WithUserAgent(ctx, r.UserAgent())
}

// TicketFromRequest returns the session ticket carried by r, if any.
func TicketFromRequest(r *http.Request, cfg goSession.Config) (string, bool) {
	token, source := ticketFromRequest(r, cfg)
	return token, source != 0
}

func ticketFromRequest(r *http.Request, cfg goSession.Config) (string, ticketSource) {
	if c, err := r.Cookie(cfg.Cookie.Name); err == nil && c.Value != "" {
		return c.Value, sourceCookie
	}
	if cfg.Cookie.AcceptBearer {
		if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
			return token, sourceBearer
		}
	}
	return "", 0
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, goSession.ErrInfraUnavailable) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
