package httpapi

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/device"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const maxBodyBytes = 4 << 10

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Engine     *goSession.Engine
	Verifier   credential.Verifier
	Classifier device.Classifier
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Logger  zerolog.Logger
}

// NewRouter returns the sessiond router.
func NewRouter(deps Deps) http.Handler {
	h := &handlers{
		engine:     deps.Engine,
		verifier:   deps.Verifier,
		classifier: deps.Classifier,
		cfg:        deps.Engine.Config(),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(hlog.NewHandler(deps.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.RemoteAddrHandler("ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("http request")
	}))
	r.Use(chimiddleware.Recoverer)

	guard := middleware.Guard(deps.Engine, middleware.WithErrorHandler(writeEngineError))

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Post("/auth/logout", h.logout)
			r.Post("/auth/logout-all", h.logoutAll)
			r.Post("/auth/logout-others", h.logoutOthers)
			r.Get("/sessions", h.listSessions)
			r.Delete("/sessions/{handle}", h.revokeSession)
			r.Get("/me", h.me)
		})
	})

	return r
}
