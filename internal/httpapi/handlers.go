package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/device"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

type handlers struct {
	engine     *goSession.Engine
	verifier   credential.Verifier
	classifier device.Classifier
	cfg        goSession.Config
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DeviceName string `json:"deviceName,omitempty"`
}

type loginResponse struct {
	UserID    string             `json:"userId"`
	Platform  goSession.Platform `json:"platform"`
	ExpiresAt time.Time          `json:"expiresAt"`
	// Ticket is returned to app clients, which send it as a bearer token.
	Ticket string `json:"ticket,omitempty"`
}

type meResponse struct {
	UserID    string             `json:"userId"`
	Platform  goSession.Platform `json:"platform"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Degraded  bool               `json:"degraded,omitempty"`
}

type removedResponse struct {
	Removed int `json:"removed"`
}

type sessionsResponse struct {
	Sessions []goSession.ActiveSession `json:"sessions"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "username and password are required")
		return
	}
	if h.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, codeInfraUnavailable, "login is not configured")
		return
	}

	ctx := middleware.RequestContext(r)
	userID, err := h.verifier.Verify(ctx, req.Username, req.Password)
	if err != nil {
		hlog.FromRequest(r).Info().Err(err).Msg("login rejected")
		writeEngineError(w, r, err)
		return
	}

	info := h.classifier.Classify(r, req.DeviceName)
	res, err := h.engine.CreateSession(ctx, userID, info)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, h.cfg, res)
	out := loginResponse{
		UserID:    res.UserID,
		Platform:  res.Platform,
		ExpiresAt: res.ExpiresAt,
	}
	if res.Platform == goSession.PlatformApp {
		out.Ticket = res.Ticket
	}
	hlog.FromRequest(r).Info().
		Str("user_id", res.UserID).
		Str("platform", res.Platform.String()).
		Int("evicted", len(res.Evicted)).
		Msg("login succeeded")
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.ResultFromContext(r.Context())
	if !ok {
		writeEngineError(w, r, goSession.ErrUnauthenticated)
		return
	}
	if _, err := h.engine.DeleteSession(r.Context(), auth.SessionID); err != nil {
		writeEngineError(w, r, err)
		return
	}
	middleware.ClearSessionCookie(w, h.cfg)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) logoutAll(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.ResultFromContext(r.Context())
	if !ok {
		writeEngineError(w, r, goSession.ErrUnauthenticated)
		return
	}
	n, err := h.engine.DeleteAllUserSessions(r.Context(), auth.UserID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	middleware.ClearSessionCookie(w, h.cfg)
	writeJSON(w, http.StatusOK, removedResponse{Removed: n})
}

func (h *handlers) logoutOthers(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.ResultFromContext(r.Context())
	if !ok {
		writeEngineError(w, r, goSession.ErrUnauthenticated)
		return
	}
	n, err := h.engine.DeleteOtherSessions(r.Context(), auth.UserID, auth.SessionID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removedResponse{Removed: n})
}

func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.ResultFromContext(r.Context())
	if !ok {
		writeEngineError(w, r, goSession.ErrUnauthenticated)
		return
	}
	list, err := h.engine.ListActiveSessions(r.Context(), auth.UserID, auth.SessionID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: list})
}

func (h *handlers) revokeSession(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.ResultFromContext(r.Context())
	if !ok {
		writeEngineError(w, r, goSession.ErrUnauthenticated)
		return
	}
	handle := chi.URLParam(r, "handle")
	removed, err := h.engine.RevokeSessionByHandle(r.Context(), auth.UserID, handle)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if !removed {
		writeEngineError(w, r, goSession.ErrSessionNotFound)
		return
	}
	if handle == goSession.SessionHandle(auth.SessionID) {
		middleware.ClearSessionCookie(w, h.cfg)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.ResultFromContext(r.Context())
	if !ok {
		writeEngineError(w, r, goSession.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		UserID:    auth.UserID,
		Platform:  auth.Platform,
		ExpiresAt: auth.ExpiresAt,
		Degraded:  auth.Degraded,
	})
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	report := h.engine.Health(r.Context())
	status := http.StatusOK
	if !report.RedisAvailable || !report.RegistryAvailable {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"redis":             report.RedisAvailable,
		"redisLatencyMs":    report.RedisLatency.Milliseconds(),
		"registry":          report.RegistryAvailable,
		"registryLatencyMs": report.RegistryLatency.Milliseconds(),
	})
}
