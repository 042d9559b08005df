package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credential"
	"github.com/rs/zerolog/hlog"
)

const (
	codeUnauthenticated    = "unauthenticated"
	codeSessionInvalidated = "session_invalidated"
	codeInfraUnavailable   = "infra_unavailable"
	codeInvalidRequest     = "invalid_request"
	codeInvalidCredentials = "invalid_credentials"
	codeSessionNotFound    = "session_not_found"
	codeInternal           = "internal_error"
)

type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Code: code, Message: message})
}

// writeEngineError maps an engine or verifier error onto a response.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, goSession.ErrSessionInvalidated):
		writeError(w, http.StatusUnauthorized, codeSessionInvalidated, "session is no longer valid")
	case errors.Is(err, goSession.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	case errors.Is(err, credential.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid username or password")
	case errors.Is(err, goSession.ErrInfraUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeInfraUnavailable, "session service temporarily unavailable")
	case errors.Is(err, goSession.ErrInvalidPlatform),
		errors.Is(err, goSession.ErrInvalidUserID),
		errors.Is(err, goSession.ErrInvalidSessionID):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, goSession.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, codeSessionNotFound, "session not found")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
