package goSession

import (
	"context"
	"errors"
)

const (
	auditEventSessionCreated        = "session_created"
	auditEventSessionEvicted        = "session_evicted"
	auditEventSessionDeleted        = "session_deleted"
	auditEventSessionsDeletedAll    = "sessions_deleted_all"
	auditEventSessionsDeletedOthers = "sessions_deleted_others"
	auditEventSessionRejected       = "session_rejected"
	auditEventSessionsCleaned       = "sessions_cleaned"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrSessionInvalidated AuditErrorCode = "session_invalidated"
	auditErrInfraUnavailable   AuditErrorCode = "infra_unavailable"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	platform Platform,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		Platform:  platform.String(),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrSessionInvalidated):
		return auditErrSessionInvalidated
	case errors.Is(err, ErrInfraUnavailable):
		return auditErrInfraUnavailable
	case errors.Is(err, ErrInvalidPlatform),
		errors.Is(err, ErrInvalidUserID),
		errors.Is(err, ErrInvalidSessionID):
		return auditErrInvalidInput
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	default:
		return auditErrInternal
	}
}
