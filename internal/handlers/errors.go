package handlers

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"chat-core/internal/services"
	"chat-core/internal/telemetry"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{services.ErrAuthInvalid, http.StatusUnauthorized, "AUTH_INVALID"},
	{services.ErrPeerNotFound, http.StatusNotFound, "PEER_NOT_FOUND"},
	{services.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
	{services.ErrMessageNotFound, http.StatusNotFound, "MESSAGE_NOT_FOUND"},
	{services.ErrGroupNotFound, http.StatusNotFound, "GROUP_NOT_FOUND"},
	{services.ErrGroupExists, http.StatusConflict, "GROUP_EXISTS"},
	{services.ErrAlreadyMember, http.StatusConflict, "ALREADY_MEMBER"},
	{services.ErrNotMember, http.StatusConflict, "NOT_MEMBER"},
	{services.ErrNotJoined, http.StatusForbidden, "NOT_JOINED"},
	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{services.ErrInvalidInput, http.StatusBadRequest, "INVALID_REQUEST"},
	{services.ErrIdentityUnavailable, http.StatusBadGateway, "IDENTITY_UNAVAILABLE"},
}

// respondError writes the error body for a failed service call. Storage failures are
// reported to Sentry and audited; their details stay out of the response.
func respondError(c *gin.Context, audit *telemetry.AuditEmitter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"status": m.code, "error": m.err.Error()})
			return
		}
	}

	hub := sentry.GetHubFromContext(c.Request.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
	emitAudit(c, audit, telemetry.Record{Level: telemetry.LevelError, Action: telemetry.ActionStorageFailure, Target: c.FullPath(), Detail: err.Error()})
	c.JSON(http.StatusInternalServerError, gin.H{"status": "STORAGE_FAILURE", "error": "storage failure"})
}

func badRequest(c *gin.Context, audit *telemetry.AuditEmitter, err error) {
	emitAudit(c, audit, telemetry.Record{Level: telemetry.LevelError, Action: telemetry.ActionRequestInvalid, Target: c.FullPath(), Detail: err.Error()})
	c.JSON(http.StatusBadRequest, gin.H{"status": "INVALID_REQUEST", "error": err.Error()})
}
