package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-core/internal/events"
	"chat-core/internal/middleware"
	"chat-core/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func usernameFromContext(c *gin.Context) string {
	if username := middleware.CredentialsFrom(c).Username; username != "" {
		return username
	}
	return c.GetHeader("X-Username")
}

func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, rec telemetry.Record) {
	if audit == nil {
		return
	}
	rec.RequestID = requestIDFromContext(c)
	rec.Username = usernameFromContext(c)
	audit.Emit(c.Request.Context(), rec)
}

// RequestID makes sure every request carries an id and exposes it to event headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := requestIDFromContext(c)
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(events.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}
