package ws

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"chat-core/internal/middleware"
)

// UserSocketHandler streams private chat events to the authenticated user.
type UserSocketHandler struct {
	hub *Hub
}

func NewUserSocketHandler(hub *Hub) *UserSocketHandler {
	return &UserSocketHandler{hub: hub}
}

// Handle upgrades the connection; credentials were checked by middleware.RequireAuth.
func (h *UserSocketHandler) Handle(c *gin.Context) {
	creds := middleware.CredentialsFrom(c)

	ctx, span := otel.Tracer("chat-core/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := newConnInfo(c.Request, creds.Username, span.SpanContext().TraceID().String())
	pump := h.hub.attach(context.WithoutCancel(ctx), UserRoom(creds.Username), conn, info, nil)
	go pump()
}
