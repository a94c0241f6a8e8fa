package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"chat-core/internal/logger"
	"chat-core/internal/middleware"
	"chat-core/internal/services"
)

// Presence is the part of the group service the group socket needs.
type Presence interface {
	IsMember(ctx context.Context, group, username string) (bool, error)
	SetOnline(ctx context.Context, group, username string, online bool) error
}

// GroupSocketHandler streams group posts to members and tracks who is online.
type GroupSocketHandler struct {
	hub      *Hub
	presence Presence
}

func NewGroupSocketHandler(hub *Hub, presence Presence) *GroupSocketHandler {
	return &GroupSocketHandler{hub: hub, presence: presence}
}

// Handle upgrades and registers a websocket connection for a group. The caller is
// marked online when their first session opens and offline when the last one closes.
func (h *GroupSocketHandler) Handle(c *gin.Context) {
	group := c.Param("name")
	creds := middleware.CredentialsFrom(c)

	ctx, span := otel.Tracer("chat-core/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	member, err := h.presence.IsMember(ctx, group, creds.Username)
	switch {
	case errors.Is(err, services.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "GROUP_NOT_FOUND", "error": "group not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "STORAGE_FAILURE", "error": "failed to check membership"})
		return
	case !member:
		c.JSON(http.StatusForbidden, gin.H{"status": "NOT_JOINED", "error": "not a member of group"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	bg := context.WithoutCancel(ctx)
	room := GroupRoom(group)
	setOnline := func(online bool) func() {
		return func() {
			if err := h.presence.SetOnline(bg, group, creds.Username, online); err != nil {
				logger.Warn("failed to update member presence", zap.String("group", group), zap.String("username", creds.Username),
					zap.Bool("online", online), zap.Error(err))
			}
		}
	}

	info := newConnInfo(c.Request, creds.Username, span.SpanContext().TraceID().String())
	pump := h.hub.attach(bg, room, conn, info, func() {
		h.hub.Leave(room, creds.Username, setOnline(false))
	})
	h.hub.Join(room, creds.Username, setOnline(true))
	go pump()
}
