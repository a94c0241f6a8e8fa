package ws

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chat-core/internal/logger"
	"chat-core/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newConnID() string {
	return uuid.NewString()
}

// attach registers conn in room before returning. The returned pump blocks reading
// until the client goes away, then detaches conn and calls onClose; run it on its own
// goroutine. Clients only receive; anything they send is discarded.
func (h *Hub) attach(ctx context.Context, room Room, conn *websocket.Conn, info ConnInfo, onClose func()) (pump func()) {
	h.Add(room, conn, info)
	observability.IncWSActive(room.Kind)
	publishWSEvent(ctx, room, "ws_connect", info, "")
	return func() { h.readLoop(ctx, room, conn, info, onClose) }
}

func (h *Hub) readLoop(ctx context.Context, room Room, conn *websocket.Conn, info ConnInfo, onClose func()) {
	var closeReason string
	defer func() {
		h.Remove(room, conn)
		observability.DecWSActive(room.Kind)
		publishWSEvent(ctx, room, "ws_disconnect", info, closeReason)
		conn.Close()
		if onClose != nil {
			onClose()
		}
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read error", zap.String("room", room.Name), zap.String("conn_id", info.ConnID), zap.Error(err))
				publishWSEvent(ctx, room, "ws_error", info, closeReason)
			}
			return
		}
	}
}
