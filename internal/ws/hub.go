package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chat-core/internal/logger"
	"chat-core/internal/observability"
)

const writeWait = 10 * time.Second

const (
	KindUser  = "user"
	KindGroup = "group"
)

// Room identifies a broadcast audience: one user's sessions or one group's viewers.
type Room struct {
	Kind string
	Name string
}

func UserRoom(username string) Room { return Room{Kind: KindUser, Name: username} }

func GroupRoom(name string) Room { return Room{Kind: KindGroup, Name: name} }

type client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func (cl *client) write(payload []byte) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains active websocket rooms.
type Hub struct {
	rooms map[Room]map[*websocket.Conn]*client
	mu    sync.RWMutex

	// presence counts open sessions per user and room; presenceMu also serializes
	// the online/offline callbacks so the last one always matches the count.
	presence   map[Room]map[string]int
	presenceMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[Room]map[*websocket.Conn]*client),
		presence: make(map[Room]map[string]int),
	}
}

// Join counts one more session of username in room. onFirst runs when it is the
// user's only session.
func (h *Hub) Join(room Room, username string, onFirst func()) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()
	users, ok := h.presence[room]
	if !ok {
		users = make(map[string]int)
		h.presence[room] = users
	}
	users[username]++
	if users[username] == 1 && onFirst != nil {
		onFirst()
	}
}

// Leave ends one session of username in room. onLast runs when no session is left.
func (h *Hub) Leave(room Room, username string, onLast func()) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()
	users := h.presence[room]
	if users[username] == 0 {
		return
	}
	users[username]--
	if users[username] > 0 {
		return
	}
	delete(users, username)
	if len(users) == 0 {
		delete(h.presence, room)
	}
	if onLast != nil {
		onLast()
	}
}

// Sessions reports how many joined sessions username has in room.
func (h *Hub) Sessions(room Room, username string) int {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()
	return h.presence[room][username]
}

// Add registers a websocket connection to a room.
func (h *Hub) Add(room Room, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*websocket.Conn]*client)
	}
	h.rooms[room][conn] = &client{conn: conn, info: info}
}

// Remove drops a connection and reports whether it was registered.
func (h *Hub) Remove(room Room, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[room]
	if !ok {
		return false
	}
	if _, ok := conns[conn]; !ok {
		return false
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.rooms, room)
	}
	return true
}

// UserConnections counts username's connections in room.
func (h *Hub) UserConnections(room Room, username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, cl := range h.rooms[room] {
		if cl.info.Username == username {
			n++
		}
	}
	return n
}

func (h *Hub) clients(room Room) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.rooms[room]))
	for _, cl := range h.rooms[room] {
		out = append(out, cl)
	}
	return out
}

// Broadcast sends event as JSON to every connection in room and returns how many
// writes succeeded. Connections that fail are closed and dropped.
func (h *Hub) Broadcast(room Room, event any) int {
	clients := h.clients(room)
	if len(clients) == 0 {
		return 0
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("websocket event encode failed", zap.Error(err))
		return 0
	}

	sent := 0
	for _, cl := range clients {
		if err := cl.write(payload); err != nil {
			logger.Warn("websocket write error", zap.String("room", room.Name), zap.Error(err))
			cl.conn.Close()
			if h.Remove(room, cl.conn) {
				publishWSEvent(context.Background(), room, "ws_error", cl.info, err.Error())
			}
			continue
		}
		sent++
	}
	return sent
}

func publishWSEvent(ctx context.Context, room Room, event string, info ConnInfo, reason string) {
	duration := int64(0)
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        room.Kind,
			"room":        room.Name,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"username":  info.Username,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, wsRoutingKey(room.Kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(room.Kind, event)
}

func wsRoutingKey(kind string) string {
	if kind == KindGroup {
		return "ws_events.groups"
	}
	return "ws_events.users"
}
