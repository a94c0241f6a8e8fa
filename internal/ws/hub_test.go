package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-core/internal/identity"
	"chat-core/internal/middleware"
	"chat-core/internal/mocks"
	"chat-core/internal/models"
)

func TestHubAddAndRemove(t *testing.T) {
	hub := NewHub()
	room := UserRoom("alice")

	hub.Add(room, nil, ConnInfo{Username: "alice"})
	assert.Len(t, hub.rooms, 1)
	assert.Equal(t, 1, hub.UserConnections(room, "alice"))
	assert.Zero(t, hub.UserConnections(GroupRoom("alice"), "alice"))

	assert.True(t, hub.Remove(room, nil))
	assert.False(t, hub.Remove(room, nil))
	assert.Empty(t, hub.rooms)
}

type presenceStub struct {
	mu     sync.Mutex
	member bool
	online []bool
}

func (p *presenceStub) IsMember(ctx context.Context, group, username string) (bool, error) {
	return p.member, nil
}

func (p *presenceStub) SetOnline(ctx context.Context, group, username string, online bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, online)
	return nil
}

func (p *presenceStub) calls() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.online...)
}

func newServer(t *testing.T, hub *Hub, presence Presence) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gate := new(mocks.GateMock)
	gate.On("Authenticate", mock.Anything, "alice", "tok").Return(identity.StatusOK, nil)

	r := gin.New()
	r.GET("/ws/user", middleware.RequireAuth(gate), NewUserSocketHandler(hub).Handle)
	r.GET("/ws/groups/:name", middleware.RequireAuth(gate), NewGroupSocketHandler(hub, presence).Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?username=alice&token=tok"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestBroadcastReachesUserSockets(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub, &presenceStub{member: true})

	conn := dial(t, srv, "/ws/user")
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.UserConnections(UserRoom("alice"), "alice") == 1 }, time.Second, 10*time.Millisecond)

	msg := models.Message{ID: 1, From: "bob", To: "alice", Text: "hi"}
	assert.Equal(t, 1, hub.Broadcast(UserRoom("alice"), models.ChatEvent{Type: models.EventMessage, Peer: "bob", Message: &msg}))

	var got models.ChatEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "bob", got.Peer)
	assert.Equal(t, "hi", got.Message.Text)
}

func TestGroupSocketTracksPresence(t *testing.T) {
	hub := NewHub()
	presence := &presenceStub{member: true}
	srv := newServer(t, hub, presence)
	room := GroupRoom("gophers")

	first := dial(t, srv, "/ws/groups/gophers")
	second := dial(t, srv, "/ws/groups/gophers")
	require.Eventually(t, func() bool { return hub.Sessions(room, "alice") == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, hub.UserConnections(room, "alice"))

	first.Close()
	require.Eventually(t, func() bool { return hub.Sessions(room, "alice") == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{true}, presence.calls())

	second.Close()
	require.Eventually(t, func() bool { return hub.Sessions(room, "alice") == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{true, false}, presence.calls())
}

func TestPresenceFollowsSessionCount(t *testing.T) {
	hub := NewHub()
	room := GroupRoom("gophers")
	var calls []bool
	mark := func(online bool) func() { return func() { calls = append(calls, online) } }

	hub.Join(room, "alice", mark(true))
	hub.Join(room, "alice", mark(true))
	hub.Leave(room, "alice", mark(false))
	assert.Equal(t, []bool{true}, calls)

	hub.Leave(room, "alice", mark(false))
	hub.Leave(room, "alice", mark(false))
	assert.Equal(t, []bool{true, false}, calls)
	assert.Empty(t, hub.presence)
}

func TestPresenceStaysOnlineWhileAnySessionIsOpen(t *testing.T) {
	hub := NewHub()
	room := GroupRoom("gophers")
	var calls []bool
	mark := func(online bool) func() { return func() { calls = append(calls, online) } }

	hub.Join(room, "alice", mark(true))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Join(room, "alice", mark(true))
			hub.Leave(room, "alice", mark(false))
		}()
	}
	wg.Wait()

	assert.Equal(t, []bool{true}, calls)
	assert.Equal(t, 1, hub.Sessions(room, "alice"))
}

func TestPresenceTransitionsAlternate(t *testing.T) {
	hub := NewHub()
	room := GroupRoom("gophers")
	var calls []bool
	mark := func(online bool) func() { return func() { calls = append(calls, online) } }

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Join(room, "alice", mark(true))
			hub.Leave(room, "alice", mark(false))
		}()
	}
	wg.Wait()

	require.NotEmpty(t, calls)
	for i, online := range calls {
		assert.Equal(t, i%2 == 0, online, "transition %d", i)
	}
	assert.False(t, calls[len(calls)-1])
}

func TestGroupSocketRejectsNonMembers(t *testing.T) {
	srv := newServer(t, NewHub(), &presenceStub{member: false})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/groups/gophers?username=alice&token=tok"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOT_JOINED", body["status"])
}
