package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"chat-core/internal/events"
	"chat-core/internal/identity"
	"chat-core/internal/models"
	"chat-core/internal/repositories"
	"chat-core/internal/services"
	"chat-core/internal/store"
	"chat-core/internal/testutil"
	"chat-core/internal/ws"
)

type testEnv struct {
	router *gin.Engine
	docs   store.DocumentStore
	hub    *ws.Hub
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docs, _ := testutil.NewStore(t)
	for _, name := range []string{"alice", "bob", "carol"} {
		testutil.PutAccount(t, docs, name, models.Account{FullName: name, Token: name + "-token", Status: "online"})
	}

	locks := store.NewLocks()
	inboxes := repositories.NewInboxRepo(docs, locks)
	ids := repositories.NewSequenceAllocator(docs, store.CounterMessageID)
	gate := identity.NewDocumentGate(docs)
	chat := services.NewChatService(inboxes, ids, gate)
	groups := services.NewGroupService(repositories.NewGroupRepo(docs, locks), inboxes, ids, gate, false)

	hub := ws.NewHub()
	dispatcher := events.NewDispatcher(hub)

	r := gin.New()
	r.Use(RequestID())
	RegisterAPIRoutes(r, gate, NewChatHandler(chat, dispatcher, nil), NewGroupHandler(groups, chat, dispatcher, nil))
	return &testEnv{router: r, docs: docs, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	headers := map[string]string{}
	if user != "" {
		headers["X-Username"] = user
		headers["Authorization"] = "Bearer " + user + "-token"
	}
	return e.send(t, method, path, headers, body)
}

func (e *testEnv) doWithHeaders(t *testing.T, method, path string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return e.send(t, method, path, headers, nil)
}

func (e *testEnv) send(t *testing.T, method, path string, headers map[string]string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}
