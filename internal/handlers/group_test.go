package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupLifecycleOverHTTP(t *testing.T) {
	env := setupRouter(t)

	rec, _ := env.do(t, http.MethodPost, "/groups", "alice", map[string]any{"name": "gophers", "bio": "go"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := env.do(t, http.MethodPost, "/groups", "bob", map[string]any{"name": "gophers"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "GROUP_EXISTS", resp["status"])

	rec, _ = env.do(t, http.MethodPost, "/groups/gophers/members", "bob", map[string]any{"username": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, resp = env.do(t, http.MethodPost, "/groups/gophers/members", "bob", map[string]any{"username": "bob"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_MEMBER", resp["status"])

	rec, resp = env.do(t, http.MethodPost, "/groups/gophers/messages", "bob", map[string]any{"message": "hi gophers"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "posted", resp["status"])

	rec, resp = env.do(t, http.MethodGet, "/groups/gophers/messages", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp["messages"].(map[string]any), 1)

	rec, resp = env.do(t, http.MethodGet, "/groups/gophers/members", "carol", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_JOINED", resp["status"])

	rec, resp = env.do(t, http.MethodGet, "/groups/gophers/members", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp["members"].([]any), 2)

	rec, resp = env.do(t, http.MethodGet, "/groups/joined", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"gophers"}, resp["groups"])

	rec, resp = env.do(t, http.MethodGet, "/groups", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dir := resp["groups"].([]any)
	require.Len(t, dir, 1)
	assert.Equal(t, "hi gophers", dir[0].(map[string]any)["last"].(map[string]any)["message"])

	rec, resp = env.do(t, http.MethodGet, "/groups/gophers", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gophers", resp["group"].(map[string]any)["username"])

	rec, resp = env.do(t, http.MethodDelete, "/groups/gophers/members/alice", "carol", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", resp["status"])

	rec, _ = env.do(t, http.MethodDelete, "/groups/gophers/members/bob", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, resp = env.do(t, http.MethodDelete, "/groups/gophers/members/bob", "bob", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NOT_MEMBER", resp["status"])
}

func TestPostToUnknownGroupIsSkipped(t *testing.T) {
	env := setupRouter(t)

	rec, resp := env.do(t, http.MethodPost, "/groups/nowhere/messages", "alice", map[string]any{"message": "x"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "skipped", resp["status"])
	assert.Equal(t, "group_not_found", resp["reason"])

	rec, resp = env.do(t, http.MethodGet, "/groups/nowhere", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "GROUP_NOT_FOUND", resp["status"])
}
