// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"chat-core/internal/models"
	"chat-core/internal/store"
)

// NewStore returns a Redis-backed store running on an in-process miniredis.
func NewStore(t testing.TB) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := store.NewRedisStore(client, "chat-test")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

// PutAccount writes an account document the way the account service would.
func PutAccount(t testing.TB, docs store.DocumentStore, username string, account models.Account) {
	t.Helper()
	require.NoError(t, docs.Put(context.Background(), store.KindAccount, username, account))
}
