package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-core/internal/models"
	"chat-core/internal/testutil"
)

func TestDocumentGateAuthenticate(t *testing.T) {
	docs, _ := testutil.NewStore(t)
	testutil.PutAccount(t, docs, "alice", models.Account{Token: "secret", FullName: "Alice"})
	gate := NewDocumentGate(docs)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		token    string
		want     Status
	}{
		{"valid", "alice", "secret", StatusOK},
		{"wrong token", "alice", "guess", StatusTokenInvalid},
		{"empty token", "alice", "", StatusTokenInvalid},
		{"unknown user", "mallory", "secret", StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gate.Authenticate(ctx, tc.username, tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDocumentGateUserExistsAndProfile(t *testing.T) {
	docs, _ := testutil.NewStore(t)
	testutil.PutAccount(t, docs, "bob", models.Account{FullName: "Bob", Profile: "https://img/bob", Status: "online", Role: "admin"})
	gate := NewDocumentGate(docs)
	ctx := context.Background()

	exists, err := gate.UserExists(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = gate.UserExists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)

	profile, err := gate.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.Profile{Username: "bob", FullName: "Bob", ProfileURL: "https://img/bob", Status: "online", Role: "admin"}, profile)

	_, err = gate.Profile(ctx, "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}
