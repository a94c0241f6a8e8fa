package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGroupSeedsWelcome(t *testing.T) {
	g := NewGroup("gophers", "", "")

	assert.Equal(t, DefaultProfileURL, g.ProfileURL)
	assert.Equal(t, LastMessage{Username: WelcomeUsername, Text: WelcomeText, Time: WelcomeTime}, g.Last)
	assert.Empty(t, g.Messages)
}

func TestGroupMembership(t *testing.T) {
	g := NewGroup("gophers", "", "")

	assert.True(t, g.AddMember("alice"))
	assert.False(t, g.AddMember("alice"))
	assert.True(t, g.SetOnline("alice", true))
	assert.False(t, g.SetOnline("alice", true))

	assert.True(t, g.RemoveMember("alice"))
	assert.False(t, g.RemoveMember("alice"))
	assert.Empty(t, g.OnlineMembers)
}

func TestGroupAppendIsIdempotentAndTracksLast(t *testing.T) {
	g := NewGroup("gophers", "", "")

	g.Append(Message{ID: 1, From: "alice", Text: "first", Time: "10:00"})
	g.Append(Message{ID: 2, From: "bob", Text: "second", Time: "10:01"})
	require.Equal(t, int64(2), g.Last.ID)

	stored := g.Append(Message{ID: 1, From: "mallory", Text: "rewrite", Time: "10:02"})

	assert.Equal(t, "first", stored.Text)
	assert.Equal(t, "first", g.Messages[1].Text)
	assert.Equal(t, LastMessage{Username: "alice", Text: "first", Time: "10:00", ID: 1}, g.Last)
	assert.Len(t, g.Messages, 2)
}
