package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chat-core/internal/mocks"
	"chat-core/internal/models"
	"chat-core/internal/observability"
	"chat-core/internal/ws"
)

type recordedBroadcast struct {
	room  ws.Room
	event any
}

type broadcasterStub struct {
	sent []recordedBroadcast
}

func (b *broadcasterStub) Broadcast(room ws.Room, event any) int {
	b.sent = append(b.sent, recordedBroadcast{room: room, event: event})
	return 1
}

func withPublisher(t *testing.T) *mocks.PublisherMock {
	t.Helper()
	pub := new(mocks.PublisherMock)
	observability.SetPublisher(pub)
	t.Cleanup(func() { observability.SetPublisher(nil) })
	return pub
}

func TestPrivateSentFansOutToBothParticipants(t *testing.T) {
	pub := withPublisher(t)
	pub.On("Publish", mock.Anything, RoutingPrivateSent, mock.Anything, map[string]string{"x-request-id": "req-1"}).Return(nil).Once()

	rooms := &broadcasterStub{}
	d := NewDispatcher(rooms)
	d.PrivateSent(WithRequestID(context.Background(), "req-1"), models.Message{ID: 3, From: "alice", To: "bob", Text: "hi"})

	if assert.Len(t, rooms.sent, 2) {
		assert.Equal(t, ws.UserRoom("bob"), rooms.sent[0].room)
		assert.Equal(t, "alice", rooms.sent[0].event.(models.ChatEvent).Peer)
		assert.Equal(t, ws.UserRoom("alice"), rooms.sent[1].room)
		assert.Equal(t, "bob", rooms.sent[1].event.(models.ChatEvent).Peer)
	}
	pub.AssertExpectations(t)
}

func TestSelfMessageIsPushedOnce(t *testing.T) {
	pub := withPublisher(t)
	pub.On("Publish", mock.Anything, RoutingPrivateEdited, mock.Anything, mock.Anything).Return(nil)

	rooms := &broadcasterStub{}
	NewDispatcher(rooms).PrivateEdited(context.Background(), "alice", "alice", models.Message{ID: 1})
	assert.Len(t, rooms.sent, 1)
	assert.Equal(t, models.EventEdit, rooms.sent[0].event.(models.ChatEvent).Type)
}

func TestGroupEvents(t *testing.T) {
	pub := withPublisher(t)
	pub.On("Publish", mock.Anything, RoutingGroupPosted, mock.Anything, mock.Anything).Return(nil).Once()
	pub.On("Publish", mock.Anything, RoutingGroupSkipped, mock.Anything, mock.Anything).Return(nil).Once()

	rooms := &broadcasterStub{}
	d := NewDispatcher(rooms)
	d.GroupPosted(context.Background(), models.Message{ID: 9, From: "alice", ToGroup: "gophers"})
	d.GroupSkipped(context.Background(), "nowhere", "alice", "group_not_found")

	if assert.Len(t, rooms.sent, 1) {
		assert.Equal(t, ws.GroupRoom("gophers"), rooms.sent[0].room)
	}
	pub.AssertExpectations(t)
}
