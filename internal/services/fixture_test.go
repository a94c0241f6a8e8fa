package services

import (
	"testing"

	"chat-core/internal/identity"
	"chat-core/internal/models"
	"chat-core/internal/repositories"
	"chat-core/internal/store"
	"chat-core/internal/testutil"
)

type fixture struct {
	docs      store.DocumentStore
	inboxes   *repositories.InboxRepo
	groupRepo *repositories.GroupRepo
	ids       *repositories.SequenceAllocator
	chat      *ChatService
	groups    *GroupService
}

func newFixture(t *testing.T, autoCreate bool) *fixture {
	t.Helper()
	docs, _ := testutil.NewStore(t)
	locks := store.NewLocks()
	f := &fixture{
		docs:      docs,
		inboxes:   repositories.NewInboxRepo(docs, locks),
		groupRepo: repositories.NewGroupRepo(docs, locks),
		ids:       repositories.NewSequenceAllocator(docs, store.CounterMessageID),
	}
	gate := identity.NewDocumentGate(docs)
	f.chat = NewChatService(f.inboxes, f.ids, gate)
	f.groups = NewGroupService(f.groupRepo, f.inboxes, f.ids, gate, autoCreate)

	for _, name := range []string{"alice", "bob", "carol"} {
		testutil.PutAccount(t, docs, name, models.Account{
			FullName: name + " example",
			Token:    name + "-token",
			Profile:  "https://img.example/" + name,
			Status:   "online",
		})
	}
	return f
}

func creds(username string) Credentials {
	return Credentials{Username: username, Token: username + "-token"}
}
