package repositories

import (
	"context"
	"errors"

	"chat-core/internal/models"
	"chat-core/internal/store"
)

// InboxMutator changes an inbox in place and reports whether it must be saved.
type InboxMutator func(in *models.PrivateInbox) (bool, error)

// InboxPairMutator receives both inboxes of a private conversation and reports which
// of them must be saved. When both usernames are equal the same pointer is passed twice.
type InboxPairMutator func(first, second *models.PrivateInbox) (saveFirst, saveSecond bool, err error)

// InboxRepository abstracts per-user inbox documents.
type InboxRepository interface {
	Ensure(ctx context.Context, username string) (bool, error)
	Get(ctx context.Context, username string) (*models.PrivateInbox, error)
	Update(ctx context.Context, username string, fn InboxMutator) error
	UpdatePair(ctx context.Context, first, second string, fn InboxPairMutator) error
}

// InboxRepo stores inboxes in a DocumentStore, serializing writers per document.
type InboxRepo struct {
	docs  store.DocumentStore
	locks *store.Locks
}

func NewInboxRepo(docs store.DocumentStore, locks *store.Locks) *InboxRepo {
	return &InboxRepo{docs: docs, locks: locks}
}

func inboxLock(username string) string {
	return store.DocKey(store.KindInbox, username)
}

// load returns the stored inbox or a fresh one; created reports the latter.
func (r *InboxRepo) load(ctx context.Context, username string) (*models.PrivateInbox, bool, error) {
	var in models.PrivateInbox
	err := r.docs.Get(ctx, store.KindInbox, username, &in)
	if errors.Is(err, store.ErrNotFound) {
		return models.NewPrivateInbox(), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	in.Normalize()
	return &in, false, nil
}

// Ensure creates an empty inbox if none exists and reports whether it did.
func (r *InboxRepo) Ensure(ctx context.Context, username string) (bool, error) {
	unlock := r.locks.Lock(inboxLock(username))
	defer unlock()

	in, created, err := r.load(ctx, username)
	if err != nil || !created {
		return false, err
	}
	if err := r.docs.Put(ctx, store.KindInbox, username, in); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns a snapshot; a user without a stored inbox gets an empty one.
func (r *InboxRepo) Get(ctx context.Context, username string) (*models.PrivateInbox, error) {
	unlock := r.locks.RLock(inboxLock(username))
	defer unlock()

	in, _, err := r.load(ctx, username)
	return in, err
}

func (r *InboxRepo) Update(ctx context.Context, username string, fn InboxMutator) error {
	unlock := r.locks.Lock(inboxLock(username))
	defer unlock()

	in, _, err := r.load(ctx, username)
	if err != nil {
		return err
	}
	dirty, err := fn(in)
	if err != nil || !dirty {
		return err
	}
	return r.docs.Put(ctx, store.KindInbox, username, in)
}

// UpdatePair mutates two inboxes under both locks, then saves the ones fn marked as
// first and second, as two independent writes. A failure on the second write leaves
// the first in place. An inbox that is not marked is never written, so no document
// is created for it.
func (r *InboxRepo) UpdatePair(ctx context.Context, first, second string, fn InboxPairMutator) error {
	unlock := r.locks.LockPair(inboxLock(first), inboxLock(second))
	defer unlock()

	a, _, err := r.load(ctx, first)
	if err != nil {
		return err
	}
	b := a
	if second != first {
		if b, _, err = r.load(ctx, second); err != nil {
			return err
		}
	}

	saveFirst, saveSecond, err := fn(a, b)
	if err != nil {
		return err
	}
	if second == first {
		saveFirst, saveSecond = saveFirst || saveSecond, false
	}
	if saveFirst {
		if err := r.docs.Put(ctx, store.KindInbox, first, a); err != nil {
			return err
		}
	}
	if saveSecond {
		return r.docs.Put(ctx, store.KindInbox, second, b)
	}
	return nil
}

var _ InboxRepository = (*InboxRepo)(nil)
