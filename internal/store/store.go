package store

import (
	"context"
	"errors"
)

// ErrNotFound means the document has never been written. Callers treat it as the
// empty initial state, never as a failure.
var ErrNotFound = errors.New("document not found")

// Kind namespaces documents of one type.
type Kind string

const (
	KindAccount Kind = "account"
	KindInbox   Kind = "inbox"
	KindGroup   Kind = "group"
)

// CounterMessageID is the counter shared by private and group message ids.
const CounterMessageID = "message_id"

// DocumentStore persists JSON documents keyed by (kind, key). Put is a full rewrite.
type DocumentStore interface {
	Get(ctx context.Context, kind Kind, key string, dst any) error
	Put(ctx context.Context, kind Kind, key string, doc any) error
	Keys(ctx context.Context, kind Kind) ([]string, error)
	Close() error
}

// Counter hands out durable, strictly increasing values starting at 1.
type Counter interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Backend is a store that also owns the counters.
type Backend interface {
	DocumentStore
	Counter
}
