package repositories

import (
	"context"
	"fmt"
	"sync"

	"chat-core/internal/store"
)

// SequenceAllocator issues message ids shared by private and group messages. One
// instance is injected into every path that creates messages.
type SequenceAllocator struct {
	counter store.Counter
	name    string

	mu   sync.Mutex
	last int64
}

func NewSequenceAllocator(counter store.Counter, name string) *SequenceAllocator {
	return &SequenceAllocator{counter: counter, name: name}
}

// Next persists the advanced counter before returning the id. A crash after the
// store write burns an id; it is never handed out twice.
func (a *SequenceAllocator) Next(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := a.counter.Next(ctx, a.name)
	if err != nil {
		return 0, err
	}
	if id <= a.last {
		return 0, fmt.Errorf("sequence %s went backwards: %d after %d", a.name, id, a.last)
	}
	a.last = id
	return id, nil
}
