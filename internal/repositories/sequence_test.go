package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-core/internal/store"
	"chat-core/internal/testutil"
)

type counterMock struct {
	mock.Mock
}

func (m *counterMock) Next(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

func TestSequenceAllocatorStrictlyIncreasingUnderConcurrency(t *testing.T) {
	docs, _ := testutil.NewStore(t)
	alloc := NewSequenceAllocator(docs, store.CounterMessageID)

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := alloc.Next(context.Background())
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		require.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}
	for want := int64(1); want <= n; want++ {
		assert.True(t, seen[want], "missing id %d", want)
	}
}

func TestSequenceAllocatorSurvivesRestart(t *testing.T) {
	docs, _ := testutil.NewStore(t)
	ctx := context.Background()

	first := NewSequenceAllocator(docs, store.CounterMessageID)
	_, err := first.Next(ctx)
	require.NoError(t, err)
	last, err := first.Next(ctx)
	require.NoError(t, err)

	restarted := NewSequenceAllocator(docs, store.CounterMessageID)
	next, err := restarted.Next(ctx)
	require.NoError(t, err)
	assert.Greater(t, next, last)
}

func TestSequenceAllocatorRejectsRegression(t *testing.T) {
	counter := new(counterMock)
	alloc := NewSequenceAllocator(counter, "ids")

	counter.On("Next", mock.Anything, "ids").Return(int64(5), nil).Once()
	counter.On("Next", mock.Anything, "ids").Return(int64(5), nil).Once()

	id, err := alloc.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	_, err = alloc.Next(context.Background())
	require.Error(t, err)
	counter.AssertExpectations(t)
}

func TestSequenceAllocatorPropagatesStoreError(t *testing.T) {
	counter := new(counterMock)
	alloc := NewSequenceAllocator(counter, "ids")
	counter.On("Next", mock.Anything, "ids").Return(int64(0), assert.AnError).Once()

	_, err := alloc.Next(context.Background())
	require.ErrorIs(t, err, assert.AnError)
}
