package relay

import (
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCall(requestID string) *pendingCall {
	return &pendingCall{
		requestID:  requestID,
		sessionKey: "etsy:user-1",
		deadline:   time.Now().Add(time.Minute),
		result:     make(chan domain.Outcome, 1),
	}
}

func TestPendingTable_PutTake(t *testing.T) {
	table := NewPendingTable()
	call := newTestCall("req-1")

	table.Put(call)
	assert.Equal(t, 1, table.Len())

	taken, ok := table.Take("req-1")
	require.True(t, ok)
	assert.Same(t, call, taken)
	assert.Equal(t, 0, table.Len())
}

func TestPendingTable_TakeIsExactlyOnce(t *testing.T) {
	table := NewPendingTable()
	table.Put(newTestCall("req-1"))

	_, ok := table.Take("req-1")
	require.True(t, ok)

	taken, ok := table.Take("req-1")
	assert.False(t, ok)
	assert.Nil(t, taken)
}

func TestPendingTable_TakeUnknown(t *testing.T) {
	table := NewPendingTable()

	taken, ok := table.Take("never-registered")
	assert.False(t, ok)
	assert.Nil(t, taken)
}

func TestPendingTable_ConcurrentTakeSingleWinner(t *testing.T) {
	table := NewPendingTable()
	table.Put(newTestCall("req-1"))

	const contenders = 16

	var wg sync.WaitGroup
	wins := make(chan struct{}, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := table.Take("req-1"); ok {
				wins <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	assert.Equal(t, 1, won)
}

func TestPendingTable_Drain(t *testing.T) {
	table := NewPendingTable()
	first := newTestCall("req-1")
	second := newTestCall("req-2")
	table.Put(first)
	table.Put(second)

	drained := table.Drain("shutting down")

	assert.Equal(t, 2, drained)
	assert.Equal(t, 0, table.Len())

	for _, call := range []*pendingCall{first, second} {
		outcome := <-call.result
		assert.False(t, outcome.OK)
		assert.Equal(t, domain.FailureRemoteError, outcome.Kind)
		assert.Equal(t, "shutting down", outcome.Message)
		assert.True(t, outcome.Retryable)
	}
}
