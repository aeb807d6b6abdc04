package outqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerforge/red-stackd/internal/slavetable"
)

func TestEmptyQueuePeekFalse(t *testing.T) {
	q := New()
	_, ok := q.Peek()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestPushPeekPopFIFO(t *testing.T) {
	q := New()
	s1 := &slavetable.Slave{StackAddress: 0}
	s2 := &slavetable.Slave{StackAddress: 1}

	q.Push(WorkItem{Slave: s1, Packet: []byte("a")})
	q.Push(WorkItem{Slave: s2, Packet: []byte("b")})
	require.Equal(t, 2, q.Len())

	item, ok := q.Peek()
	require.True(t, ok)
	assert.Same(t, s1, item.Slave)
	assert.Equal(t, 2, q.Len(), "peek must not remove")

	q.Pop()
	assert.Equal(t, 1, q.Len())

	item, ok = q.Peek()
	require.True(t, ok)
	assert.Same(t, s2, item.Slave)

	q.Pop()
	assert.Equal(t, 0, q.Len())
}

func TestPopOnEmptyQueueIsNoOp(t *testing.T) {
	q := New()
	assert.NotPanics(t, func() { q.Pop() })
	assert.Equal(t, 0, q.Len())
}

func TestFailedSendLeavesItemInPlace(t *testing.T) {
	// Peek-without-pop is how a failed transceive leaves the head item for
	// retry on the next tick.
	q := New()
	s := &slavetable.Slave{StackAddress: 0}
	q.Push(WorkItem{Slave: s, Packet: []byte("retry-me")})

	for i := 0; i < 3; i++ {
		item, ok := q.Peek()
		require.True(t, ok)
		assert.Equal(t, []byte("retry-me"), item.Packet)
	}
	assert.Equal(t, 1, q.Len())
}
