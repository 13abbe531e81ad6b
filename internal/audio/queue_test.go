package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketQueueOrder(t *testing.T) {
	q := newPacketQueue()
	require.True(t, q.Push([]byte("P1")))
	require.True(t, q.Push([]byte("P2")))
	require.True(t, q.Push([]byte("P3")))

	var got []string
	for {
		p, ok := q.TryPop()
		if !ok {
			break
		}
		got = append(got, string(p))
	}
	assert.Equal(t, []string{"P1", "P2", "P3"}, got)
}

func TestPacketQueueTryPopEmpty(t *testing.T) {
	q := newPacketQueue()
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestPacketQueuePopBlocksUntilPush(t *testing.T) {
	q := newPacketQueue()
	done := make(chan []byte)
	go func() {
		p, ok := q.Pop()
		require.True(t, ok)
		done <- p
	}()

	time.Sleep(10 * time.Millisecond)
	require.True(t, q.Push([]byte("wake")))

	select {
	case p := <-done:
		assert.Equal(t, "wake", string(p))
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake on Push")
	}
}

func TestPacketQueueCloseWakesPop(t *testing.T) {
	q := newPacketQueue()
	done := make(chan bool)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok, "Pop on closed empty queue returns ok=false")
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake on Close")
	}
}

func TestPacketQueuePushAfterCloseDropped(t *testing.T) {
	q := newPacketQueue()
	q.Close()
	assert.False(t, q.Push([]byte("late")), "send after close is a silent drop")

	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestPacketQueueDrainsAfterClose(t *testing.T) {
	q := newPacketQueue()
	require.True(t, q.Push([]byte("P1")))
	require.True(t, q.Push([]byte("P2")))
	q.Close()

	p, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "P1", string(p))
	p, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "P2", string(p))
	_, ok = q.Pop()
	assert.False(t, ok)
}
