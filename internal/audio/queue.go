package audio

import "sync"

// packetQueue is the unbounded FIFO handoff between the capture goroutine
// (single producer) and the session owner (single consumer). Push never
// blocks: once the queue is closed, packets are silently discarded so the
// capture side keeps running even after the consumer is gone.
type packetQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	packets [][]byte
	closed  bool
}

func newPacketQueue() *packetQueue {
	q := &packetQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a packet. It reports whether the packet was accepted; false
// means the queue was closed and the packet dropped.
func (q *packetQueue) Push(packet []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.packets = append(q.packets, packet)
	q.cond.Signal()
	return true
}

// TryPop removes the oldest packet without blocking. ok is false when the
// queue is currently empty.
func (q *packetQueue) TryPop() (packet []byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Pop removes the oldest packet, blocking until one is available. After
// Close, it drains whatever is still queued and then returns ok=false.
func (q *packetQueue) Pop() (packet []byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.packets) == 0 && !q.closed {
		q.cond.Wait()
	}
	return q.popLocked()
}

func (q *packetQueue) popLocked() ([]byte, bool) {
	if len(q.packets) == 0 {
		return nil, false
	}
	p := q.packets[0]
	q.packets[0] = nil
	q.packets = q.packets[1:]
	return p, true
}

// Close marks the queue closed and wakes any blocked Pop. Closing twice is
// a no-op.
func (q *packetQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}
