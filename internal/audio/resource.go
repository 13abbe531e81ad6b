package audio

import "sync"

// Resource is a mutex-guarded facade over a [Session] for host frameworks
// that share one capture pipeline across callers expecting serialized,
// single-consumer access. It adds no semantics beyond the lock; blocking
// operations hold it for their full duration, so mix blocking and
// non-blocking callers with care.
type Resource struct {
	mu      sync.Mutex
	session *Session
}

// NewResource constructs a session and wraps it.
func NewResource(cfg CaptureConfig) (*Resource, error) {
	s, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return &Resource{session: s}, nil
}

// TryReceive drains and decodes all queued packets without blocking.
func (r *Resource) TryReceive(sink FrameSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.TryReceive(sink)
}

// Receive blocks for packets and decodes them until the producer closes.
func (r *Resource) Receive(sink FrameSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.Receive(sink)
}

// TryReceivePackets drains all queued packets without blocking.
func (r *Resource) TryReceivePackets(sink PacketSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.TryReceivePackets(sink)
}

// ReceivePackets blocks for packets until the producer closes.
func (r *Resource) ReceivePackets(sink PacketSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.ReceivePackets(sink)
}

// Decode decodes one caller-supplied packet, bypassing the queue.
func (r *Resource) Decode(packet []byte, sink FrameSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.Decode(packet, sink)
}

// Stop sets or clears the capture stop flag.
func (r *Resource) Stop(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.Stop(v)
}

// Close tears down the underlying session.
func (r *Resource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Close()
}
