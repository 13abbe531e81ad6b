// Package transport moves encoded audio packets over NATS. A Publisher
// forwards the packets a capture session produces; a Subscriber delivers
// incoming packets to a handler, typically feeding Session.Decode on the
// receiving side.
package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// connectAttempts bounds the initial connection retry loop.
const connectAttempts = 5

// PacketMessage is the wire envelope for one encoded audio packet.
type PacketMessage struct {
	StreamID   string `json:"stream_id"`   // identifies the capture stream
	Sequence   uint64 `json:"seq"`         // monotonic per stream, capture order
	SampleRate int    `json:"sample_rate"` // decode rate in Hz
	Data       []byte `json:"data"`        // the opaque encoded packet
}

// Conn is the subset of *nats.Conn the transport uses; injected so tests
// run without a broker.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

// Connect dials the NATS server with a short retry loop.
func Connect(url string) (Conn, error) {
	var nc *nats.Conn
	var err error
	for i := 0; i < connectAttempts; i++ {
		nc, err = nats.Connect(url)
		if err == nil {
			slog.Info("connected to NATS", "url", url)
			return nc, nil
		}
		slog.Warn("failed to connect to NATS, retrying",
			"url", url, "attempt", i+1, "attempts", connectAttempts, "err", err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to NATS after %d attempts: %w", connectAttempts, err)
}

// Publisher publishes encoded packets as [PacketMessage] envelopes on one
// subject. Not safe for concurrent use; one capture consumer owns it.
type Publisher struct {
	conn       Conn
	subject    string
	streamID   string
	sampleRate int
	seq        uint64
}

// NewPublisher creates a publisher for the given subject and stream
// identity. sampleRate is stamped into every envelope so receivers can
// build a matching decoder.
func NewPublisher(conn Conn, subject, streamID string, sampleRate int) *Publisher {
	return &Publisher{
		conn:       conn,
		subject:    subject,
		streamID:   streamID,
		sampleRate: sampleRate,
	}
}

// Publish wraps one packet in an envelope and publishes it. Sequence
// numbers are monotonic in capture order.
func (p *Publisher) Publish(packet []byte) error {
	msg := PacketMessage{
		StreamID:   p.streamID,
		Sequence:   p.seq,
		SampleRate: p.sampleRate,
		Data:       packet,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal packet message: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish packet: %w", err)
	}
	p.seq++
	return nil
}

// Subscriber delivers incoming packet envelopes to a handler.
type Subscriber struct {
	conn    Conn
	subject string
	sub     *nats.Subscription
}

// NewSubscriber creates a subscriber for the given subject.
func NewSubscriber(conn Conn, subject string) *Subscriber {
	return &Subscriber{conn: conn, subject: subject}
}

// Start subscribes and invokes handler for every well-formed envelope.
// Malformed messages are logged and skipped.
func (s *Subscriber) Start(handler func(PacketMessage)) error {
	sub, err := s.conn.Subscribe(s.subject, func(m *nats.Msg) {
		var msg PacketMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			slog.Warn("failed to unmarshal packet message, skipping",
				"subject", m.Subject, "bytes", len(m.Data), "err", err)
			return
		}
		handler(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub
	return nil
}

// Stop unsubscribes. Safe to call before Start or more than once.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", s.subject, err)
	}
	s.sub = nil
	return nil
}
