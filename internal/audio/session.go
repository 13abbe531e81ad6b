// Package audio implements the capture-to-packet pipeline: it binds an
// input device through the miniaudio backend, runs a background capture
// goroutine that accumulates, resamples, and Opus-encodes microphone
// samples into packets, and hands those packets to a consumer through an
// ordered unbounded queue.
//
// Device, stream, resampler, and encoder failures never surface as typed
// errors from the session; they are logged and the session simply starves.
// The only indication of a dead capture path is that no packets arrive.
package audio

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/emmett/micwire/internal/codec"
	"github.com/emmett/micwire/internal/observe"
)

// monoChannels is the encode-side channel count. Capture is down-mixed to
// mono before encoding; stereo-preserving paths are not implemented.
const monoChannels = 1

// PacketSink consumes one encoded packet. The slice is owned by the sink.
type PacketSink func(packet []byte)

// FrameSink consumes one decoded PCM frame of float samples in [-1.0, 1.0].
// The slice is transient and must not be retained beyond the call.
type FrameSink func(frame []float32)

// Session owns the consumer half of a capture pipeline: the packet queue's
// receiving end, the decoder, and the kill/stop flags shared with the
// capture goroutine. Exactly one capture goroutine is spawned per session
// (none when the config is disabled); it owns the device stream, encoder,
// resampler, and accumulation buffer, and exits on its own once the kill
// flag is set.
//
// A Session is not safe for concurrent consumers; wrap it in a [Resource]
// when several callers need serialized access.
type Session struct {
	queue   *packetQueue
	decoder *codec.Decoder
	metrics *observe.Metrics

	// kill and stop are the only state shared with the capture
	// goroutine. kill terminates it; stop silences encoding without
	// tearing the stream down.
	kill atomic.Bool
	stop atomic.Bool
}

// NewSession constructs a session and spawns its capture goroutine.
// Construction only fails when the decoder cannot be built for the
// configured rate; every capture-side failure after this point is logged
// by the goroutine and leaves the session packet-less but valid.
func NewSession(cfg CaptureConfig) (*Session, error) {
	dec, err := codec.NewDecoder(cfg.SampleRate.Hz(), monoChannels, cfg.FrameSize.SampleCount(cfg.SampleRate))
	if err != nil {
		return nil, err
	}

	s := &Session{
		queue:   newPacketQueue(),
		decoder: dec,
		metrics: cfg.Metrics,
	}
	if cfg.Disabled {
		// Permanently empty producer: Receive returns immediately,
		// TryReceive never yields.
		s.queue.Close()
		return s, nil
	}
	go s.capture(cfg)
	return s, nil
}

// capture is the capture goroutine body. It binds the device, builds the
// pipeline, starts the stream, and then sleeps one pacing interval at a
// time polling the kill flag. Every failure path logs and returns, closing
// the queue so blocked consumers wake up.
func (s *Session) capture(cfg CaptureConfig) {
	defer s.queue.Close()
	if cfg.Metrics != nil {
		cfg.Metrics.ActiveCaptures.Add(context.Background(), 1)
		defer cfg.Metrics.ActiveCaptures.Add(context.Background(), -1)
	}

	mctx, err := malgo.InitContext(preferredBackends(), malgo.ContextConfig{}, nil)
	if err != nil {
		slog.Error("failed to initialize audio backend", "err", err)
		return
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	// Zero keeps the device's native channel count and sample rate; the
	// pipeline down-mixes and resamples itself.
	deviceConfig.Capture.Channels = 0
	deviceConfig.SampleRate = 0

	if cfg.Device != "" {
		if id := findCaptureDevice(mctx, cfg.Device); id != nil {
			deviceConfig.Capture.DeviceID = id.Pointer()
		} else {
			slog.Warn("input device not found, using system default", "device", cfg.Device)
		}
	}

	// The pipeline needs the opened device's native format, so it is
	// published to the callback after InitDevice but before Start; the
	// callback never fires before Start.
	var pl atomic.Pointer[pipeline]
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			p := pl.Load()
			if p == nil {
				return
			}
			if s.stop.Load() {
				p.discard()
				return
			}
			p.ingest(input)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		slog.Error("failed to open input device", "device", cfg.Device, "err", err)
		return
	}
	defer device.Uninit()

	deviceHz := int(device.SampleRate())
	channels := int(device.CaptureChannels())
	p, err := newPipeline(cfg, deviceHz, channels, s.queue)
	if err != nil {
		slog.Error("failed to build capture pipeline",
			"device_hz", deviceHz,
			"channels", channels,
			"target_hz", cfg.SampleRate.Hz(),
			"err", err)
		return
	}
	pl.Store(p)

	if err := device.Start(); err != nil {
		slog.Error("failed to start input device", "err", err)
		return
	}
	defer func() { _ = device.Stop() }()

	slog.Info("audio capture started",
		"device_hz", deviceHz,
		"channels", channels,
		"target_hz", cfg.SampleRate.Hz(),
		"frame", cfg.FrameSize.SampleCount(cfg.SampleRate),
		"resampling", deviceHz != cfg.SampleRate.Hz())

	pacing := cfg.FrameSize.Pacing()
	for !s.kill.Load() {
		time.Sleep(pacing)
	}
}

// TryReceivePackets drains all currently queued packets into sink without
// blocking and returns immediately once the queue is empty.
func (s *Session) TryReceivePackets(sink PacketSink) {
	for {
		packet, ok := s.queue.TryPop()
		if !ok {
			return
		}
		sink(packet)
	}
}

// ReceivePackets blocks for packets and feeds each to sink in capture
// order, returning only when the producer side has been closed and the
// queue fully drained.
func (s *Session) ReceivePackets(sink PacketSink) {
	for {
		packet, ok := s.queue.Pop()
		if !ok {
			return
		}
		sink(packet)
	}
}

// TryReceive drains all currently queued packets, decoding each and
// invoking sink with the resulting PCM frame. Corrupt packets are skipped.
func (s *Session) TryReceive(sink FrameSink) {
	s.TryReceivePackets(func(packet []byte) {
		s.decodePacket(packet, sink)
	})
}

// Receive blocks for packets, decoding each and invoking sink with the
// resulting PCM frame, until the producer side has been closed. Corrupt
// packets are skipped.
func (s *Session) Receive(sink FrameSink) {
	s.ReceivePackets(func(packet []byte) {
		s.decodePacket(packet, sink)
	})
}

// Decode decodes one caller-supplied packet directly, bypassing the queue.
// Used for packets that arrive from outside this pipeline, e.g. over a
// network transport.
func (s *Session) Decode(packet []byte, sink FrameSink) {
	s.decodePacket(packet, sink)
}

func (s *Session) decodePacket(packet []byte, sink FrameSink) {
	frame, err := s.decoder.Decode(packet)
	if err != nil {
		if s.metrics != nil {
			s.metrics.DecodeErrors.Add(context.Background(), 1)
		}
		slog.Warn("failed to decode packet, skipping", "bytes", len(packet), "err", err)
		return
	}
	if len(frame) == 0 {
		return
	}
	sink(frame)
}

// Stop sets or clears the stop flag. While set, the device callback
// discards newly captured samples without encoding; the stream and
// goroutine stay up, and clearing the flag resumes production without
// replaying discarded audio.
func (s *Session) Stop(v bool) {
	s.stop.Store(v)
}

// Kill sets the kill flag. The capture goroutine observes it within one
// pacing interval, stops the stream, and exits, releasing every
// capture-side resource.
func (s *Session) Kill() {
	s.kill.Store(true)
}

// Close kills the capture goroutine and closes the consuming end of the
// queue, waking any blocked Receive. Packets the producer attempts to send
// afterwards are discarded silently. Close is idempotent and never fails;
// the error return satisfies io.Closer.
func (s *Session) Close() error {
	s.Kill()
	s.queue.Close()
	return nil
}
