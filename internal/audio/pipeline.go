package audio

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"time"

	"github.com/emmett/micwire/internal/codec"
	"github.com/emmett/micwire/internal/observe"
)

// pipeline is the callback side of a capture session: every stage that runs
// inside the device's real-time context. It accumulates incoming samples,
// carves out full device-rate frames, resamples them to the target rate
// when needed, encodes each frame, and hands the packets to the queue.
//
// All state here is exclusively owned by the capture goroutine and its
// device callback; the consumer never touches it. Nothing in ingest blocks
// and steady-state processing reuses preallocated scratch buffers.
type pipeline struct {
	channels  int
	buffer    *FrameBuffer
	resampler *Resampler // nil when the device already runs at the target rate
	encoder   *codec.Encoder
	queue     *packetQueue
	metrics   *observe.Metrics

	inFrame []float32 // one carved frame at the device rate
	floats  []float32 // raw callback samples decoded from bytes
}

// newPipeline builds the capture-side stages for a device running at
// deviceHz with the given interleaved channel count. Construction errors
// (resampler or encoder) are fatal to the capture goroutine.
func newPipeline(cfg CaptureConfig, deviceHz, channels int, queue *packetQueue) (*pipeline, error) {
	targetHz := cfg.SampleRate.Hz()
	frameLen := cfg.FrameSize.SampleCount(cfg.SampleRate)

	// The accumulation buffer drains in device-rate chunks that span the
	// same wall time as one target-rate frame.
	inLen := frameLen
	var rs *Resampler
	if deviceHz != targetHz {
		inLen = cfg.FrameSize.InputSampleCount(deviceHz)
		var err error
		rs, err = NewResampler(deviceHz, targetHz, frameLen)
		if err != nil {
			return nil, err
		}
	}

	enc, err := codec.NewEncoder(targetHz, monoChannels, cfg.Application)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		channels:  channels,
		buffer:    NewFrameBuffer(inLen),
		resampler: rs,
		encoder:   enc,
		queue:     queue,
		metrics:   cfg.Metrics,
		inFrame:   make([]float32, inLen),
	}, nil
}

// ingest processes one device callback delivery: raw little-endian float32
// bytes, interleaved across p.channels. It down-mixes to mono, then drains
// as many full frames as are available, encoding each in capture order.
func (p *pipeline) ingest(data []byte) {
	p.buffer.AppendInterleaved(p.decodeSamples(data), p.channels)
	for p.buffer.Frame(p.inFrame) {
		if p.resampler != nil {
			if err := p.resampler.Process(p.inFrame, p.encodeFrame); err != nil {
				// Shape errors are caught at construction; anything
				// surfacing here is a defect worth hearing about once
				// per frame at most.
				slog.Warn("resample failed, dropping frame", "err", err)
			}
			continue
		}
		p.encodeFrame(p.inFrame)
	}
}

// encodeFrame compresses one target-rate frame and queues the packet.
// Zero-length packets and per-frame encode errors are skipped silently;
// a failed send means the consumer is gone and capture simply continues.
func (p *pipeline) encodeFrame(frame []float32) {
	start := time.Now()
	packet, err := p.encoder.Encode(frame)
	if err != nil {
		if p.metrics != nil {
			p.metrics.EncodeErrors.Add(context.Background(), 1)
		}
		return
	}
	if p.metrics != nil {
		p.metrics.EncodeDuration.Record(context.Background(), time.Since(start).Seconds())
	}
	if len(packet) == 0 {
		return
	}
	if !p.queue.Push(packet) {
		if p.metrics != nil {
			p.metrics.DroppedPackets.Add(context.Background(), 1)
		}
		return
	}
	if p.metrics != nil {
		p.metrics.PacketsEncoded.Add(context.Background(), 1)
	}
}

// discard drops a delivery without encoding and clears every buffered
// stage, so that resuming later starts from silence rather than stale
// audio.
func (p *pipeline) discard() {
	p.buffer.Reset()
	if p.resampler != nil {
		p.resampler.Reset()
	}
}

// decodeSamples reinterprets the callback's byte payload as little-endian
// float32 samples, reusing a scratch slice across calls.
func (p *pipeline) decodeSamples(data []byte) []float32 {
	n := len(data) / 4
	if cap(p.floats) < n {
		p.floats = make([]float32, n)
	}
	out := p.floats[:n]
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
