package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/micwire/internal/codec"
)

// f32leBytes packs float32 samples the way the device callback delivers
// them: interleaved little-endian float32.
func f32leBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func sine(n, rateHz int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.4 * math.Sin(2*math.Pi*440*float64(i)/float64(rateHz)))
	}
	return out
}

func testPipeline(t *testing.T, deviceHz, channels int) (*pipeline, *packetQueue) {
	t.Helper()
	q := newPacketQueue()
	cfg := DefaultCaptureConfig()
	p, err := newPipeline(cfg, deviceHz, channels, q)
	require.NoError(t, err)
	return p, q
}

func drainCount(q *packetQueue) int {
	n := 0
	for {
		if _, ok := q.TryPop(); !ok {
			return n
		}
		n++
	}
}

func TestPipelineOnePacketPerFrame(t *testing.T) {
	// Device already at the target rate: no resampler, one packet per
	// 480-sample frame regardless of delivery chunking.
	p, q := testPipeline(t, 48000, 1)
	require.Nil(t, p.resampler)

	samples := sine(480*5, 48000)
	// Deliver in ragged chunks.
	for _, chunk := range [][2]int{{0, 100}, {100, 700}, {700, 1200}, {1200, 2400}} {
		p.ingest(f32leBytes(samples[chunk[0]:chunk[1]]))
	}
	p.ingest(f32leBytes(samples[2400:]))

	assert.Equal(t, 5, drainCount(q))
	assert.Equal(t, 0, p.buffer.Len(), "no leftover after exact frames")
}

func TestPipelineStereoDownmix(t *testing.T) {
	p, q := testPipeline(t, 48000, 2)

	// 480 stereo sample pairs = one mono frame.
	stereo := make([]float32, 960)
	mono := sine(480, 48000)
	for i, s := range mono {
		stereo[2*i] = s
		stereo[2*i+1] = s
	}
	p.ingest(f32leBytes(stereo))

	assert.Equal(t, 1, drainCount(q))
}

func TestPipelineResamplesDeviceRate(t *testing.T) {
	// 44.1 kHz device with a 48 kHz target: resampler present, input
	// frames carved at the device-rate length, packets decode to the
	// target frame length.
	p, q := testPipeline(t, 44100, 1)
	require.NotNil(t, p.resampler)
	assert.Equal(t, 441, len(p.inFrame), "input frame length follows the device rate")

	samples := sine(441*50, 44100)
	p.ingest(f32leBytes(samples))

	dec, err := codec.NewDecoder(48000, 1, 480)
	require.NoError(t, err)
	packets := 0
	for {
		packet, ok := q.TryPop()
		if !ok {
			break
		}
		frame, err := dec.Decode(packet)
		require.NoError(t, err)
		assert.Equal(t, 480, len(frame), "encoded frames use the target length, not the device block length")
		packets++
	}
	assert.Greater(t, packets, 40)
}

func TestPipelineDiscardClearsState(t *testing.T) {
	p, q := testPipeline(t, 48000, 1)

	// Leave a partial frame buffered, then discard (the stop-flag path).
	p.ingest(f32leBytes(sine(100, 48000)))
	assert.Equal(t, 100, p.buffer.Len())
	p.discard()
	assert.Equal(t, 0, p.buffer.Len())

	// Resuming produces packets without replaying discarded audio: a
	// full fresh frame yields exactly one packet.
	p.ingest(f32leBytes(sine(480, 48000)))
	assert.Equal(t, 1, drainCount(q))
}

func TestDisabledSessionIsEmptyProducer(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Disabled = true
	s, err := NewSession(cfg)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	delivered := false
	s.TryReceive(func([]float32) { delivered = true })
	assert.False(t, delivered)

	// Receive must return immediately rather than block forever.
	done := make(chan struct{})
	go func() {
		s.Receive(func([]float32) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Receive on a disabled session did not return")
	}
}

func TestSessionDecodeBypassesQueue(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Disabled = true
	s, err := NewSession(cfg)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	enc, err := codec.NewEncoder(48000, 1, codec.Audio)
	require.NoError(t, err)
	packet, err := enc.Encode(sine(480, 48000))
	require.NoError(t, err)
	require.NotEmpty(t, packet)

	var got int
	s.Decode(packet, func(frame []float32) { got = len(frame) })
	assert.Equal(t, 480, got)
}

func TestSessionDecodeSkipsCorruptPacket(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Disabled = true
	s, err := NewSession(cfg)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	called := false
	s.Decode([]byte{0xff, 0x13, 0x37}, func([]float32) { called = true })
	assert.False(t, called, "corrupt packets are skipped, not delivered")
}

func TestSessionCloseIdempotent(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Disabled = true
	s, err := NewSession(cfg)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestSessionConstructsWithoutAudioHardware(t *testing.T) {
	// Whatever the host looks like (no devices, no backend), session
	// construction must succeed and teardown must not leak or panic;
	// failures stay inside the capture goroutine.
	s, err := NewSession(DefaultCaptureConfig())
	require.NoError(t, err)

	time.Sleep(3 * Frame480.Pacing())
	s.Stop(true)
	s.Stop(false)
	require.NoError(t, s.Close())
}

func TestResourceSerializesAccess(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Disabled = true
	r, err := NewResource(cfg)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	r.Stop(true)
	r.Stop(false)
	r.TryReceive(func([]float32) { t.Fatal("disabled resource must not deliver frames") })
	r.TryReceivePackets(func([]byte) { t.Fatal("disabled resource must not deliver packets") })
	// Queue is closed on a disabled session, so the blocking variant returns.
	r.ReceivePackets(func([]byte) { t.Fatal("disabled resource must not deliver packets") })
}
