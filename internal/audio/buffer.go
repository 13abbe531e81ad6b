package audio

// FrameBuffer accumulates raw float samples delivered by the device
// callback until full frames can be carved out of them. It is append-only
// from the device side and drained from the front in fixed-size chunks, so
// the oldest samples are always encoded first and no sample is encoded
// twice.
//
// The buffer is exclusively owned by the capture goroutine's callback
// context and carries no locking of its own.
type FrameBuffer struct {
	samples  []float32
	frameLen int
}

// NewFrameBuffer creates a buffer that drains in chunks of frameLen samples.
func NewFrameBuffer(frameLen int) *FrameBuffer {
	return &FrameBuffer{
		samples:  make([]float32, 0, 2*frameLen),
		frameLen: frameLen,
	}
}

// Append adds mono samples to the back of the buffer.
func (b *FrameBuffer) Append(samples []float32) {
	b.samples = append(b.samples, samples...)
}

// AppendInterleaved adds interleaved multi-channel samples, down-mixing
// each channel group to one mono sample by averaging. channels <= 1 appends
// the samples unchanged.
func (b *FrameBuffer) AppendInterleaved(samples []float32, channels int) {
	if channels <= 1 {
		b.Append(samples)
		return
	}
	for i := 0; i+channels <= len(samples); i += channels {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i+c]
		}
		b.samples = append(b.samples, sum/float32(channels))
	}
}

// Frame copies the oldest full frame into dst and removes it from the
// buffer. dst must be at least frameLen long. It returns false when fewer
// than frameLen samples are buffered; the partial remainder is retained for
// the next append.
func (b *FrameBuffer) Frame(dst []float32) bool {
	if len(b.samples) < b.frameLen {
		return false
	}
	copy(dst[:b.frameLen], b.samples)
	n := copy(b.samples, b.samples[b.frameLen:])
	b.samples = b.samples[:n]
	return true
}

// Len returns the number of buffered samples.
func (b *FrameBuffer) Len() int {
	return len(b.samples)
}

// Reset discards all buffered samples so capture can resume later without
// stale audio.
func (b *FrameBuffer) Reset() {
	b.samples = b.samples[:0]
}
