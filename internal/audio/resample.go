package audio

import (
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
)

// Resampler converts fixed blocks of device-rate samples into fixed
// target-rate frames. The underlying engine is a streaming converter whose
// per-call output length varies (shorter on the first blocks while its
// filter fills); a small output FIFO absorbs that so consumers only ever
// see frames of exactly the target length.
//
// Present in the pipeline only when the device's native rate differs from
// the target encode rate. Exclusively owned by the capture goroutine.
type Resampler struct {
	eng     *resampler.SimpleResamplerFloat32
	outLen  int
	pending []float32
}

// NewResampler creates a converter from inputHz to outputHz emitting frames
// of outLen samples. Construction failures are fatal to the capture
// goroutine; per-call failures are not expected after a successful
// construction.
func NewResampler(inputHz, outputHz, outLen int) (*Resampler, error) {
	eng, err := resampler.NewEngineFloat32(float64(inputHz), float64(outputHz), resampler.QualityMedium)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler (%d Hz -> %d Hz): %w", inputHz, outputHz, err)
	}
	return &Resampler{
		eng:     eng,
		outLen:  outLen,
		pending: make([]float32, 0, 2*outLen),
	}, nil
}

// Process converts one device-rate block and invokes emit once per complete
// target-rate frame now available. Frames passed to emit are transient and
// must not be retained beyond the call.
func (r *Resampler) Process(block []float32, emit func(frame []float32)) error {
	out, err := r.eng.Process(block)
	if err != nil {
		return fmt.Errorf("resample: %w", err)
	}
	r.pending = append(r.pending, out...)
	for len(r.pending) >= r.outLen {
		emit(r.pending[:r.outLen])
		n := copy(r.pending, r.pending[r.outLen:])
		r.pending = r.pending[:n]
	}
	return nil
}

// Pending returns the number of converted samples waiting for a full frame.
func (r *Resampler) Pending() int {
	return len(r.pending)
}

// Reset discards converted samples that have not yet formed a full frame.
// Used when capture output is suppressed so no stale audio leaks into the
// next frame once it resumes.
func (r *Resampler) Reset() {
	r.pending = r.pending[:0]
}
