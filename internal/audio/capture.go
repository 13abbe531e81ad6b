package audio

import (
	"github.com/emmett/micwire/internal/codec"
	"github.com/emmett/micwire/internal/observe"
)

// CaptureConfig holds the immutable parameters of one capture session.
// It is read once at session construction and never mutated afterwards.
//
// Capture is mono: when the device delivers more than one channel, adjacent
// channel groups are down-mixed by averaging before any further processing.
type CaptureConfig struct {
	// Device is the exact name of the input device to bind. Empty means
	// the system default input. Names that match no enumerated device
	// also fall back to the default at binding time; nothing is rejected
	// here.
	Device string

	// SampleRate is the target encode rate.
	SampleRate SampleRate

	// FrameSize is the Opus frame duration, as a 48 kHz reference sample
	// count.
	FrameSize FrameSize

	// Application is the Opus coding mode.
	Application codec.Application

	// Disabled suppresses the capture goroutine entirely. The session is
	// still constructible and behaves as a permanently empty producer.
	Disabled bool

	// Metrics receives pipeline counters when non-nil. The pipeline runs
	// identically without it.
	Metrics *observe.Metrics
}

// DefaultCaptureConfig returns the default capture parameters: system
// default input, 48 kHz, 10 ms frames, general audio coding.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:  Rate48,
		FrameSize:   Frame480,
		Application: codec.Audio,
	}
}
