package audio

import (
	"fmt"
	"time"
)

// SampleRate is one of the sample rates the Opus codec accepts, expressed
// as a kilohertz multiplier. The numeric rate in Hz is the enum value times
// 1000. No other rates are valid anywhere in the pipeline.
type SampleRate int

const (
	Rate48 SampleRate = 48
	Rate24 SampleRate = 24
	Rate16 SampleRate = 16
	Rate12 SampleRate = 12
	Rate8  SampleRate = 8
)

// KHz returns the rate as a kilohertz multiplier.
func (r SampleRate) KHz() int {
	return int(r)
}

// Hz returns the canonical numeric rate in hertz.
func (r SampleRate) Hz() int {
	return int(r) * 1000
}

// IsValid reports whether r is a recognised sample rate.
func (r SampleRate) IsValid() bool {
	switch r {
	case Rate48, Rate24, Rate16, Rate12, Rate8:
		return true
	}
	return false
}

func (r SampleRate) String() string {
	return fmt.Sprintf("%dkHz", int(r))
}

// ParseSampleRate converts a numeric rate in hertz (e.g. 48000) into a
// SampleRate. Rates outside the supported set are rejected.
func ParseSampleRate(hz int) (SampleRate, error) {
	r := SampleRate(hz / 1000)
	if hz%1000 != 0 || !r.IsValid() {
		return 0, fmt.Errorf("unsupported sample rate %d Hz (supported: 48000, 24000, 16000, 12000, 8000)", hz)
	}
	return r, nil
}

// FrameSize is one of the Opus frame durations, expressed as a sample count
// at the 48 kHz reference rate. The actual sample count at a given rate and
// the real-time pacing interval are derived from it.
type FrameSize int

const (
	Frame2880 FrameSize = 2880 // 60 ms
	Frame1920 FrameSize = 1920 // 40 ms
	Frame960  FrameSize = 960  // 20 ms
	Frame480  FrameSize = 480  // 10 ms
	Frame240  FrameSize = 240  // 5 ms
	Frame120  FrameSize = 120  // 2.5 ms
)

// IsValid reports whether f is a recognised frame size.
func (f FrameSize) IsValid() bool {
	switch f {
	case Frame2880, Frame1920, Frame960, Frame480, Frame240, Frame120:
		return true
	}
	return false
}

func (f FrameSize) String() string {
	return fmt.Sprintf("%d@48kHz", int(f))
}

// SampleCount returns the number of samples one frame holds at the given
// target rate: reference count * rate_khz / 48.
func (f FrameSize) SampleCount(rate SampleRate) int {
	return int(f) * rate.KHz() / 48
}

// InputSampleCount returns the number of samples one frame holds at the
// device's native rate, so raw capture frames match real device throughput
// before resampling.
func (f FrameSize) InputSampleCount(deviceHz int) int {
	return deviceHz * int(f) / 48000
}

// Pacing returns the real-time duration one frame represents. The capture
// goroutine sleeps this long between kill-flag polls.
func (f FrameSize) Pacing() time.Duration {
	return time.Duration(int(f)*1000/48) * time.Microsecond
}

// ParseFrameSize converts a reference sample count (e.g. 960) into a
// FrameSize. Counts outside the supported set are rejected.
func ParseFrameSize(n int) (FrameSize, error) {
	f := FrameSize(n)
	if !f.IsValid() {
		return 0, fmt.Errorf("unsupported frame size %d (supported: 2880, 1920, 960, 480, 240, 120)", n)
	}
	return f, nil
}
