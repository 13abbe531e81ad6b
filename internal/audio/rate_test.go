package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleRateHz(t *testing.T) {
	assert.Equal(t, 48000, Rate48.Hz())
	assert.Equal(t, 24000, Rate24.Hz())
	assert.Equal(t, 16000, Rate16.Hz())
	assert.Equal(t, 12000, Rate12.Hz())
	assert.Equal(t, 8000, Rate8.Hz())
}

func TestParseSampleRate(t *testing.T) {
	t.Run("supported", func(t *testing.T) {
		for _, hz := range []int{48000, 24000, 16000, 12000, 8000} {
			r, err := ParseSampleRate(hz)
			require.NoError(t, err)
			assert.Equal(t, hz, r.Hz())
		}
	})

	t.Run("rejected", func(t *testing.T) {
		for _, hz := range []int{44100, 96000, 0, -48000, 48001} {
			_, err := ParseSampleRate(hz)
			assert.Error(t, err, "rate %d should be rejected", hz)
		}
	})
}

func TestFrameSizeSampleCount(t *testing.T) {
	// sample_count = reference * rate_khz / 48
	assert.Equal(t, 480, Frame960.SampleCount(Rate24))
	assert.Equal(t, 960, Frame960.SampleCount(Rate48))
	assert.Equal(t, 480, Frame480.SampleCount(Rate48))
	assert.Equal(t, 160, Frame480.SampleCount(Rate16))
	assert.Equal(t, 480, Frame2880.SampleCount(Rate8))
	assert.Equal(t, 120, Frame120.SampleCount(Rate48))
}

func TestFrameSizePacing(t *testing.T) {
	// pacing = reference * 1000 / 48 microseconds
	assert.Equal(t, 20*time.Millisecond, Frame960.Pacing())
	assert.Equal(t, 10*time.Millisecond, Frame480.Pacing())
	assert.Equal(t, 60*time.Millisecond, Frame2880.Pacing())
	assert.Equal(t, 2500*time.Microsecond, Frame120.Pacing())
}

func TestFrameSizeInputSampleCount(t *testing.T) {
	// A 44.1 kHz device produces 441 samples over one 10 ms frame.
	assert.Equal(t, 441, Frame480.InputSampleCount(44100))
	// At the reference rate the input frame equals the reference count.
	assert.Equal(t, 480, Frame480.InputSampleCount(48000))
	assert.Equal(t, 882, Frame960.InputSampleCount(44100))
	assert.Equal(t, 320, Frame960.InputSampleCount(16000))
}

func TestParseFrameSize(t *testing.T) {
	for _, n := range []int{2880, 1920, 960, 480, 240, 120} {
		f, err := ParseFrameSize(n)
		require.NoError(t, err)
		assert.Equal(t, n, int(f))
	}

	for _, n := range []int{0, 100, 481, 5760, -480} {
		_, err := ParseFrameSize(n)
		assert.Error(t, err, "frame size %d should be rejected", n)
	}
}
