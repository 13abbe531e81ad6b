package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResamplerFixedOutputFrames(t *testing.T) {
	// 44.1 kHz device, 48 kHz target, 10 ms frames.
	const inLen = 441
	const outLen = 480
	rs, err := NewResampler(44100, 48000, outLen)
	require.NoError(t, err)

	block := make([]float32, inLen)
	for i := range block {
		block[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
	}

	var frames int
	emit := func(frame []float32) {
		assert.Equal(t, outLen, len(frame), "every emitted frame has the exact target length")
		frames++
	}

	// The engine's filter needs priming, so early blocks may emit
	// nothing; over many blocks throughput must track real time.
	const blocks = 100
	for i := 0; i < blocks; i++ {
		require.NoError(t, rs.Process(block, emit))
	}

	assert.Greater(t, frames, blocks*8/10, "steady state emits roughly one frame per block")
	assert.LessOrEqual(t, frames, blocks, "cannot emit more output time than input time")
	assert.Less(t, rs.Pending(), outLen, "pending tail stays under one frame")
}

func TestResamplerReset(t *testing.T) {
	rs, err := NewResampler(44100, 48000, 480)
	require.NoError(t, err)

	block := make([]float32, 441)
	for i := 0; i < 10; i++ {
		require.NoError(t, rs.Process(block, func([]float32) {}))
	}
	rs.Reset()
	assert.Equal(t, 0, rs.Pending())
}

func TestResamplerDownsample(t *testing.T) {
	// 48 kHz device down to a 16 kHz target, 20 ms frames.
	const outLen = 320
	rs, err := NewResampler(48000, 16000, outLen)
	require.NoError(t, err)

	block := make([]float32, 960)
	var frames int
	for i := 0; i < 50; i++ {
		require.NoError(t, rs.Process(block, func(frame []float32) {
			assert.Equal(t, outLen, len(frame))
			frames++
		}))
	}
	assert.Greater(t, frames, 40)
}
