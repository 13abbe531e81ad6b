// Package codec wraps the Opus encoder and decoder behind a float PCM API.
// Frames entering the encoder and leaving the decoder are mono float32
// samples in [-1.0, 1.0]; packets are opaque byte sequences meaningful only
// to the matching decoder.
package codec

import (
	"fmt"

	"layeh.com/gopus"
)

// maxPacketBytes is the scratch capacity handed to the encoder for one
// compressed packet. Opus packets for a single frame never approach this.
const maxPacketBytes = 2048

// Application selects the Opus coding mode.
type Application int

const (
	// Voip favours speech intelligibility.
	Voip Application = iota

	// Audio favours faithful wideband reproduction. This is the default.
	Audio

	// RestrictedLowDelay disables speech-specific modes for minimum latency.
	RestrictedLowDelay
)

// IsValid reports whether a is a recognised coding mode.
func (a Application) IsValid() bool {
	switch a {
	case Voip, Audio, RestrictedLowDelay:
		return true
	}
	return false
}

func (a Application) String() string {
	switch a {
	case Voip:
		return "voip"
	case Audio:
		return "audio"
	case RestrictedLowDelay:
		return "lowdelay"
	}
	return fmt.Sprintf("Application(%d)", int(a))
}

// ParseApplication converts a config string into an Application.
func ParseApplication(s string) (Application, error) {
	switch s {
	case "voip":
		return Voip, nil
	case "audio", "":
		return Audio, nil
	case "lowdelay":
		return RestrictedLowDelay, nil
	}
	return 0, fmt.Errorf("unknown codec application %q (supported: voip, audio, lowdelay)", s)
}

func (a Application) gopus() gopus.Application {
	switch a {
	case Voip:
		return gopus.Voip
	case RestrictedLowDelay:
		return gopus.RestrictedLowDelay
	}
	return gopus.Audio
}

// Encoder compresses fixed-size float frames into variable-length Opus
// packets. It is not safe for concurrent use; the capture pipeline owns it
// exclusively.
type Encoder struct {
	enc *gopus.Encoder
	pcm []int16
}

// NewEncoder creates an encoder for the given rate, channel count, and
// coding mode. Invalid combinations fail here, not per call.
func NewEncoder(sampleRate, channels int, app Application) (*Encoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, channels, app.gopus())
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder (%d Hz, %d ch, %s): %w", sampleRate, channels, app, err)
	}
	return &Encoder{enc: enc}, nil
}

// Encode compresses one frame of float samples. The frame length must be a
// valid Opus frame length at the encoder's sample rate. A nil, nil return
// means the codec produced nothing to send; callers skip it silently.
func (e *Encoder) Encode(frame []float32) ([]byte, error) {
	if cap(e.pcm) < len(frame) {
		e.pcm = make([]int16, len(frame))
	}
	pcm := e.pcm[:len(frame)]
	for i, s := range frame {
		pcm[i] = floatToInt16(s)
	}
	data, err := e.enc.Encode(pcm, len(frame), maxPacketBytes)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// Decoder decompresses Opus packets back into float PCM frames. It is not
// safe for concurrent use; the session owns it exclusively.
type Decoder struct {
	dec      *gopus.Decoder
	out      []float32
	frameLen int
}

// NewDecoder creates a decoder for the given rate and channel count.
// frameLen is the largest frame (in samples per channel) the decoder will
// be asked to produce; packets decoding to more than that are rejected by
// the codec and skipped by the caller.
func NewDecoder(sampleRate, channels, frameLen int) (*Decoder, error) {
	dec, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder (%d Hz, %d ch): %w", sampleRate, channels, err)
	}
	return &Decoder{
		dec:      dec,
		out:      make([]float32, frameLen*channels),
		frameLen: frameLen,
	}, nil
}

// Decode decompresses one packet. The returned frame is backed by an
// internal buffer and is only valid until the next Decode call; callers
// must not retain it.
func (d *Decoder) Decode(packet []byte) ([]float32, error) {
	pcm, err := d.dec.Decode(packet, d.frameLen, false)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	if len(pcm) > len(d.out) {
		d.out = make([]float32, len(pcm))
	}
	out := d.out[:len(pcm)]
	for i, s := range pcm {
		out[i] = float32(s) / 32768
	}
	return out, nil
}

func floatToInt16(s float32) int16 {
	switch {
	case s >= 1.0:
		return 32767
	case s <= -1.0:
		return -32768
	}
	return int16(s * 32767)
}
