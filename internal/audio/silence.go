package audio

import (
	"math"
	"time"
)

// MPEG-1 Layer III, 128 kbps, 44.1 kHz: 1152 samples per frame.
const (
	frameDurationMs = 26.12
	frameSize       = 417
)

var frameHeader = [4]byte{0xFF, 0xFB, 0x90, 0x00}

// Silence returns enough zeroed MP3 frames to cover d. Frames are
// self-contained, so the clip can be spliced between other MP3 streams.
func Silence(d time.Duration) []byte {
	ms := float64(d) / float64(time.Millisecond)
	if ms <= 0 {
		return nil
	}
	frames := int(math.Ceil(ms / frameDurationMs))

	out := make([]byte, frames*frameSize)
	for i := 0; i < frames; i++ {
		copy(out[i*frameSize:], frameHeader[:])
	}
	return out
}
