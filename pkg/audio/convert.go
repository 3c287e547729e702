package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedWidth is returned when a sample width other than 1, 2 or 4
// bytes is requested.
var ErrUnsupportedWidth = errors.New("audio: unsupported sample width")

// ValidWidth reports whether width is a supported PCM sample width in bytes.
func ValidWidth(width int) bool {
	return width == 1 || width == 2 || width == 4
}

// FrameSize returns the number of bytes in one interleaved PCM frame (one
// sample for every channel).
func FrameSize(channels, width int) int {
	return channels * width
}

// AlignFrames truncates pcm to the largest whole number of frames for the
// given layout. The second return value reports whether any bytes were
// dropped. The returned slice aliases pcm.
func AlignFrames(pcm []byte, channels, width int) ([]byte, bool) {
	fs := FrameSize(channels, width)
	if fs <= 0 {
		return pcm[:0], len(pcm) > 0
	}
	n := len(pcm) - len(pcm)%fs
	return pcm[:n], n != len(pcm)
}

// sampleAt decodes the signed little-endian sample starting at pcm[off].
// One-byte samples are treated as signed 8-bit values.
func sampleAt(pcm []byte, off, width int) int64 {
	switch width {
	case 1:
		return int64(int8(pcm[off]))
	case 2:
		// #nosec G115 -- reinterpretation of the two's-complement sample
		return int64(int16(binary.LittleEndian.Uint16(pcm[off:])))
	default:
		// #nosec G115 -- reinterpretation of the two's-complement sample
		return int64(int32(binary.LittleEndian.Uint32(pcm[off:])))
	}
}

// putSample encodes v as a signed little-endian sample at out[off].
func putSample(out []byte, off, width int, v int64) {
	switch width {
	case 1:
		out[off] = byte(int8(v))
	case 2:
		binary.LittleEndian.PutUint16(out[off:], uint16(int16(v)))
	default:
		binary.LittleEndian.PutUint32(out[off:], uint32(int32(v)))
	}
}

// ToMono down-mixes interleaved multi-channel PCM into a single channel by
// averaging the samples of each frame. The average is truncated toward zero,
// matching integer division. A trailing partial frame is dropped.
//
// When channels is 1 the input slice is returned unchanged (after frame
// alignment). The average of in-range samples is always in range, so no
// clamping is needed.
func ToMono(pcm []byte, channels, width int) ([]byte, error) {
	if !ValidWidth(width) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedWidth, width)
	}
	if channels < 1 {
		return nil, fmt.Errorf("audio: invalid channel count %d", channels)
	}
	pcm, _ = AlignFrames(pcm, channels, width)
	if channels == 1 {
		return pcm, nil
	}

	fs := FrameSize(channels, width)
	frames := len(pcm) / fs
	out := make([]byte, frames*width)
	for i := range frames {
		var total int64
		base := i * fs
		for ch := range channels {
			total += sampleAt(pcm, base+ch*width, width)
		}
		putSample(out, i*width, width, total/int64(channels))
	}
	return out, nil
}

// RMS returns the root-mean-square of mono signed PCM samples of the given
// width. Empty input (or input shorter than one sample) yields 0.
func RMS(pcm []byte, width int) float64 {
	if !ValidWidth(width) {
		return 0
	}
	n := len(pcm) / width
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := range n {
		s := float64(sampleAt(pcm, i*width, width))
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(n))
}

// MonoToStereo duplicates each int16 mono sample into a stereo L+R pair.
// Input must be little-endian int16 PCM (2 bytes per sample).
func MonoToStereo(pcm []byte) []byte {
	out := make([]byte, (len(pcm)/2)*4)
	for i := 0; i+1 < len(pcm); i += 2 {
		lo, hi := pcm[i], pcm[i+1]
		j := i * 2
		out[j] = lo
		out[j+1] = hi
		out[j+2] = lo
		out[j+3] = hi
	}
	return out
}
