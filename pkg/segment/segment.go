package segment

import (
	"fmt"
	"strings"

	"github.com/MrWong99/rmsvad/pkg/audio"
)

// Segment is one completed span of speech. It is immutable once returned by
// an [Assembler]; callers must not modify Audio.
type Segment struct {
	// Audio is the concatenated mono PCM of the span, including the
	// pre-buffer when the assembler was configured to keep it.
	Audio []byte

	// Duration is the span length in seconds as reported by the end event.
	Duration float64

	// Timestamp is the time of the speech start event in seconds.
	Timestamp float64

	// Index is the zero-based position of this segment in the assembler's
	// output.
	Index int

	// TimedOut is true when the span was closed by a speech timeout.
	TimedOut bool
}

// NumBytes returns the length of the audio payload.
func (s *Segment) NumBytes() int { return len(s.Audio) }

// NumSamples returns the number of samples of the given width in Audio.
func (s *Segment) NumSamples(width int) int {
	if width <= 0 {
		return 0
	}
	return len(s.Audio) / width
}

// ToWAV encodes the segment as a WAV container. Segment audio is mono, so f
// normally has Channels set to 1.
func (s *Segment) ToWAV(f audio.Format) ([]byte, error) {
	return audio.EncodeWAV(s.Audio, f)
}

// SaveWAV writes the segment to path as a WAV file.
func (s *Segment) SaveWAV(path string, f audio.Format) error {
	return audio.SaveWAV(path, s.Audio, f)
}

// FileName returns a stable file name for the segment, e.g.
// "segment-0003.wav".
func (s *Segment) FileName() string {
	return fmt.Sprintf("segment-%04d.wav", s.Index)
}

// String returns a compact description, e.g.
// "Segment(bytes=3200, duration=1.500s, index=0, timed_out)".
func (s *Segment) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Segment(bytes=%d, duration=%.3fs, index=%d", len(s.Audio), s.Duration, s.Index)
	if s.TimedOut {
		b.WriteString(", timed_out")
	}
	b.WriteByte(')')
	return b.String()
}
