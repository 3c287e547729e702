package vad

import "fmt"

// EventType enumerates the lifecycle events emitted by a [Detector].
type EventType int

const (
	// EventSpeechStart marks the Silence→Speaking transition. The event
	// carries the pre-buffered frames that preceded the onset.
	EventSpeechStart EventType = iota

	// EventAudio carries one mono chunk captured while speech is active.
	EventAudio

	// EventSpeechEnd marks the Speaking→Silence transition after the release
	// time elapsed.
	EventSpeechEnd

	// EventSpeechTimeout marks a forced end because the segment reached the
	// maximum speech duration.
	EventSpeechTimeout
)

// String returns the snake_case name of the event type.
func (t EventType) String() string {
	switch t {
	case EventSpeechStart:
		return "speech_start"
	case EventAudio:
		return "audio"
	case EventSpeechEnd:
		return "speech_end"
	case EventSpeechTimeout:
		return "speech_timeout"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// IsEnd reports whether t closes a speech segment (end or timeout).
func (t EventType) IsEnd() bool {
	return t == EventSpeechEnd || t == EventSpeechTimeout
}

// Event is a single detector emission. Only the fields relevant to Type are
// populated. Events share their byte slices with the detector's output and
// must be treated as read-only.
type Event struct {
	// Type selects which payload fields are meaningful.
	Type EventType

	// Chunk is the mono audio for EventAudio.
	Chunk []byte

	// PreBuffer holds the retained silent mono frames, oldest first, for
	// EventSpeechStart. It may be empty.
	PreBuffer [][]byte

	// Timestamp is the tick time in seconds.
	Timestamp float64

	// Level is the normalized energy of the chunk that produced the event.
	Level float64

	// Duration is the segment length in seconds for EventSpeechEnd and
	// EventSpeechTimeout.
	Duration float64
}

// String returns a compact description, e.g. "speech_start(pre_buffer_frames=3)".
func (e Event) String() string {
	switch e.Type {
	case EventSpeechStart:
		return fmt.Sprintf("%s(pre_buffer_frames=%d)", e.Type, len(e.PreBuffer))
	case EventAudio:
		return fmt.Sprintf("%s(bytes=%d)", e.Type, len(e.Chunk))
	default:
		return fmt.Sprintf("%s(duration=%.3fs)", e.Type, e.Duration)
	}
}
