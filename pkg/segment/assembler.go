// Package segment turns a detector's event stream into complete speech
// segments.
//
// An [Assembler] buffers the audio between a speech start and the matching
// end or timeout and yields one [Segment] per span:
//
//	asm := segment.New()
//	for ev := range det.Events(frames) {
//	    if seg := asm.Feed(ev); seg != nil {
//	        _ = seg.SaveWAV(seg.FileName(), format)
//	    }
//	}
package segment

import (
	"slices"

	"github.com/MrWong99/rmsvad/pkg/vad"
)

// Option configures an [Assembler].
type Option func(*Assembler)

// WithPreBuffer controls whether the pre-buffered frames carried by a speech
// start event are prepended to the segment audio. The default is true.
func WithPreBuffer(include bool) Option {
	return func(a *Assembler) { a.includePreBuffer = include }
}

// WithOnSegment registers a callback invoked synchronously with every
// completed segment, before Feed returns it.
func WithOnSegment(fn func(*Segment)) Option {
	return func(a *Assembler) { a.onSegment = fn }
}

// Assembler collects audio events into segments. It is not safe for
// concurrent use.
type Assembler struct {
	includePreBuffer bool
	onSegment        func(*Segment)

	chunks     [][]byte
	collecting bool
	startTS    float64
	count      int
}

// New returns an idle assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{includePreBuffer: true}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsCollecting reports whether a speech span is open.
func (a *Assembler) IsCollecting() bool { return a.collecting }

// SegmentCount returns the number of segments completed so far.
func (a *Assembler) SegmentCount() int { return a.count }

// Feed consumes one event. It returns the completed segment when ev closes
// an open span, and nil otherwise. Audio events outside a span and end
// events without a preceding start are ignored.
func (a *Assembler) Feed(ev vad.Event) *Segment {
	switch ev.Type {
	case vad.EventSpeechStart:
		a.collecting = true
		a.startTS = ev.Timestamp
		a.chunks = a.chunks[:0]
		if a.includePreBuffer {
			a.chunks = append(a.chunks, ev.PreBuffer...)
		}
	case vad.EventAudio:
		if a.collecting && len(ev.Chunk) > 0 {
			a.chunks = append(a.chunks, ev.Chunk)
		}
	case vad.EventSpeechEnd, vad.EventSpeechTimeout:
		if !a.collecting {
			return nil
		}
		seg := &Segment{
			Audio:     slices.Concat(a.chunks...),
			Duration:  ev.Duration,
			Timestamp: a.startTS,
			Index:     a.count,
			TimedOut:  ev.Type == vad.EventSpeechTimeout,
		}
		a.count++
		a.collecting = false
		clear(a.chunks)
		a.chunks = a.chunks[:0]
		if a.onSegment != nil {
			a.onSegment(seg)
		}
		return seg
	}
	return nil
}

// Reset drops any partially collected span. The segment count is kept so
// that indices stay unique across resets.
func (a *Assembler) Reset() {
	clear(a.chunks)
	a.chunks = a.chunks[:0]
	a.collecting = false
	a.startTS = 0
}
