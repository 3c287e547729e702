package vad

import (
	"bytes"
	"iter"
	"log/slog"
	"math"
	"time"

	"github.com/MrWong99/rmsvad/pkg/audio"
)

// Hooks are optional callbacks invoked synchronously from Feed, after the
// tick's events have been computed and in the same order as the returned
// events. Nil fields are skipped. EventSpeechTimeout is delivered to
// OnSpeechEnd.
type Hooks struct {
	OnSpeechStart func(Event)
	OnAudio       func(Event)
	OnSpeechEnd   func(Event)
}

// Option configures a [Detector].
type Option func(*Detector)

// WithHooks installs push-style callbacks.
func WithHooks(h Hooks) Option {
	return func(d *Detector) { d.hooks = h }
}

// WithClock overrides the time source used by [Detector.Feed]. The function
// must return seconds; the default is the Unix wall clock.
func WithClock(now func() float64) Option {
	return func(d *Detector) {
		if now != nil {
			d.clock = now
		}
	}
}

// WithLogger sets the logger used for transition and malformed-input
// diagnostics. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// wallClock returns the current Unix time in seconds.
func wallClock() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// counters accumulate statistics. They are never read on the decision path.
type counters struct {
	total     int
	speech    int
	silence   int
	segments  int
	truncated int
	minLevel  float64
	maxLevel  float64
	sumLevel  float64
}

func (c *counters) reset() {
	*c = counters{minLevel: math.Inf(1)}
}

func (c *counters) observe(level float64) {
	c.total++
	c.sumLevel += level
	c.minLevel = min(c.minLevel, level)
	c.maxLevel = max(c.maxLevel, level)
}

// Detector is a streaming RMS voice activity detector for a single audio
// stream. It classifies each chunk as speech or silence using an adaptive
// threshold with attack and release debouncing and emits [Event]s.
//
// A Detector is not safe for concurrent use. Run one instance per stream.
type Detector struct {
	cfg   Config
	hooks Hooks
	clock func() float64
	log   *slog.Logger

	speaking     bool
	started      bool
	lastMute     float64
	lastSpeaking float64
	speechStart  float64
	level        float64

	threshold thresholdTracker
	preBuffer *ring[[]byte]
	stats     counters

	warnedTruncate bool
}

// New validates cfg and returns a detector in the Silence state. On invalid
// configuration it returns a [*ConfigError] and no detector.
func New(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{
		cfg:       cfg,
		clock:     wallClock,
		log:       slog.Default(),
		threshold: newThresholdTracker(cfg),
		preBuffer: newRing[[]byte](cfg.PreBufferSize),
	}
	d.stats.reset()
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns a copy of the detector's configuration.
func (d *Detector) Config() Config { return d.cfg }

// IsSpeaking reports whether the detector is currently in the Speaking state.
func (d *Detector) IsSpeaking() bool { return d.speaking }

// Threshold returns the current dynamic threshold.
func (d *Detector) Threshold() float64 { return d.threshold.value }

// SetThreshold overrides the dynamic threshold. Adaptation continues from
// the new value on the next chunk.
func (d *Detector) SetThreshold(v float64) { d.threshold.value = v }

// CurrentLevel returns the normalized energy of the most recent chunk.
func (d *Detector) CurrentLevel() float64 { return d.level }

// SpeechDuration returns how long the current segment has been speaking, in
// seconds, measured to the last above-threshold chunk. It is 0 in Silence.
func (d *Detector) SpeechDuration() float64 {
	if !d.speaking {
		return 0
	}
	return d.lastSpeaking - d.speechStart
}

// SilenceDuration returns how long the stream has been quiet, in seconds,
// measured from the last above-threshold chunk. It is 0 while speaking,
// before the first chunk, and never negative.
func (d *Detector) SilenceDuration() float64 {
	if d.speaking || !d.started {
		return 0
	}
	return max(d.lastMute-d.lastSpeaking, 0)
}

// Reset returns the detector to its freshly constructed state while keeping
// its configuration, hooks and clock. Buffers are cleared, not reallocated.
func (d *Detector) Reset() {
	d.speaking = false
	d.started = false
	d.lastMute = 0
	d.lastSpeaking = 0
	d.speechStart = 0
	d.level = 0
	d.threshold.reset(d.cfg.Threshold)
	d.preBuffer.Clear()
	d.stats.reset()
	d.warnedTruncate = false
}

// Feed processes one chunk stamped with the detector clock. See [Detector.FeedAt].
func (d *Detector) Feed(chunk []byte) []Event {
	return d.FeedAt(chunk, d.clock())
}

// FeedAt processes one chunk of interleaved PCM at the given timestamp in
// seconds and returns zero, one or two events in emission order.
//
// Chunks whose length is not a whole number of frames are truncated to the
// last complete frame. Empty chunks are valid and count as silence.
// Timestamps are expected to be non-decreasing; this is not enforced.
func (d *Detector) FeedAt(chunk []byte, ts float64) []Event {
	if !d.started {
		d.lastMute = ts
		d.lastSpeaking = ts
		d.started = true
	}

	mono, rms := d.estimate(chunk)
	d.threshold.observe(rms)
	level := rms / d.cfg.MaxLevel
	d.level = level
	d.stats.observe(level)

	var events []Event
	defer func() { d.dispatch(events) }()

	if d.speaking && d.cfg.MaxSpeechDuration > 0 && ts-d.speechStart >= d.cfg.MaxSpeechDuration {
		duration := ts - d.speechStart
		d.speaking = false
		events = append(events, Event{Type: EventSpeechTimeout, Timestamp: ts, Level: level, Duration: duration})
		d.log.Debug("vad: speech timed out", "timestamp", ts, "duration", duration)
		d.bufferSilence(mono)
		return events
	}

	if level > d.threshold.value {
		d.lastSpeaking = ts
		if !d.speaking && ts-d.lastMute > d.cfg.Attack {
			d.speaking = true
			d.speechStart = ts
			d.stats.segments++
			pre := d.preBuffer.Drain()
			events = append(events, Event{Type: EventSpeechStart, PreBuffer: pre, Timestamp: ts, Level: level})
			d.log.Debug("vad: speech started", "timestamp", ts, "level", level, "pre_buffer_frames", len(pre))
		}
	} else {
		d.lastMute = ts
		if d.speaking && ts-d.lastSpeaking > d.cfg.Release {
			duration := ts - d.speechStart
			d.speaking = false
			if d.cfg.MinSpeechDuration > 0 && duration < d.cfg.MinSpeechDuration {
				d.log.Debug("vad: discarded short speech", "timestamp", ts, "duration", duration)
				d.bufferSilence(mono)
				return events
			}
			events = append(events, Event{Type: EventSpeechEnd, Timestamp: ts, Level: level, Duration: duration})
			d.log.Debug("vad: speech ended", "timestamp", ts, "duration", duration)
		}
	}

	if d.speaking {
		d.stats.speech++
		events = append(events, Event{Type: EventAudio, Chunk: mono, Timestamp: ts, Level: level})
	} else {
		d.bufferSilence(mono)
	}
	return events
}

// Events feeds every frame in order, using each frame's timestamp, and
// yields the resulting events. Stopping the iteration early drops the
// remaining events of the current frame; detector state has already advanced.
func (d *Detector) Events(frames iter.Seq[audio.AudioFrame]) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for f := range frames {
			for _, ev := range d.FeedAt(f.Data, f.Seconds()) {
				if !yield(ev) {
					return
				}
			}
		}
	}
}

// Stats returns a snapshot of the running counters.
func (d *Detector) Stats() Stats {
	s := Stats{
		TotalChunks:      d.stats.total,
		SpeechChunks:     d.stats.speech,
		SilenceChunks:    d.stats.silence,
		SpeechSegments:   d.stats.segments,
		MaxRMS:           d.stats.maxLevel,
		CurrentThreshold: d.threshold.value,
		TruncatedChunks:  d.stats.truncated,
	}
	if d.stats.total > 0 {
		s.SpeechRatio = float64(d.stats.speech) / float64(d.stats.total)
		s.AvgRMS = d.stats.sumLevel / float64(d.stats.total)
		s.MinRMS = d.stats.minLevel
	}
	return s
}

// estimate aligns chunk to whole frames, down-mixes it to mono and returns
// the mono copy with its raw RMS. The returned slice never aliases chunk.
func (d *Detector) estimate(chunk []byte) ([]byte, float64) {
	aligned, truncated := audio.AlignFrames(chunk, d.cfg.Channels, d.cfg.SampleWidth)
	if truncated {
		d.stats.truncated++
		if !d.warnedTruncate {
			d.warnedTruncate = true
			d.log.Warn("vad: chunk is not a whole number of frames, truncating",
				"bytes", len(chunk),
				"frame_bytes", audio.FrameSize(d.cfg.Channels, d.cfg.SampleWidth),
			)
		}
	}

	var mono []byte
	if d.cfg.Channels == 1 {
		mono = bytes.Clone(aligned)
	} else {
		// Layout was validated at construction, so ToMono cannot fail here.
		mono, _ = audio.ToMono(aligned, d.cfg.Channels, d.cfg.SampleWidth)
	}
	return mono, audio.RMS(mono, d.cfg.SampleWidth)
}

// bufferSilence records a silence tick and retains mono for pre-buffering.
func (d *Detector) bufferSilence(mono []byte) {
	d.stats.silence++
	d.preBuffer.Push(mono)
}

func (d *Detector) dispatch(events []Event) {
	for _, ev := range events {
		var fn func(Event)
		switch ev.Type {
		case EventSpeechStart:
			fn = d.hooks.OnSpeechStart
		case EventAudio:
			fn = d.hooks.OnAudio
		case EventSpeechEnd, EventSpeechTimeout:
			fn = d.hooks.OnSpeechEnd
		}
		if fn != nil {
			fn(ev)
		}
	}
}
