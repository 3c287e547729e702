// Package vad implements a streaming, energy-based voice activity detector.
//
// A [Detector] consumes fixed-size chunks of little-endian PCM, computes the
// RMS energy of each chunk and compares its normalized level against a
// threshold that continuously adapts to the recent energy history. Attack
// and release timers debounce the Silence/Speaking transitions, and a small
// pre-buffer of silent chunks is replayed at speech onset so that the first
// syllable is not lost.
//
// For services that handle many concurrent streams, [Engine] hands out
// independent, mutex-guarded [SessionHandle]s, one per stream.
package vad

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrSessionClosed is returned by [SessionHandle.ProcessFrame] after Close.
var ErrSessionClosed = errors.New("vad: session closed")

// SessionHandle represents an active VAD session for a single audio stream.
// It is an interface so that callers can substitute mocks in tests.
type SessionHandle interface {
	// ProcessFrame analyses one chunk of interleaved PCM at timestamp ts
	// (seconds) and returns the resulting events in emission order.
	ProcessFrame(frame []byte, ts float64) ([]Event, error)

	// Reset clears all detection state without closing the session.
	Reset()

	// Stats returns a snapshot of the session's counters.
	Stats() Stats

	// Close releases the session. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Engine is the factory for VAD sessions.
//
// Implementations must be safe for concurrent use: multiple goroutines may
// call NewSession simultaneously.
type Engine interface {
	// NewSession creates a session with the given configuration. It returns a
	// [*ConfigError] if cfg is invalid.
	NewSession(cfg Config) (SessionHandle, error)
}

// rmsEngine creates sessions backed by [Detector].
type rmsEngine struct {
	opts []Option
}

// NewEngine returns the RMS engine. opts are applied to every session's
// detector, after the engine's own defaults.
func NewEngine(opts ...Option) Engine {
	return &rmsEngine{opts: opts}
}

func (e *rmsEngine) NewSession(cfg Config) (SessionHandle, error) {
	d, err := New(cfg, e.opts...)
	if err != nil {
		return nil, err
	}
	return &rmsSession{det: d}, nil
}

// rmsSession guards a detector so that a handle may be shared between the
// goroutine reading audio and one polling stats.
type rmsSession struct {
	mu     sync.Mutex
	det    *Detector
	closed bool
}

func (s *rmsSession) ProcessFrame(frame []byte, ts float64) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.det.FeedAt(frame, ts), nil
}

func (s *rmsSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.det.Reset()
	}
}

func (s *rmsSession) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.det.Stats()
}

func (s *rmsSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.det.log.Debug("vad: session closed", slog.Int("speech_segments", s.det.stats.segments))
	}
	return nil
}
