// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to verify that sessions are created with the expected Config.
// Use Session to script the events returned per frame and to inspect the
// frames and timestamps that were submitted.
//
// Example:
//
//	sess := &mock.Session{
//	    Script: [][]vad.Event{
//	        nil,
//	        {{Type: vad.EventSpeechStart}, {Type: vad.EventAudio, Chunk: pcm}},
//	    },
//	}
//	eng := &mock.Engine{Session: sess}
//	handle, _ := eng.NewSession(vad.DefaultConfig())
package mock

import (
	"bytes"
	"sync"

	"github.com/MrWong99/rmsvad/pkg/vad"
)

// NewSessionCall records a single invocation of Engine.NewSession.
type NewSessionCall struct {
	// Cfg is the Config passed to NewSession.
	Cfg vad.Config
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by NewSession. If nil, NewSession
	// returns a new default Session.
	Session vad.SessionHandle

	// NewSessionErr, if non-nil, is returned as the error from NewSession.
	NewSessionErr error

	// NewSessionCalls records every call to NewSession in order.
	NewSessionCalls []NewSessionCall
}

// NewSession records the call and returns Session, NewSessionErr.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewSessionCalls = append(e.NewSessionCalls, NewSessionCall{Cfg: cfg})
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	if e.Session != nil {
		return e.Session, nil
	}
	return &Session{}, nil
}

// Calls returns a copy of the recorded NewSession calls. Thread-safe.
func (e *Engine) Calls() []NewSessionCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]NewSessionCall(nil), e.NewSessionCalls...)
}

var _ vad.Engine = (*Engine)(nil)

// ProcessFrameCall records a single invocation of Session.ProcessFrame.
type ProcessFrameCall struct {
	// Frame is a copy of the bytes passed to ProcessFrame.
	Frame []byte

	// Timestamp is the ts argument.
	Timestamp float64
}

// Session is a mock implementation of vad.SessionHandle.
type Session struct {
	mu sync.Mutex

	// Script holds the events returned by successive ProcessFrame calls. The
	// n-th call returns Script[n]; calls beyond the script return nil.
	Script [][]vad.Event

	// StatsResult is returned by Stats.
	StatsResult vad.Stats

	// ProcessFrameErr, if non-nil, is returned by every ProcessFrame call.
	ProcessFrameErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// ProcessFrameCalls records every call to ProcessFrame in order.
	ProcessFrameCalls []ProcessFrameCall

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// ProcessFrame records the call and returns the next scripted events.
func (s *Session) ProcessFrame(frame []byte, ts float64) ([]vad.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.ProcessFrameCalls)
	s.ProcessFrameCalls = append(s.ProcessFrameCalls, ProcessFrameCall{Frame: bytes.Clone(frame), Timestamp: ts})
	if s.ProcessFrameErr != nil {
		return nil, s.ProcessFrameErr
	}
	if n < len(s.Script) {
		return s.Script[n], nil
	}
	return nil, nil
}

// Reset records the call by incrementing ResetCallCount.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCallCount++
}

// Stats returns StatsResult.
func (s *Session) Stats() vad.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StatsResult
}

// Close records the call and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Frames returns a copy of the recorded ProcessFrame calls. Thread-safe.
func (s *Session) Frames() []ProcessFrameCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProcessFrameCall(nil), s.ProcessFrameCalls...)
}

var _ vad.SessionHandle = (*Session)(nil)
