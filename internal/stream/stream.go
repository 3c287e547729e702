package stream

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/MrWong99/rmsvad/internal/config"
	"github.com/MrWong99/rmsvad/internal/observe"
	"github.com/MrWong99/rmsvad/pkg/audio"
	"github.com/MrWong99/rmsvad/pkg/segment"
	"github.com/MrWong99/rmsvad/pkg/vad"
)

// Result is the outcome of processing one chunk.
type Result struct {
	// Events are the detector events in emission order.
	Events []vad.Event

	// Segments are the segments completed by this chunk.
	Segments []*segment.Segment

	// Paths holds the file each segment was written to, index-aligned with
	// Segments. Entries are empty when persistence is disabled or failed.
	Paths []string
}

// Stream is one open detection stream. Its methods are safe for concurrent
// use, though chunks are expected to arrive from a single producer.
type Stream struct {
	id         string
	sess       vad.SessionHandle
	sampleRate int
	frameSize  int
	segFormat  audio.Format
	outputDir  string
	metrics    *observe.Metrics
	log        *slog.Logger

	mu      sync.Mutex
	asm     *segment.Assembler
	frames  int64
	onClose []func()
	closed  bool
}

func newStream(id string, sess vad.SessionHandle, vadCfg vad.Config, segCfg config.SegmentsConfig, m *observe.Metrics, log *slog.Logger) *Stream {
	outDir := ""
	if segCfg.OutputDir != "" {
		outDir = filepath.Join(segCfg.OutputDir, id)
	}
	return &Stream{
		id:         id,
		sess:       sess,
		sampleRate: vadCfg.SampleRate,
		frameSize:  audio.FrameSize(vadCfg.Channels, vadCfg.SampleWidth),
		segFormat:  audio.Format{SampleRate: vadCfg.SampleRate, SampleWidth: vadCfg.SampleWidth, Channels: 1},
		outputDir:  outDir,
		metrics:    m,
		log:        log,
		asm:        segment.New(segment.WithPreBuffer(segCfg.IncludePreBuffer)),
	}
}

// ID returns the stream id.
func (s *Stream) ID() string { return s.id }

// Format returns the PCM layout of the stream's segments (mono).
func (s *Stream) Format() audio.Format { return s.segFormat }

// Elapsed returns the stream position in seconds, derived from the number
// of whole frames consumed.
func (s *Stream) Elapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position()
}

func (s *Stream) position() float64 {
	return float64(s.frames) / float64(s.sampleRate)
}

// Process feeds one chunk of interleaved PCM. The chunk is stamped with the
// stream position before it, so timestamps advance with the audio rather
// than with wall-clock arrival time.
func (s *Stream) Process(ctx context.Context, chunk []byte) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.position()
	start := time.Now()
	evs, err := s.sess.ProcessFrame(chunk, ts)
	if err != nil {
		return Result{}, err
	}
	elapsed := time.Since(start)
	s.frames += int64(len(chunk) / s.frameSize)

	speaking := slices.ContainsFunc(evs, func(ev vad.Event) bool { return ev.Type == vad.EventAudio })
	s.metrics.RecordFeed(ctx, speaking, elapsed, s.sess.Stats().CurrentThreshold)
	s.metrics.RecordEvents(ctx, evs)

	res := Result{Events: evs}
	for _, ev := range evs {
		seg := s.asm.Feed(ev)
		if seg == nil {
			continue
		}
		s.metrics.RecordSegment(ctx, seg.Duration, seg.TimedOut)
		res.Segments = append(res.Segments, seg)
		res.Paths = append(res.Paths, s.persist(ctx, seg))
	}
	return res, nil
}

// persist writes seg below the output directory and returns its path, or ""
// when persistence is disabled or fails.
func (s *Stream) persist(ctx context.Context, seg *segment.Segment) string {
	if s.outputDir == "" {
		return ""
	}
	log := observe.Logger(observe.WithStreamID(ctx, s.id)).With("segment", seg.Index)
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		log.Warn("stream: cannot create segment directory", "dir", s.outputDir, "err", err)
		return ""
	}
	path := filepath.Join(s.outputDir, seg.FileName())
	if err := seg.SaveWAV(path, s.segFormat); err != nil {
		log.Warn("stream: cannot write segment", "path", path, "err", err)
		return ""
	}
	log.Debug("stream: segment written", "path", path, "duration", seg.Duration, "timed_out", seg.TimedOut)
	return path
}

// Reset clears detector state and drops any partially assembled segment.
// The stream clock keeps running.
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.Reset()
	s.asm.Reset()
	s.log.Debug("stream reset", "position", s.position())
}

// Stats returns the detector statistics for this stream.
func (s *Stream) Stats() vad.Stats {
	return s.sess.Stats()
}

// SegmentCount returns the number of segments completed so far.
func (s *Stream) SegmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asm.SegmentCount()
}

// OnClose registers fn to run when the manager closes the stream. If the
// stream is already closed, fn runs immediately.
func (s *Stream) OnClose(fn func()) {
	s.mu.Lock()
	if !s.closed {
		s.onClose = append(s.onClose, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

func (s *Stream) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	hooks := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	err := s.sess.Close()
	if errors.Is(err, vad.ErrSessionClosed) {
		return nil
	}
	return err
}
