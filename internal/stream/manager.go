// Package stream runs one detector per named audio stream and exposes the
// streams over WebSocket.
//
// A [Manager] owns the set of open streams. Each [Stream] pairs a
// [vad.SessionHandle] with a [segment.Assembler], stamps chunks with a clock
// derived from the number of frames consumed, persists completed segments
// as WAV files and records metrics.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/rmsvad/internal/config"
	"github.com/MrWong99/rmsvad/internal/observe"
	"github.com/MrWong99/rmsvad/pkg/vad"
)

var (
	// ErrStreamExists is returned by [Manager.Open] for an ID that is in use.
	ErrStreamExists = errors.New("stream: already exists")

	// ErrStreamNotFound is returned for an ID that is not open.
	ErrStreamNotFound = errors.New("stream: not found")

	// ErrInvalidID is returned by [Manager.Open] for IDs that are empty, too
	// long, or contain characters unsafe for file names.
	ErrInvalidID = errors.New("stream: invalid id")
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ManagerConfig holds the dependencies of a [Manager].
type ManagerConfig struct {
	// Engine creates one session per stream.
	Engine vad.Engine

	// VAD is the detector configuration for new streams.
	VAD vad.Config

	// Segments controls segment assembly and persistence for new streams.
	Segments config.SegmentsConfig

	// Metrics receives per-chunk and per-segment measurements. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// Manager tracks open streams. All exported methods are safe for concurrent
// use.
type Manager struct {
	engine  vad.Engine
	metrics *observe.Metrics
	log     *slog.Logger

	mu      sync.Mutex
	vadCfg  vad.Config
	segCfg  config.SegmentsConfig
	streams map[string]*Stream
}

// NewManager creates a Manager with no open streams.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		engine:  cfg.Engine,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
		vadCfg:  cfg.VAD,
		segCfg:  cfg.Segments,
		streams: make(map[string]*Stream),
	}
}

// Apply replaces the detector and segment settings used for streams opened
// from now on. Open streams keep their configuration.
func (m *Manager) Apply(vadCfg vad.Config, segCfg config.SegmentsConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vadCfg = vadCfg
	m.segCfg = segCfg
}

// VADConfig returns the detector configuration for new streams.
func (m *Manager) VADConfig() vad.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vadCfg
}

// Open creates a stream under id.
func (m *Manager) Open(ctx context.Context, id string) (*Stream, error) {
	if !validID.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.streams[id]; ok {
		return nil, fmt.Errorf("%w: %q", ErrStreamExists, id)
	}
	sess, err := m.engine.NewSession(m.vadCfg)
	if err != nil {
		return nil, fmt.Errorf("stream: open %q: %w", id, err)
	}
	st := newStream(id, sess, m.vadCfg, m.segCfg, m.metrics, m.log.With("stream", id))
	m.streams[id] = st
	m.metrics.ActiveStreams.Add(ctx, 1)
	m.log.Info("stream opened", "stream", id, "format", m.vadCfg.Format().String())
	return st, nil
}

// Get returns the open stream with the given id.
func (m *Manager) Get(id string) (*Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.streams[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStreamNotFound, id)
	}
	return st, nil
}

// IDs returns the ids of all open streams in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.streams))
}

// Len returns the number of open streams.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// Close closes and forgets the stream with the given id.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	st, ok := m.streams[id]
	delete(m.streams, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrStreamNotFound, id)
	}

	m.metrics.ActiveStreams.Add(ctx, -1)
	stats := st.Stats()
	err := st.close()
	m.log.Info("stream closed",
		"stream", id,
		"chunks", stats.TotalChunks,
		"speech_segments", stats.SpeechSegments,
		"speech_ratio", stats.SpeechRatio,
	)
	return err
}

// CloseAll closes every open stream concurrently.
func (m *Manager) CloseAll(ctx context.Context) error {
	var g errgroup.Group
	for _, id := range m.IDs() {
		g.Go(func() error {
			err := m.Close(ctx, id)
			if errors.Is(err, ErrStreamNotFound) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
