// Package detect runs the detector offline over WAV files.
//
// Each file is decoded, split into chunks of the configured chunk size and
// fed to a fresh [vad.Detector] with timestamps derived from the sample
// position, so results are reproducible and independent of wall-clock time.
// Several files are processed concurrently.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/rmsvad/internal/observe"
	"github.com/MrWong99/rmsvad/pkg/audio"
	"github.com/MrWong99/rmsvad/pkg/segment"
	"github.com/MrWong99/rmsvad/pkg/vad"
)

// Options controls a detection run.
type Options struct {
	// VAD holds the tuning parameters. SampleRate, SampleWidth and Channels
	// are replaced by the values read from each file; MaxLevel is rescaled
	// when the file's sample width differs from VAD.SampleWidth.
	VAD vad.Config

	// OutputDir, when set, receives one WAV per segment under a directory
	// named after the input file.
	OutputDir string

	// IncludePreBuffer prepends pre-buffered silence to each segment.
	IncludePreBuffer bool

	// Concurrency bounds the number of files processed at once. Values
	// below 1 mean one file at a time.
	Concurrency int

	// OnEvent, if set, is called for every non-audio event. It is called
	// from worker goroutines and must be safe for concurrent use.
	OnEvent func(path string, ev vad.Event)

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// Result is the outcome for one file.
type Result struct {
	// Path is the input file.
	Path string

	// Format is the PCM layout read from the file.
	Format audio.Format

	// Duration is the length of the audio in seconds.
	Duration float64

	// Events holds the non-audio events in emission order.
	Events []vad.Event

	// Segments lists the completed segments. Their audio is released
	// after writing; only the metadata is kept.
	Segments []*segment.Segment

	// SegmentPaths is index-aligned with Segments. Entries are empty when
	// no output directory was given.
	SegmentPaths []string

	// Unterminated is true when speech was still active at end of input.
	Unterminated bool

	// Stats is the detector's final statistics.
	Stats vad.Stats

	// Err is the failure for this file, if any.
	Err error
}

// Files processes every path and returns one result per path, in input
// order. A failing file does not stop the others; the returned error joins
// all per-file errors.
func Files(ctx context.Context, paths []string, opts Options) ([]Result, error) {
	results := make([]Result, len(paths))

	var g errgroup.Group
	g.SetLimit(max(opts.Concurrency, 1))
	for i, path := range paths {
		g.Go(func() error {
			res, err := File(ctx, path, opts)
			res.Err = err
			results[i] = res
			return err
		})
	}
	// Wait reports only the first failure; every file's error is joined below.
	if g.Wait() == nil {
		return results, nil
	}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

// File processes a single WAV file.
func File(ctx context.Context, path string, opts Options) (res Result, err error) {
	res.Path = path
	ctx, span := observe.StartSpan(ctx, "detect.file", trace.WithAttributes(attribute.String("file", path)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := opts.Logger
	if log == nil {
		log = observe.Logger(ctx)
	}
	log = log.With("file", path)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("detect %s: %w", path, err)
	}

	pcm, f, err := audio.LoadWAV(path)
	if err != nil {
		return res, fmt.Errorf("detect %s: %w", path, err)
	}
	res.Format = f
	res.Duration = float64(len(pcm)/audio.FrameSize(f.Channels, f.SampleWidth)) / float64(f.SampleRate)

	cfg := ConfigFor(opts.VAD, f)
	d, err := vad.New(cfg, vad.WithLogger(log))
	if err != nil {
		return res, fmt.Errorf("detect %s: %w", path, err)
	}
	asm := segment.New(segment.WithPreBuffer(opts.IncludePreBuffer))

	var segDir string
	if opts.OutputDir != "" {
		segDir = filepath.Join(opts.OutputDir, stem(path))
		if err := os.MkdirAll(segDir, 0o755); err != nil {
			return res, fmt.Errorf("detect %s: %w", path, err)
		}
	}
	segFormat := audio.Format{SampleRate: f.SampleRate, SampleWidth: f.SampleWidth, Channels: 1}

	log.Debug("detect: processing", "format", f.String(), "duration", res.Duration)

	frames := audio.Frames(pcm, f, cfg.ChunkSize)
	n := 0
	for ev := range d.Events(slices.Values(frames)) {
		if n++; n%256 == 0 {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("detect %s: %w", path, err)
			}
		}
		if ev.Type != vad.EventAudio {
			res.Events = append(res.Events, ev)
			if opts.OnEvent != nil {
				opts.OnEvent(path, ev)
			}
		}
		seg := asm.Feed(ev)
		if seg == nil {
			continue
		}
		var segPath string
		if segDir != "" {
			segPath = filepath.Join(segDir, seg.FileName())
			if err := seg.SaveWAV(segPath, segFormat); err != nil {
				return res, fmt.Errorf("detect %s: %w", path, err)
			}
		}
		seg.Audio = nil
		res.Segments = append(res.Segments, seg)
		res.SegmentPaths = append(res.SegmentPaths, segPath)
	}

	// The assembler cannot observe spans discarded for being too short, so
	// ask the detector.
	res.Unterminated = d.IsSpeaking()
	res.Stats = d.Stats()
	span.SetAttributes(
		attribute.Int("segments", len(res.Segments)),
		attribute.Float64("speech_ratio", res.Stats.SpeechRatio),
	)
	log.Info("detect: done",
		"segments", len(res.Segments),
		"speech_ratio", res.Stats.SpeechRatio,
		"unterminated", res.Unterminated,
	)
	return res, nil
}

// ConfigFor adapts base to the PCM layout f. MaxLevel is expressed in the
// sample range of base.SampleWidth and is rescaled to f.SampleWidth.
func ConfigFor(base vad.Config, f audio.Format) vad.Config {
	cfg := base
	if audio.ValidWidth(base.SampleWidth) && audio.ValidWidth(f.SampleWidth) && base.SampleWidth != f.SampleWidth {
		shift := 8 * (f.SampleWidth - base.SampleWidth)
		if shift > 0 {
			cfg.MaxLevel = base.MaxLevel * float64(uint64(1)<<shift)
		} else {
			cfg.MaxLevel = base.MaxLevel / float64(uint64(1)<<-shift)
		}
	}
	cfg.SampleRate = f.SampleRate
	cfg.SampleWidth = f.SampleWidth
	cfg.Channels = f.Channels
	return cfg
}

// stem returns the file name of path without directory or extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
