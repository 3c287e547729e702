package vad

import (
	"fmt"
	"math"

	"github.com/MrWong99/rmsvad/pkg/audio"
)

// Config holds the tuning parameters of a [Detector]. It is a plain value:
// a detector keeps its own copy, so mutating a Config after [New] has no
// effect on the detector built from it. All durations are in seconds.
//
// Use [DefaultConfig] as a starting point; the zero value is not valid.
type Config struct {
	// SampleRate is the audio sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// SampleWidth is the number of bytes per sample: 1, 2 or 4.
	SampleWidth int `yaml:"sample_width"`

	// Channels is the number of interleaved channels in each chunk. Chunks
	// with more than one channel are averaged down to mono before analysis.
	Channels int `yaml:"channels"`

	// ChunkSize is the number of frames per chunk the caller intends to feed.
	// The detector accepts any chunk length; ChunkSize is used by callers that
	// split longer buffers.
	ChunkSize int `yaml:"chunk_size"`

	// MaxLevel is the RMS value that maps to a normalized level of 1.0.
	MaxLevel float64 `yaml:"max_level"`

	// Threshold is the initial dynamic threshold in [0, 1].
	Threshold float64 `yaml:"threshold"`

	// Attack is how long the level must stay above the threshold before
	// speech onset is declared.
	Attack float64 `yaml:"attack"`

	// Release is how long the level must stay at or below the threshold
	// before speech end is declared.
	Release float64 `yaml:"release"`

	// HistorySize caps the number of raw RMS readings kept for adaptation.
	HistorySize int `yaml:"history_size"`

	// AvgWindow is the number of most recent readings averaged to form the
	// adaptation target.
	AvgWindow int `yaml:"avg_window"`

	// PreBufferSize is the number of silent chunks retained and replayed with
	// a speech start event. Zero disables pre-buffering.
	PreBufferSize int `yaml:"pre_buffer_size"`

	// AdaptUpRate is the fraction of the gap closed per chunk when the target
	// is above the threshold.
	AdaptUpRate float64 `yaml:"adapt_up_rate"`

	// AdaptDownRate is the fraction of the gap closed per chunk when the
	// target is below the threshold.
	AdaptDownRate float64 `yaml:"adapt_down_rate"`

	// HysteresisMultiply scales the normalized history average.
	HysteresisMultiply float64 `yaml:"hysteresis_multiply"`

	// HysteresisOffset is added to the scaled history average.
	HysteresisOffset float64 `yaml:"hysteresis_offset"`

	// MaxSpeechDuration forces a speech timeout once a segment lasts this
	// long. Zero disables the limit.
	MaxSpeechDuration float64 `yaml:"max_speech_duration"`

	// MinSpeechDuration silently discards segments shorter than this. Zero
	// disables the filter.
	MinSpeechDuration float64 `yaml:"min_speech_duration"`
}

// DefaultConfig returns the stock tuning for 16 kHz 16-bit mono speech.
func DefaultConfig() Config {
	return Config{
		SampleRate:         16000,
		SampleWidth:        2,
		Channels:           1,
		ChunkSize:          1024,
		MaxLevel:           25000,
		Threshold:          0.5,
		Attack:             0.2,
		Release:            1.5,
		HistorySize:        500,
		AvgWindow:          30,
		PreBufferSize:      10,
		AdaptUpRate:        0.0025,
		AdaptDownRate:      1.0,
		HysteresisMultiply: 1.05,
		HysteresisOffset:   0.02,
		MaxSpeechDuration:  0,
		MinSpeechDuration:  0,
	}
}

// ConfigError reports the first configuration field that violates its
// constraint. Inspect it with [errors.As].
type ConfigError struct {
	// Field is the snake_case name of the offending field (as used in YAML).
	Field string

	// Value is the rejected value.
	Value any

	// Reason describes the constraint, e.g. "positive" or "in [0, 1]".
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("vad: %s must be %s, got %v", e.Field, e.Reason, e.Value)
}

// Validate checks every field against its constraint, in declaration order,
// and returns a [*ConfigError] for the first violation.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return &ConfigError{Field: "sample_rate", Value: c.SampleRate, Reason: "positive"}
	case !audio.ValidWidth(c.SampleWidth):
		return &ConfigError{Field: "sample_width", Value: c.SampleWidth, Reason: "1, 2, or 4"}
	case c.Channels < 1:
		return &ConfigError{Field: "channels", Value: c.Channels, Reason: ">= 1"}
	case c.ChunkSize <= 0:
		return &ConfigError{Field: "chunk_size", Value: c.ChunkSize, Reason: "positive"}
	case !(c.MaxLevel > 0) || math.IsInf(c.MaxLevel, 1):
		return &ConfigError{Field: "max_level", Value: c.MaxLevel, Reason: "positive"}
	case !(c.Threshold >= 0 && c.Threshold <= 1):
		return &ConfigError{Field: "threshold", Value: c.Threshold, Reason: "in [0, 1]"}
	case !(c.Attack >= 0):
		return &ConfigError{Field: "attack", Value: c.Attack, Reason: ">= 0"}
	case !(c.Release >= 0):
		return &ConfigError{Field: "release", Value: c.Release, Reason: ">= 0"}
	case c.HistorySize < 1:
		return &ConfigError{Field: "history_size", Value: c.HistorySize, Reason: ">= 1"}
	case c.AvgWindow < 1:
		return &ConfigError{Field: "avg_window", Value: c.AvgWindow, Reason: ">= 1"}
	case c.PreBufferSize < 0:
		return &ConfigError{Field: "pre_buffer_size", Value: c.PreBufferSize, Reason: ">= 0"}
	case !(c.AdaptUpRate >= 0):
		return &ConfigError{Field: "adapt_up_rate", Value: c.AdaptUpRate, Reason: ">= 0"}
	case !(c.AdaptDownRate >= 0):
		return &ConfigError{Field: "adapt_down_rate", Value: c.AdaptDownRate, Reason: ">= 0"}
	case !(c.MaxSpeechDuration >= 0):
		return &ConfigError{Field: "max_speech_duration", Value: c.MaxSpeechDuration, Reason: ">= 0"}
	case !(c.MinSpeechDuration >= 0):
		return &ConfigError{Field: "min_speech_duration", Value: c.MinSpeechDuration, Reason: ">= 0"}
	}
	return nil
}

// Format returns the PCM layout described by c.
func (c Config) Format() audio.Format {
	return audio.Format{SampleRate: c.SampleRate, SampleWidth: c.SampleWidth, Channels: c.Channels}
}

// ChunkDuration returns the duration of one ChunkSize chunk in seconds.
func (c Config) ChunkDuration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.ChunkSize) / float64(c.SampleRate)
}

// String renders every field, e.g. "vad.Config{sample_rate=16000, ...}".
func (c Config) String() string {
	return fmt.Sprintf("vad.Config{sample_rate=%d, sample_width=%d, channels=%d, chunk_size=%d, "+
		"max_level=%g, threshold=%g, attack=%g, release=%g, history_size=%d, avg_window=%d, "+
		"pre_buffer_size=%d, adapt_up_rate=%g, adapt_down_rate=%g, hysteresis_multiply=%g, "+
		"hysteresis_offset=%g, max_speech_duration=%g, min_speech_duration=%g}",
		c.SampleRate, c.SampleWidth, c.Channels, c.ChunkSize,
		c.MaxLevel, c.Threshold, c.Attack, c.Release, c.HistorySize, c.AvgWindow,
		c.PreBufferSize, c.AdaptUpRate, c.AdaptDownRate, c.HysteresisMultiply,
		c.HysteresisOffset, c.MaxSpeechDuration, c.MinSpeechDuration)
}
