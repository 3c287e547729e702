package vad_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/MrWong99/rmsvad/pkg/vad"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := vad.DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*vad.Config)
	}{
		{"sample_rate", func(c *vad.Config) { c.SampleRate = 0 }},
		{"sample_width", func(c *vad.Config) { c.SampleWidth = 3 }},
		{"channels", func(c *vad.Config) { c.Channels = 0 }},
		{"chunk_size", func(c *vad.Config) { c.ChunkSize = -1 }},
		{"max_level", func(c *vad.Config) { c.MaxLevel = 0 }},
		{"max_level", func(c *vad.Config) { c.MaxLevel = math.NaN() }},
		{"threshold", func(c *vad.Config) { c.Threshold = 1.5 }},
		{"threshold", func(c *vad.Config) { c.Threshold = -0.1 }},
		{"attack", func(c *vad.Config) { c.Attack = -1 }},
		{"release", func(c *vad.Config) { c.Release = -0.5 }},
		{"history_size", func(c *vad.Config) { c.HistorySize = 0 }},
		{"avg_window", func(c *vad.Config) { c.AvgWindow = 0 }},
		{"pre_buffer_size", func(c *vad.Config) { c.PreBufferSize = -1 }},
		{"adapt_up_rate", func(c *vad.Config) { c.AdaptUpRate = -0.1 }},
		{"adapt_down_rate", func(c *vad.Config) { c.AdaptDownRate = math.NaN() }},
		{"max_speech_duration", func(c *vad.Config) { c.MaxSpeechDuration = -1 }},
		{"min_speech_duration", func(c *vad.Config) { c.MinSpeechDuration = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			cfg := vad.DefaultConfig()
			tc.mutate(&cfg)
			d, err := vad.New(cfg)
			if d != nil {
				t.Error("New returned a detector for an invalid config")
			}
			var ce *vad.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("New error = %v, want *ConfigError", err)
			}
			if ce.Field != tc.field {
				t.Errorf("Field = %q, want %q", ce.Field, tc.field)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("Error() = %q, want it to name %q", err.Error(), tc.field)
			}
		})
	}
}

func TestNew_FirstViolationWins(t *testing.T) {
	cfg := vad.DefaultConfig()
	cfg.Release = -1
	cfg.Channels = 0
	_, err := vad.New(cfg)
	var ce *vad.ConfigError
	if !errors.As(err, &ce) || ce.Field != "channels" {
		t.Fatalf("err = %v, want channels violation", err)
	}
}

func TestNew_BoundaryValuesAccepted(t *testing.T) {
	cfg := vad.DefaultConfig()
	cfg.Threshold = 0
	cfg.Attack = 0
	cfg.Release = 0
	cfg.PreBufferSize = 0
	cfg.AdaptUpRate = 0
	cfg.AdaptDownRate = 0
	cfg.HistorySize = 1
	cfg.AvgWindow = 1
	for _, w := range []int{1, 2, 4} {
		cfg.SampleWidth = w
		if _, err := vad.New(cfg); err != nil {
			t.Errorf("width %d: %v", w, err)
		}
	}
	cfg.Threshold = 1
	if _, err := vad.New(cfg); err != nil {
		t.Errorf("threshold 1: %v", err)
	}
}

func TestConfigError_Message(t *testing.T) {
	err := &vad.ConfigError{Field: "attack", Value: -1.0, Reason: ">= 0"}
	if got, want := err.Error(), "vad: attack must be >= 0, got -1"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := vad.DefaultConfig()
	if got := cfg.ChunkDuration(); !near(got, 0.064) {
		t.Errorf("ChunkDuration() = %v, want 0.064", got)
	}
	f := cfg.Format()
	if f.SampleRate != 16000 || f.SampleWidth != 2 || f.Channels != 1 {
		t.Errorf("Format() = %+v", f)
	}
	s := cfg.String()
	for _, want := range []string{"vad.Config{", "sample_rate=16000", "max_level=25000", "min_speech_duration=0}"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestDetector_ConfigIsCopied(t *testing.T) {
	cfg := vad.DefaultConfig()
	d := mustNew(t, cfg)
	cfg.Threshold = 0.9
	if d.Config().Threshold != 0.5 || d.Threshold() != 0.5 {
		t.Error("detector observed mutation of the caller's Config")
	}
}
