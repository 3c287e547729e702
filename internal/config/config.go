// Package config provides the configuration schema, loader, hot-reload
// watcher and engine registry for the rmsvad service and CLI.
package config

import (
	"log/slog"

	"github.com/MrWong99/rmsvad/pkg/vad"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l to the corresponding [slog.Level]. Unknown and empty values map
// to [slog.LevelInfo].
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Engine   string         `yaml:"engine"`
	VAD      vad.Config     `yaml:"vad"`
	Segments SegmentsConfig `yaml:"segments"`
	Detect   DetectConfig   `yaml:"detect"`
}

// ServerConfig holds network and logging settings for the serve command.
type ServerConfig struct {
	// ListenAddr is the TCP address for the HTTP server (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel sets the minimum log severity.
	LogLevel LogLevel `yaml:"log_level"`

	// ServiceName is reported as the OpenTelemetry service.name resource.
	ServiceName string `yaml:"service_name"`
}

// SegmentsConfig controls what happens with completed speech segments.
type SegmentsConfig struct {
	// OutputDir, when non-empty, is where segments are written as WAV files.
	OutputDir string `yaml:"output_dir"`

	// IncludePreBuffer prepends the pre-activation audio to each segment.
	IncludePreBuffer bool `yaml:"include_pre_buffer"`
}

// DetectConfig tunes the offline detect command.
type DetectConfig struct {
	// Concurrency is the number of files processed in parallel.
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration used when no file is given. Loading a
// file starts from these values, so any key may be omitted.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:  ":8080",
			LogLevel:    LogInfo,
			ServiceName: "rmsvad",
		},
		Engine:   EngineRMS,
		VAD:      vad.DefaultConfig(),
		Segments: SegmentsConfig{IncludePreBuffer: true},
		Detect:   DetectConfig{Concurrency: 4},
	}
}
