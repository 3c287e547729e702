package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/rmsvad/internal/cli"
	"github.com/MrWong99/rmsvad/internal/detect"
	"github.com/MrWong99/rmsvad/pkg/vad"
)

// DetectCmd runs offline detection.
type DetectCmd struct {
	Config      string   `short:"c" type:"path" help:"Path to YAML config file (optional)."`
	Out         string   `short:"o" type:"path" help:"Write each segment as a WAV file below this directory."`
	Events      bool     `short:"e" help:"Print every speech event as it is detected."`
	Concurrency int      `help:"Number of files processed at once (default from config)."`
	Files       []string `arg:"" name:"files" help:"WAV files to analyse." type:"existingfile"`
}

// Run implements the detect command.
func (c *DetectCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	logger, _ := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	opts := detect.Options{
		VAD:              cfg.VAD,
		OutputDir:        cfg.Segments.OutputDir,
		IncludePreBuffer: cfg.Segments.IncludePreBuffer,
		Concurrency:      cfg.Detect.Concurrency,
	}
	if c.Out != "" {
		opts.OutputDir = c.Out
	}
	if c.Concurrency > 0 {
		opts.Concurrency = c.Concurrency
	}
	if c.Events {
		var mu sync.Mutex
		opts.OnEvent = func(path string, ev vad.Event) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Println(cli.RenderEvent(path, ev))
		}
	}

	results, err := detect.Files(ctx, c.Files, opts)
	for _, r := range results {
		fmt.Println(cli.RenderReport(r))
	}
	if len(results) > 1 {
		fmt.Println(cli.RenderSummary(results))
	}
	if err != nil {
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
