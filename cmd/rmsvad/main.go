// Command rmsvad detects speech in PCM audio, either offline over WAV files
// or live over a WebSocket endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/MrWong99/rmsvad/internal/cli"
	"github.com/MrWong99/rmsvad/internal/config"
)

var version = "0.1.0"

// CLI defines the command-line interface.
type CLI struct {
	Detect  DetectCmd  `cmd:"" help:"Detect speech segments in WAV files."`
	Serve   ServeCmd   `cmd:"" help:"Serve the streaming detection endpoint."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// VersionCmd prints the version.
type VersionCmd struct{}

// Run implements the version command.
func (VersionCmd) Run() error {
	cli.PrintVersion(os.Stdout, version)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── CLI parsing ───────────────────────────────────────────────────────────
	var args CLI
	kctx := kong.Parse(&args,
		kong.Name("rmsvad"),
		kong.Description("Adaptive RMS voice activity detection."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if err := kctx.Run(); err != nil {
		cli.PrintError(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// loadConfig reads the config at path, or returns the defaults when path is
// empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %q not found; copy configs/example.yaml to get started", path)
	}
	return cfg, err
}

// newLogger returns a text logger on stderr whose level can be changed at
// runtime through the returned LevelVar.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(level.Slog())
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}
