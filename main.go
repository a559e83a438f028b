package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/iburimskiy/reality-check/internal/capture"
	"github.com/iburimskiy/reality-check/internal/config"
	"github.com/iburimskiy/reality-check/internal/game"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("reality-check", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	outDir := fs.String("out", "", "directory for captured frames (implies -no-dialog)")
	noDialog := fs.Bool("no-dialog", false, "save captures without asking")
	seed := fs.Int64("seed", 0, "random seed for the procedural scene, 0 picks one")
	width := fs.Int("width", 0, "initial window width")
	height := fs.Int("height", 0, "initial window height")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Capture.OutputDir = *outDir
			cfg.Capture.NoDialog = true
		case "no-dialog":
			cfg.Capture.NoDialog = *noDialog
		case "seed":
			cfg.Seed = *seed
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	var sink capture.Sink = capture.DialogSink{Title: "Save " + config.ButtonLabel}
	if cfg.Capture.NoDialog {
		sink = capture.DirSink{Dir: cfg.Capture.OutputDir}
	}

	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(config.WindowTitle)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.TPS)

	g, err := game.New(game.Options{Config: cfg, Sink: sink, Logger: log})
	if err != nil {
		return err
	}
	defer g.Close()

	if err := ebiten.RunGame(g); err != nil {
		return err
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
