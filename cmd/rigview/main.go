package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/Versifine/locorig/internal/app"
	"github.com/Versifine/locorig/internal/config"
	"github.com/Versifine/locorig/internal/input/ebitensrc"
	"github.com/Versifine/locorig/internal/logger"
	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the rig config file (empty for defaults)")
	scale := flag.Float64("scale", defaultScale, "pixels per block")
	mouseLook := flag.Bool("mouse", true, "turn with the mouse while the left button is held")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		slog.Error("Failed to open log file", "error", err)
	}
	defer logger.Close()

	src := ebitensrc.New()
	src.MouseLook = *mouseLook

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rigApp, err := app.New(ctx, cfg, src)
	if err != nil {
		slog.Error("Failed to assemble rig", "error", err)
		os.Exit(1)
	}
	defer rigApp.Close()

	if *configPath != "" {
		if w, err := config.NewWatcher(*configPath); err != nil {
			slog.Error("Failed to watch config", "error", err)
		} else {
			defer w.Close()
			go rigApp.Watch(ctx, w)
		}
	}

	ebiten.SetTPS(cfg.Sim.TickRate)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle("locorig")

	if err := ebiten.RunGame(newGame(rigApp, *scale)); err != nil {
		slog.Error("Viewer stopped", "error", err)
		os.Exit(1)
	}
}
