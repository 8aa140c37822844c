package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Versifine/locorig/internal/app"
	"github.com/Versifine/locorig/internal/config"
	"github.com/Versifine/locorig/internal/debug"
	"github.com/Versifine/locorig/internal/input"
	"github.com/Versifine/locorig/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the rig config file (empty for defaults)")
	watch := flag.Bool("watch", true, "reload tunables when the config file changes")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The console is built after the controller it drives, so input reads
	// go through this indirection.
	var console *debug.Console
	src := input.SourceFunc(func() input.Raw {
		if console == nil {
			return input.Raw{}
		}
		return console.Read()
	})

	rigApp, err := app.New(ctx, cfg, src)
	if err != nil {
		slog.Error("Failed to assemble rig", "error", err)
		os.Exit(1)
	}
	defer rigApp.Close()

	if *watch && *configPath != "" {
		w, err := config.NewWatcher(*configPath)
		if err != nil {
			slog.Error("Failed to watch config", "error", err)
		} else {
			defer w.Close()
			go rigApp.Watch(ctx, w)
		}
	}

	if cfg.Sim.Console {
		console = debug.NewConsole(rigApp.Controller, debug.Options{
			Blocks:       rigApp.Grid,
			Looker:       rigApp.Camera,
			EyeHeight:    cfg.Body.EyeHeight,
			TickInterval: cfg.TickInterval(),
		})
		err = console.Start(ctx)
	} else {
		err = rigApp.Run(ctx)
	}
	if err != nil {
		slog.Error("Rig stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Rig stopped")
}
