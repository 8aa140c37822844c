// Package app assembles a rig from a loaded config: level, mover, telemetry,
// event bus, camera and controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Versifine/locorig/internal/config"
	"github.com/Versifine/locorig/internal/event"
	"github.com/Versifine/locorig/internal/input"
	"github.com/Versifine/locorig/internal/logger"
	"github.com/Versifine/locorig/internal/physics"
	"github.com/Versifine/locorig/internal/rig"
	"github.com/Versifine/locorig/internal/rotation"
	"github.com/Versifine/locorig/internal/telemetry"
	"github.com/Versifine/locorig/internal/view"
	"github.com/Versifine/locorig/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

type App struct {
	Level      *world.Level
	Grid       *world.Grid
	Mover      *physics.VoxelMover
	Camera     *view.Camera
	Body       *rig.Transform
	Bus        *event.Bus
	Controller *rig.Controller

	mu      sync.Mutex
	cfg     *config.Config
	closers []io.Closer
}

// New builds every collaborator described by cfg. src may be nil for a rig
// that only follows telemetry.
func New(ctx context.Context, cfg *config.Config, src input.Source) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	level, err := loadLevel(cfg.Sim.Level)
	if err != nil {
		return nil, err
	}
	grid, err := level.Build()
	if err != nil {
		return nil, fmt.Errorf("build level: %w", err)
	}

	moverOpts := cfg.MoverOptions()
	moverOpts.Props = level.PhysicsProps()
	mover, err := physics.NewVoxelMover(grid, level.SpawnPoint(), moverOpts)
	if err != nil {
		return nil, fmt.Errorf("create mover: %w", err)
	}

	a := &App{
		Level:  level,
		Grid:   grid,
		Mover:  mover,
		Camera: view.NewCamera(),
		Body:   rig.NewTransform(),
		Bus:    event.NewBus(),
		cfg:    cfg,
	}
	event.LogEvents(a.Bus)

	ch, closer, err := OpenTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.Controller, err = rig.New(rig.Options{
		Mover:             mover,
		Body:              a.Body,
		Camera:            a.Camera,
		Input:             src,
		Telemetry:         ch,
		Bus:               a.Bus,
		Tunables:          cfg.Rig,
		OrientationOffset: PitchOffset(cfg.View.PitchOffset),
		InitialYaw:        level.SpawnYaw,
		Rotation:          rotationOptions(cfg),
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	slog.Info("Rig assembled",
		"level", level.Name,
		"cells", grid.Len(),
		"spawn", level.SpawnPoint(),
		"telemetry", cfg.Telemetry.Mode,
		"tick_rate", cfg.Sim.TickRate,
	)
	return a, nil
}

func loadLevel(path string) (*world.Level, error) {
	if path == "" {
		return world.DefaultLevel(), nil
	}
	level, err := world.LoadLevel(path)
	if err != nil {
		return nil, fmt.Errorf("load level: %w", err)
	}
	return level, nil
}

// OpenTelemetry starts the channel selected by cfg.Mode. The closer is nil
// for modes that hold no resources.
func OpenTelemetry(ctx context.Context, cfg config.TelemetryConfig) (telemetry.Channel, io.Closer, error) {
	switch cfg.Mode {
	case "", config.TelemetryNone:
		return nil, nil, nil
	case config.TelemetryUDP:
		src, err := telemetry.ListenUDP(ctx, cfg.Addr, cfg.MaxAge)
		if err != nil {
			return nil, nil, fmt.Errorf("open udp telemetry: %w", err)
		}
		return src, src, nil
	case config.TelemetryFile:
		src, err := telemetry.WatchDir(cfg.Dir, cfg.MaxAge)
		if err != nil {
			return nil, nil, fmt.Errorf("open file telemetry: %w", err)
		}
		return src, src, nil
	case config.TelemetryReplay:
		f, err := os.Open(cfg.Replay)
		if err != nil {
			return nil, nil, fmt.Errorf("open replay: %w", err)
		}
		defer f.Close()
		script, err := telemetry.LoadScriptCSV(f)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Loaded telemetry replay", "path", cfg.Replay, "ticks", script.Len())
		return script, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown telemetry mode %q", config.ErrInvalid, cfg.Mode)
	}
}

// PitchOffset is the orientation offset for a camera tilted by deg degrees
// about the body's right axis. Positive values look down.
func PitchOffset(deg float64) mgl64.Quat {
	if deg == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(mgl64.DegToRad(deg), mgl64.Vec3{1, 0, 0})
}

func rotationOptions(cfg *config.Config) rotation.Options {
	return rotation.Options{
		HoldoverTicks:   cfg.View.HoldoverTicks,
		ViewFollowsBody: cfg.View.FollowsBody,
	}
}

func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Apply pushes the hot-reloadable parts of cfg into the running rig. Body,
// level and telemetry settings only take effect on restart.
func (a *App) Apply(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("app: nil config")
	}
	if err := a.Controller.SetTunables(cfg.Rig); err != nil {
		return err
	}
	a.Controller.SetRotationOptions(rotationOptions(cfg))
	logger.SetLevel(cfg.Logging.Level)

	a.mu.Lock()
	prev := a.cfg
	a.cfg = cfg
	a.mu.Unlock()

	if prev.Body != cfg.Body || prev.Telemetry != cfg.Telemetry || prev.Sim != cfg.Sim || prev.View.PitchOffset != cfg.View.PitchOffset {
		slog.Warn("Config change needs a restart to take full effect", "sections", "body/telemetry/sim/view.pitch_offset")
	}
	slog.Info("Config applied", "log_level", cfg.Logging.Level)
	return nil
}

// Watch applies every reload from w until ctx is done or w is closed.
func (a *App) Watch(ctx context.Context, w *config.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-w.Updates:
			if !ok {
				return
			}
			if err := a.Apply(cfg); err != nil {
				slog.Error("Rejected config reload", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Error("Config reload failed", "error", err)
		}
	}
}

// Run ticks the rig at the configured rate until ctx is done.
func (a *App) Run(ctx context.Context) error {
	cfg := a.Config()
	interval := cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dt := interval.Seconds()
	slog.Info("Rig running", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := a.Controller.Tick(dt)
			if err != nil {
				return fmt.Errorf("rig tick: %w", err)
			}
			every := a.Config().Sim.StatusEvery
			if every > 0 && snap.Tick%uint64(every) == 0 {
				logStatus(snap)
			}
		}
	}
}

func logStatus(s rig.Snapshot) {
	slog.Info("Rig status",
		"tick", s.Tick,
		"pos", fmt.Sprintf("(%.2f, %.2f, %.2f)", s.Position.X(), s.Position.Y(), s.Position.Z()),
		"grounded", s.Grounded,
		"yaw", fmt.Sprintf("%.1f", s.BodyYaw),
		"drive", s.Drive,
	)
}

// Close stops telemetry sources and waits for in-flight event handlers.
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.Bus.Wait()
	return errors.Join(errs...)
}
