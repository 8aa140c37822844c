package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Versifine/locorig/internal/config"
	"github.com/Versifine/locorig/internal/input"
	"github.com/Versifine/locorig/internal/telemetry"
	"github.com/Versifine/locorig/internal/tuning"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, cfg *config.Config, src input.Source) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, src)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewDefaultLevelStandsOnGround(t *testing.T) {
	a := newApp(t, config.Default(), nil)

	snap, err := a.Controller.Tick(1.0 / 60)
	require.NoError(t, err)

	assert.True(t, snap.Grounded)
	assert.Equal(t, a.Level.SpawnPoint().Y(), snap.Position.Y())
	assert.Positive(t, a.Grid.Len())
	assert.Len(t, a.Mover.Props(), len(a.Level.Props))
}

func TestNewWalksForward(t *testing.T) {
	a := newApp(t, config.Default(), input.SourceFunc(func() input.Raw {
		return input.Raw{Forward: true}
	}))
	start := a.Controller.Snapshot().Position

	for i := 0; i < 20; i++ {
		_, err := a.Controller.Tick(1.0 / 60)
		require.NoError(t, err)
	}

	assert.Greater(t, a.Controller.Snapshot().Position.Z(), start.Z())
}

func TestNewRejectsMissingLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.Level = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenTelemetryModes(t *testing.T) {
	ch, closer, err := OpenTelemetry(context.Background(), config.TelemetryConfig{Mode: config.TelemetryNone})
	require.NoError(t, err)
	assert.Nil(t, ch)
	assert.Nil(t, closer)

	_, _, err = OpenTelemetry(context.Background(), config.TelemetryConfig{Mode: "serial"})
	assert.ErrorIs(t, err, config.ErrInvalid)

	ch, closer, err = OpenTelemetry(context.Background(), config.TelemetryConfig{Mode: config.TelemetryUDP, Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NotNil(t, closer)
	_, ok := ch.(*telemetry.UDPSource)
	assert.True(t, ok)
	require.NoError(t, closer.Close())
}

func TestOpenTelemetryReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.csv")
	require.NoError(t, os.WriteFile(path, []byte("speed,rotation\n0.5,90\n,45\n"), 0o644))

	ch, closer, err := OpenTelemetry(context.Background(), config.TelemetryConfig{Mode: config.TelemetryReplay, Replay: path})
	require.NoError(t, err)
	assert.Nil(t, closer)

	v, err := ch.ReadSpeed()
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
	r, err := ch.ReadRotation()
	require.NoError(t, err)
	assert.Equal(t, 90.0, r)
}

func TestReplayDrivesYaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.csv")
	require.NoError(t, os.WriteFile(path, []byte("rotation\n30\n60\n"), 0o644))

	cfg := config.Default()
	cfg.Telemetry.Mode = config.TelemetryReplay
	cfg.Telemetry.Replay = path
	a := newApp(t, cfg, nil)

	snap, err := a.Controller.Tick(1.0 / 60)
	require.NoError(t, err)
	assert.Equal(t, 30.0, snap.BodyYaw)
	snap, err = a.Controller.Tick(1.0 / 60)
	require.NoError(t, err)
	assert.Equal(t, 60.0, snap.BodyYaw)
}

func TestApplyHotReload(t *testing.T) {
	a := newApp(t, config.Default(), nil)

	next := config.Default()
	next.Rig.Damping = 0.4
	next.View.FollowsBody = true
	require.NoError(t, a.Apply(next))

	assert.Equal(t, 0.4, a.Controller.Tunables().Damping)
	assert.Same(t, next, a.Config())

	bad := config.Default()
	bad.Rig.Damping = -1
	assert.ErrorIs(t, a.Apply(bad), tuning.ErrInvalid)
	assert.Same(t, next, a.Config())
	assert.Error(t, a.Apply(nil))
}

func TestPitchOffset(t *testing.T) {
	assert.Equal(t, mgl64.QuatIdent(), PitchOffset(0))

	down := PitchOffset(90).Rotate(mgl64.Vec3{0, 0, 1})
	assert.InDelta(t, 0, down.X(), 1e-9)
	assert.InDelta(t, -1, down.Y(), 1e-9)
	assert.InDelta(t, 0, down.Z(), 1e-9)
}
