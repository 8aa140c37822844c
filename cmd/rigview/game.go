package main

import (
	"fmt"
	"image/color"
	"math"

	"github.com/Versifine/locorig/internal/app"
	"github.com/Versifine/locorig/internal/rig"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"
)

const (
	screenWidth  = 960
	screenHeight = 720
	defaultScale = 24.0
	// viewRadius is how many blocks around the body are drawn.
	viewRadius = 24
)

type cellKind int

const (
	cellFloor cellKind = iota
	cellStep
	cellWall
)

var cellColors = map[cellKind]color.Color{
	cellFloor: colornames.Dimgray,
	cellStep:  colornames.Steelblue,
	cellWall:  colornames.Lightgray,
}

type game struct {
	app   *app.App
	scale float64
	dt    float64
	snap  rig.Snapshot
	err   error
}

func newGame(a *app.App, scale float64) *game {
	if scale <= 0 {
		scale = defaultScale
	}
	return &game{
		app:   a,
		scale: scale,
		dt:    1 / float64(ebiten.TPS()),
		snap:  a.Controller.Snapshot(),
	}
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.app.Controller.Teleport(g.app.Level.SpawnPoint()); err != nil {
			return err
		}
	}

	snap, err := g.app.Controller.Tick(g.dt)
	if err != nil {
		return err
	}
	g.snap = snap
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Black)

	feet := g.snap.Position
	minY := int(math.Floor(feet.Y())) - 2
	maxY := int(math.Floor(feet.Y() + g.app.Mover.Size().Height - 0.01))
	step := g.app.Mover.Ground().StepOffset

	cx, cz := int(math.Floor(feet.X())), int(math.Floor(feet.Z()))
	for x := cx - viewRadius; x <= cx+viewRadius; x++ {
		for z := cz - viewRadius; z <= cz+viewRadius; z++ {
			top, ok := g.app.Grid.SurfaceHeight(x, z, minY, maxY)
			if !ok {
				continue
			}
			sx, sy := g.project(feet, mgl64.Vec3{float64(x), 0, float64(z + 1)})
			size := float32(g.scale)
			vector.FillRect(screen, sx, sy, size, size, cellColors[classify(top, feet.Y(), step)], false)
			vector.StrokeRect(screen, sx, sy, size, size, 1, colornames.Black, false)
		}
	}

	for _, p := range g.app.Mover.Props() {
		px, py := g.project(feet, p.Base)
		vector.StrokeCircle(screen, px, py, float32(p.Radius*g.scale), 2, colornames.Orange, true)
	}

	eye := feet.Add(mgl64.Vec3{0, g.app.Config().Body.EyeHeight, 0})
	for _, hit := range g.app.Camera.Fan(eye, g.app.Grid) {
		hx, hy := g.project(feet, hit.Point)
		vector.FillRect(screen, hx-2, hy-2, 4, 4, colornames.Red, false)
	}

	bx, by := g.project(feet, feet)
	radius := float32(g.app.Mover.Size().Width / 2 * g.scale)
	bodyColor := colornames.Limegreen
	if !g.snap.Grounded {
		bodyColor = colornames.Yellow
	}
	vector.DrawFilledCircle(screen, bx, by, radius, bodyColor, true)

	facing := g.app.Body.Rotation().Rotate(mgl64.Vec3{0, 0, 1})
	fx, fy := g.project(feet, feet.Add(facing.Mul(1.5)))
	vector.StrokeLine(screen, bx, by, fx, fy, 2, colornames.White, true)

	look := g.app.Camera.Forward()
	lx, ly := g.project(feet, feet.Add(look.Mul(3)))
	vector.StrokeLine(screen, bx, by, lx, ly, 1, colornames.Skyblue, true)

	ebitenutil.DebugPrint(screen, g.status())
}

func (g *game) status() string {
	s := g.snap
	return fmt.Sprintf(
		"TPS %.0f  tick %d\npos (%.2f, %.2f, %.2f)  ground %t\nvel (%.3f, %.3f, %.3f)\nyaw %.1f  view %.1f  drive %s\nWASD move  Q/E turn  Shift run  Space jump  R respawn  Esc quit",
		ebiten.ActualTPS(), s.Tick,
		s.Position.X(), s.Position.Y(), s.Position.Z(), s.Grounded,
		s.Velocity.X(), s.Velocity.Y(), s.Velocity.Z(),
		s.BodyYaw, s.ViewYaw, s.Drive,
	)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// project maps a world point to screen space, top-down and centred on
// center. +X is right and +Z is up.
func (g *game) project(center, p mgl64.Vec3) (float32, float32) {
	sx := screenWidth/2 + (p.X()-center.X())*g.scale
	sy := screenHeight/2 - (p.Z()-center.Z())*g.scale
	return float32(sx), float32(sy)
}

// classify colours a column by how its top compares to the feet.
func classify(top, feet, stepOffset float64) cellKind {
	rise := top - feet
	switch {
	case rise <= 1e-6:
		return cellFloor
	case rise <= stepOffset+1e-6:
		return cellStep
	default:
		return cellWall
	}
}
