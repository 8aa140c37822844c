// Package ebitensrc reads keyboard, mouse and the first standard gamepad
// through ebiten. Read must be called from the ebiten Update goroutine.
package ebitensrc

import (
	"github.com/Versifine/locorig/internal/input"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const runTriggerThreshold = 0.5

type Source struct {
	// MouseLook enables cursor motion as yaw input while the left button is
	// held.
	MouseLook bool

	lastCursorX int
	haveCursor  bool
}

func New() *Source {
	return &Source{MouseLook: true}
}

func (s *Source) Read() input.Raw {
	raw := input.Raw{
		Forward:   ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp),
		Back:      ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown),
		Left:      ebiten.IsKeyPressed(ebiten.KeyA),
		Right:     ebiten.IsKeyPressed(ebiten.KeyD),
		Run:       ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight),
		TurnLeft:  ebiten.IsKeyPressed(ebiten.KeyQ) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft),
		TurnRight: ebiten.IsKeyPressed(ebiten.KeyE) || ebiten.IsKeyPressed(ebiten.KeyArrowRight),
		Jump:      inpututil.IsKeyJustPressed(ebiten.KeySpace),
	}

	if gamepads := ebiten.GamepadIDs(); len(gamepads) > 0 {
		id := gamepads[0]
		if ebiten.IsStandardGamepadLayoutAvailable(id) {
			// Standard layout reports stick up as negative.
			raw.LeftStick = input.Stick(
				ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal),
				-ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical),
			)
			raw.RightStick = input.Stick(
				ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisRightStickHorizontal),
				-ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisRightStickVertical),
			)
			raw.Jump = raw.Jump || inpututil.IsStandardGamepadButtonJustPressed(id, ebiten.StandardGamepadButtonRightBottom)
			raw.Run = raw.Run || ebiten.StandardGamepadButtonValue(id, ebiten.StandardGamepadButtonFrontBottomLeft) > runTriggerThreshold
		}
	}

	raw.MouseDX = s.mouseDelta()
	return raw
}

func (s *Source) mouseDelta() float64 {
	x, _ := ebiten.CursorPosition()
	defer func() {
		s.lastCursorX = x
		s.haveCursor = true
	}()
	if !s.MouseLook || !s.haveCursor || !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		return 0
	}
	return float64(x - s.lastCursorX)
}

var _ input.Source = (*Source)(nil)
