package input

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Raw is one snapshot of device state. Sticks use X for right and Y for
// forward/up, in [-1, 1]. MouseDX is the horizontal cursor motion since the
// previous read. Jump is edge-triggered.
type Raw struct {
	Forward bool
	Back    bool
	Left    bool
	Right   bool
	Run     bool

	TurnLeft  bool
	TurnRight bool
	Jump      bool

	LeftStick  mgl64.Vec2
	RightStick mgl64.Vec2
	MouseDX    float64
}

// Source is a non-blocking device reader.
type Source interface {
	Read() Raw
}

type Idle struct{}

func (Idle) Read() Raw { return Raw{} }

type SourceFunc func() Raw

func (f SourceFunc) Read() Raw { return f() }

// Merge combines several sources: buttons are OR-ed, sticks summed and
// clamped, mouse motion summed.
type Merge []Source

func (m Merge) Read() Raw {
	var out Raw
	for _, src := range m {
		if src == nil {
			continue
		}
		r := src.Read()
		out.Forward = out.Forward || r.Forward
		out.Back = out.Back || r.Back
		out.Left = out.Left || r.Left
		out.Right = out.Right || r.Right
		out.Run = out.Run || r.Run
		out.TurnLeft = out.TurnLeft || r.TurnLeft
		out.TurnRight = out.TurnRight || r.TurnRight
		out.Jump = out.Jump || r.Jump
		out.LeftStick = out.LeftStick.Add(r.LeftStick)
		out.RightStick = out.RightStick.Add(r.RightStick)
		out.MouseDX += r.MouseDX
	}
	out.LeftStick = clampStick(out.LeftStick)
	out.RightStick = clampStick(out.RightStick)
	return out
}

func clampStick(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{clampUnit(v.X()), clampUnit(v.Y())}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
