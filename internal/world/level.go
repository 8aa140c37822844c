package world

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/Versifine/locorig/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

var ErrInvalidLevel = errors.New("world: invalid level")

// Level describes a test course: a palette of block heights, boxes filled
// with those blocks, props and a spawn point.
type Level struct {
	Name     string             `yaml:"name"`
	Spawn    []float64          `yaml:"spawn"`
	SpawnYaw float64            `yaml:"spawn_yaw"`
	Palette  map[string]float64 `yaml:"palette"`
	Boxes    []Box              `yaml:"boxes"`
	Props    []PropDef          `yaml:"props"`
}

type Box struct {
	Block string `yaml:"block"`
	Min   []int  `yaml:"min"`
	Max   []int  `yaml:"max"`
	// Height overrides the palette entry when set.
	Height float64 `yaml:"height"`
}

type PropDef struct {
	Pos    []float64 `yaml:"pos"`
	Radius float64   `yaml:"radius"`
	Height float64   `yaml:"height"`
}

var defaultPalette = map[string]float64{
	"air":   0,
	"stone": 1,
	"slab":  0.5,
	"step":  0.25,
}

const defaultLevelYAML = `name: yard
spawn: [0.5, 0, 0.5]
spawn_yaw: 0
boxes:
  - {block: stone, min: [-24, -1, -24], max: [24, -1, 24]}
  - {block: step, min: [4, 0, -2], max: [4, 0, 2]}
  - {block: slab, min: [5, 0, -2], max: [5, 0, 2]}
  - {block: stone, min: [6, 0, -2], max: [9, 0, 2]}
  - {block: stone, min: [-8, 0, 6], max: [8, 2, 6]}
  - {block: stone, min: [-8, 3, -8], max: [-4, 3, -4]}
props:
  - {pos: [-3, 0, 3], radius: 0.4, height: 1.0}
  - {pos: [2, 0, -4], radius: 0.6, height: 1.5}
`

// DefaultLevel is the built-in yard: a floor, a staircase of step, slab and
// full block, a wall, an overhang and two props.
func DefaultLevel() *Level {
	lvl, err := ParseLevel([]byte(defaultLevelYAML))
	if err != nil {
		panic(fmt.Sprintf("default level: %v", err))
	}
	return lvl
}

func LoadLevel(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	lvl, err := ParseLevel(data)
	if err != nil {
		return nil, fmt.Errorf("load level %s: %w", path, err)
	}
	return lvl, nil
}

func ReadLevel(r io.Reader) (*Level, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	return ParseLevel(data)
}

func ParseLevel(data []byte) (*Level, error) {
	var lvl Level
	if err := yaml.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}
	if err := lvl.Validate(); err != nil {
		return nil, err
	}
	return &lvl, nil
}

func (l *Level) Validate() error {
	if len(l.Spawn) != 0 && len(l.Spawn) != 3 {
		return fmt.Errorf("%w: spawn needs 3 coordinates, got %d", ErrInvalidLevel, len(l.Spawn))
	}
	for i, box := range l.Boxes {
		if len(box.Min) != 3 || len(box.Max) != 3 {
			return fmt.Errorf("%w: box %d needs 3-element min and max", ErrInvalidLevel, i)
		}
		if box.Height != 0 {
			if box.Height < 0 || box.Height > 1 {
				return fmt.Errorf("%w: box %d height %.3f outside [0,1]", ErrInvalidLevel, i, box.Height)
			}
			continue
		}
		if _, ok := l.blockHeight(box.Block); !ok {
			return fmt.Errorf("%w: box %d uses unknown block %q", ErrInvalidLevel, i, box.Block)
		}
	}
	for i, p := range l.Props {
		if len(p.Pos) != 3 {
			return fmt.Errorf("%w: prop %d needs 3 coordinates", ErrInvalidLevel, i)
		}
		if p.Radius <= 0 || p.Height <= 0 {
			return fmt.Errorf("%w: prop %d needs positive radius and height", ErrInvalidLevel, i)
		}
	}
	return nil
}

func (l *Level) blockHeight(name string) (float64, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if h, ok := l.Palette[key]; ok {
		return math.Max(0, math.Min(h, 1)), true
	}
	h, ok := defaultPalette[key]
	return h, ok
}

// Build fills a new grid with the level's boxes in order; later boxes
// overwrite earlier ones.
func (l *Level) Build() (*Grid, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	g := NewGrid()
	for _, box := range l.Boxes {
		h := box.Height
		if h == 0 {
			h, _ = l.blockHeight(box.Block)
		}
		g.Fill([3]int{box.Min[0], box.Min[1], box.Min[2]}, [3]int{box.Max[0], box.Max[1], box.Max[2]}, h)
	}
	return g, nil
}

func (l *Level) SpawnPoint() mgl64.Vec3 {
	if len(l.Spawn) != 3 {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{l.Spawn[0], l.Spawn[1], l.Spawn[2]}
}

func (l *Level) PhysicsProps() []physics.Prop {
	props := make([]physics.Prop, 0, len(l.Props))
	for _, p := range l.Props {
		props = append(props, physics.Prop{
			Base:   mgl64.Vec3{p.Pos[0], p.Pos[1], p.Pos[2]},
			Radius: p.Radius,
			Height: p.Height,
		})
	}
	return props
}
