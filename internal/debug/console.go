package debug

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Versifine/locorig/internal/input"
	"github.com/Versifine/locorig/internal/rig"
	"github.com/Versifine/locorig/internal/tuning"
	"github.com/Versifine/locorig/internal/view"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/term"
)

const (
	defaultTickInterval = time.Second / 60
	defaultMovePulse    = 180 * time.Millisecond
	defaultTurnPulse    = 120 * time.Millisecond
	statusEvery         = 6
)

// ControlledRig is the slice of the rig controller the console drives.
type ControlledRig interface {
	Tick(dt float64) (rig.Snapshot, error)
	Snapshot() rig.Snapshot
	Teleport(pos mgl64.Vec3) error
	Tunables() tuning.Tunables
	SetTunables(t tuning.Tunables) error
}

type BlockQuerier interface {
	CellHeight(x, y, z int) float64
}

type Looker interface {
	LookAt(eye mgl64.Vec3, blocks view.Solids) (view.Hit, bool)
}

type Options struct {
	Blocks       BlockQuerier
	Looker       Looker
	EyeHeight    float64
	TickInterval time.Duration
	Output       io.Writer
}

// Console is a raw-terminal driver for the rig. It is also the input.Source
// the rig reads, so key presses become short pulses of held input.
type Console struct {
	rig          ControlledRig
	blocks       BlockQuerier
	looker       Looker
	eyeHeight    float64
	tickInterval time.Duration
	movePulse    time.Duration
	turnPulse    time.Duration
	out          io.Writer
	now          func() time.Time

	mu             sync.Mutex
	currentInput   input.Raw
	pendingJump    bool
	forwardUntil   time.Time
	backwardUntil  time.Time
	leftUntil      time.Time
	rightUntil     time.Time
	turnLeftUntil  time.Time
	turnRightUntil time.Time
	commandMode    bool
	commandBuf     []rune
	statusWidth    int
}

func NewConsole(r ControlledRig, opts Options) *Console {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Console{
		rig:          r,
		blocks:       opts.Blocks,
		looker:       opts.Looker,
		eyeHeight:    opts.EyeHeight,
		tickInterval: opts.TickInterval,
		movePulse:    defaultMovePulse,
		turnPulse:    defaultTurnPulse,
		out:          opts.Output,
		now:          time.Now,
	}
}

// Start puts the terminal in raw mode, ticks the rig on its own goroutine and
// reads keys until ctx is done.
func (c *Console) Start(ctx context.Context) error {
	if c == nil {
		return errors.New("console is nil")
	}
	if c.rig == nil {
		return errors.New("console rig is nil")
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Fprint(c.out, "\r\n")
	}()

	fmt.Fprint(c.out, "[debug] console started (W/A/S/D pulse, Q/E turn, Space jump, [ run, X clear, : command, Ctrl-C quit)\r\n")
	c.renderStatusLine()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.tickLoop(ctx)

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		b, err := reader.ReadByte()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read console input: %w", err)
		}
		if b == 3 { // Ctrl-C in raw mode
			return nil
		}
		c.handleKey(reader, b)
	}
}

func (c *Console) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	dt := c.tickInterval.Seconds()
	n := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.rig.Tick(dt); err != nil {
				slog.Debug("debug rig tick failed", "error", err)
			}
			n++
			if n%statusEvery == 0 {
				c.renderStatusLine()
			}
		}
	}
}

// Read implements input.Source.
func (c *Console) Read() input.Raw {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyPulsesLocked(c.now())
	raw := c.currentInput
	raw.Jump = c.pendingJump
	c.pendingJump = false
	return raw
}

func (c *Console) handleKey(reader *bufio.Reader, b byte) {
	if c.isCommandMode() {
		c.handleCommandByte(b)
		return
	}

	switch b {
	case ':':
		c.enterCommandMode()
		return
	case 'w', 'W':
		c.pulse(&c.currentInput.Forward, &c.forwardUntil, &c.currentInput.Back, &c.backwardUntil, c.movePulse)
	case 's', 'S':
		c.pulse(&c.currentInput.Back, &c.backwardUntil, &c.currentInput.Forward, &c.forwardUntil, c.movePulse)
	case 'a', 'A':
		c.pulse(&c.currentInput.Left, &c.leftUntil, &c.currentInput.Right, &c.rightUntil, c.movePulse)
	case 'd', 'D':
		c.pulse(&c.currentInput.Right, &c.rightUntil, &c.currentInput.Left, &c.leftUntil, c.movePulse)
	case 'q', 'Q':
		c.pulse(&c.currentInput.TurnLeft, &c.turnLeftUntil, &c.currentInput.TurnRight, &c.turnRightUntil, c.turnPulse)
	case 'e', 'E':
		c.pulse(&c.currentInput.TurnRight, &c.turnRightUntil, &c.currentInput.TurnLeft, &c.turnLeftUntil, c.turnPulse)
	case ' ':
		c.mu.Lock()
		c.pendingJump = true
		c.mu.Unlock()
	case '[':
		c.toggleRun()
	case 'x', 'X':
		c.clearInput()
	case 27: // ESC + arrow sequence
		next, err := reader.ReadByte()
		if err != nil || next != '[' {
			return
		}
		arrow, err := reader.ReadByte()
		if err != nil {
			return
		}
		switch arrow {
		case 'D': // left
			c.pulse(&c.currentInput.TurnLeft, &c.turnLeftUntil, &c.currentInput.TurnRight, &c.turnRightUntil, c.turnPulse)
		case 'C': // right
			c.pulse(&c.currentInput.TurnRight, &c.turnRightUntil, &c.currentInput.TurnLeft, &c.turnLeftUntil, c.turnPulse)
		case 'A': // up
			c.pulse(&c.currentInput.Forward, &c.forwardUntil, &c.currentInput.Back, &c.backwardUntil, c.movePulse)
		case 'B': // down
			c.pulse(&c.currentInput.Back, &c.backwardUntil, &c.currentInput.Forward, &c.forwardUntil, c.movePulse)
		}
	}
	c.renderStatusLine()
}

func (c *Console) enterCommandMode() {
	c.mu.Lock()
	c.commandMode = true
	c.commandBuf = c.commandBuf[:0]
	c.mu.Unlock()
	fmt.Fprint(c.out, "\r\n:")
}

func (c *Console) handleCommandByte(b byte) {
	switch b {
	case 13, 10: // Enter
		c.mu.Lock()
		cmd := strings.TrimSpace(string(c.commandBuf))
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()

		fmt.Fprint(c.out, "\r\n")
		if cmd != "" {
			c.executeCommand(cmd)
		}
		c.renderStatusLine()
		return
	case 27: // ESC cancel command mode
		c.mu.Lock()
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()
		fmt.Fprint(c.out, "\r\n[debug] command cancelled\r\n")
		c.renderStatusLine()
		return
	case 8, 127: // Backspace
		c.mu.Lock()
		if len(c.commandBuf) > 0 {
			c.commandBuf = c.commandBuf[:len(c.commandBuf)-1]
		}
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s ", buf)
		fmt.Fprintf(c.out, "\r:%s", buf)
		return
	default:
		if b < 32 || b > 126 {
			return
		}
		c.mu.Lock()
		c.commandBuf = append(c.commandBuf, rune(b))
		buf := string(c.commandBuf)
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\r:%s", buf)
	}
}

func (c *Console) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "help":
		c.printHelp()
	case "state":
		s := c.rig.Snapshot()
		fmt.Fprintf(c.out, "[debug] tick=%d pos=(%.3f,%.3f,%.3f) vel=(%.3f,%.3f,%.3f) fall=%.4f ground=%t yaw=%.1f view=%.1f drive=%s\r\n",
			s.Tick,
			s.Position.X(), s.Position.Y(), s.Position.Z(),
			s.Velocity.X(), s.Velocity.Y(), s.Velocity.Z(),
			s.FallSpeed, s.Grounded, s.BodyYaw, s.ViewYaw, s.Drive,
		)
	case "tp":
		x, y, z, ok := parseTriple(parts, strconv.ParseFloat)
		if !ok {
			fmt.Fprint(c.out, "[debug] usage: :tp <x> <y> <z>\r\n")
			return
		}
		if err := c.rig.Teleport(mgl64.Vec3{x, y, z}); err != nil {
			fmt.Fprintf(c.out, "[debug] tp failed: %v\r\n", err)
			return
		}
		fmt.Fprintf(c.out, "[debug] teleported to (%.3f, %.3f, %.3f)\r\n", x, y, z)
	case "block":
		if c.blocks == nil {
			fmt.Fprint(c.out, "[debug] no world loaded\r\n")
			return
		}
		x, y, z, ok := parseTriple(parts, func(s string, _ int) (int, error) { return strconv.Atoi(s) })
		if !ok {
			fmt.Fprint(c.out, "[debug] usage: :block <x> <y> <z>\r\n")
			return
		}
		h := c.blocks.CellHeight(x, y, z)
		if h == 0 {
			fmt.Fprintf(c.out, "[debug] block (%d,%d,%d): empty\r\n", x, y, z)
			return
		}
		fmt.Fprintf(c.out, "[debug] block (%d,%d,%d): height=%.3f\r\n", x, y, z, h)
	case "look":
		c.handleLookCommand()
	case "set":
		c.handleSetCommand(parts)
	case "tunables":
		c.printTunables()
	default:
		fmt.Fprintf(c.out, "[debug] unknown command: %s\r\n", parts[0])
	}
}

func (c *Console) handleLookCommand() {
	solids, ok := c.blocks.(view.Solids)
	if c.looker == nil || !ok {
		fmt.Fprint(c.out, "[debug] look needs a camera and a world\r\n")
		return
	}
	eye := c.rig.Snapshot().Position.Add(mgl64.Vec3{0, c.eyeHeight, 0})
	hit, found := c.looker.LookAt(eye, solids)
	if !found {
		fmt.Fprint(c.out, "[debug] look: nothing in range\r\n")
		return
	}
	fmt.Fprintf(c.out, "[debug] look: block (%d,%d,%d) dist=%.2f\r\n", hit.Cell[0], hit.Cell[1], hit.Cell[2], hit.Distance)
}

type tunableField struct {
	get func(t tuning.Tunables) string
	set func(t *tuning.Tunables, v string) error
}

func floatField(ptr func(t *tuning.Tunables) *float64) tunableField {
	return tunableField{
		get: func(t tuning.Tunables) string { return strconv.FormatFloat(*ptr(&t), 'g', -1, 64) },
		set: func(t *tuning.Tunables, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			*ptr(t) = f
			return nil
		},
	}
}

func boolField(ptr func(t *tuning.Tunables) *bool) tunableField {
	return tunableField{
		get: func(t tuning.Tunables) string { return boolLabel(*ptr(&t)) },
		set: func(t *tuning.Tunables, v string) error {
			switch strings.ToLower(v) {
			case "on", "true", "1":
				*ptr(t) = true
			case "off", "false", "0":
				*ptr(t) = false
			default:
				return fmt.Errorf("want on/off, got %q", v)
			}
			return nil
		},
	}
}

var tunableFields = map[string]tunableField{
	"acceleration":   floatField(func(t *tuning.Tunables) *float64 { return &t.Acceleration }),
	"damping":        floatField(func(t *tuning.Tunables) *float64 { return &t.Damping }),
	"dampen":         floatField(func(t *tuning.Tunables) *float64 { return &t.BackAndSideDampen }),
	"jump":           floatField(func(t *tuning.Tunables) *float64 { return &t.JumpForce }),
	"rotation":       floatField(func(t *tuning.Tunables) *float64 { return &t.RotationAmount }),
	"gravity":        floatField(func(t *tuning.Tunables) *float64 { return &t.GravityModifier }),
	"move_scale":     floatField(func(t *tuning.Tunables) *float64 { return &t.MoveScaleMultiplier }),
	"rotation_scale": floatField(func(t *tuning.Tunables) *float64 { return &t.RotationScaleMultiplier }),
	"smoothing":      floatField(func(t *tuning.Tunables) *float64 { return &t.MouseSmoothing }),
	"mouse":          boolField(func(t *tuning.Tunables) *bool { return &t.MouseRotation }),
	"halt":           boolField(func(t *tuning.Tunables) *bool { return &t.HaltMovement }),
}

func (c *Console) handleSetCommand(parts []string) {
	if len(parts) != 3 {
		fmt.Fprint(c.out, "[debug] usage: :set <name> <value> (see :tunables)\r\n")
		return
	}
	field, ok := tunableFields[parts[1]]
	if !ok {
		fmt.Fprintf(c.out, "[debug] unknown tunable: %s\r\n", parts[1])
		return
	}
	t := c.rig.Tunables()
	if err := field.set(&t, parts[2]); err != nil {
		fmt.Fprintf(c.out, "[debug] invalid value for %s: %v\r\n", parts[1], err)
		return
	}
	if err := c.rig.SetTunables(t); err != nil {
		fmt.Fprintf(c.out, "[debug] rejected: %v\r\n", err)
		return
	}
	fmt.Fprintf(c.out, "[debug] %s = %s\r\n", parts[1], field.get(t))
}

func (c *Console) printTunables() {
	t := c.rig.Tunables()
	names := make([]string, 0, len(tunableFields))
	for name := range tunableFields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.out, "  %s=%s\r\n", name, tunableFields[name].get(t))
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, "[debug] keys:\r\n")
	fmt.Fprint(c.out, "  W/S/A/D or Up/Down: pulse movement (~180ms)\r\n")
	fmt.Fprint(c.out, "  Q/E or Left/Right: pulse turn\r\n")
	fmt.Fprint(c.out, "  Space: jump\r\n")
	fmt.Fprint(c.out, "  [: toggle run\r\n")
	fmt.Fprint(c.out, "  X: clear all input\r\n")
	fmt.Fprint(c.out, "  : enter command mode\r\n")
	fmt.Fprint(c.out, "[debug] commands:\r\n")
	fmt.Fprint(c.out, "  :state\r\n")
	fmt.Fprint(c.out, "  :tp <x> <y> <z>\r\n")
	fmt.Fprint(c.out, "  :block <x> <y> <z>\r\n")
	fmt.Fprint(c.out, "  :look\r\n")
	fmt.Fprint(c.out, "  :set <name> <value>\r\n")
	fmt.Fprint(c.out, "  :tunables\r\n")
	fmt.Fprint(c.out, "  :help\r\n")
}

func (c *Console) renderStatusLine() {
	c.mu.Lock()
	if c.commandMode {
		c.mu.Unlock()
		return
	}
	in := c.currentInput
	width := c.statusWidth
	c.mu.Unlock()

	s := c.rig.Snapshot()
	line := fmt.Sprintf(
		"[FWD:%s BCK:%s RUN:%s | YAW:%.1f %s | X:%.2f Y:%.2f Z:%.2f ground:%t]",
		boolLabel(in.Forward),
		boolLabel(in.Back),
		boolLabel(in.Run),
		s.BodyYaw,
		s.Drive,
		s.Position.X(),
		s.Position.Y(),
		s.Position.Z(),
		s.Grounded,
	)

	padding := ""
	if width > len(line) {
		padding = strings.Repeat(" ", width-len(line))
	}
	fmt.Fprintf(c.out, "\r%s%s", line, padding)

	c.mu.Lock()
	if len(line) > c.statusWidth {
		c.statusWidth = len(line)
	}
	c.mu.Unlock()
}

// pulse holds on for d and releases the opposite direction.
func (c *Console) pulse(on *bool, onUntil *time.Time, off *bool, offUntil *time.Time, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*on = true
	*onUntil = c.now().Add(d)
	*off = false
	*offUntil = time.Time{}
}

func (c *Console) applyPulsesLocked(now time.Time) {
	release := func(flag *bool, until *time.Time) {
		if !until.IsZero() && !now.Before(*until) {
			*flag = false
			*until = time.Time{}
		}
	}
	release(&c.currentInput.Forward, &c.forwardUntil)
	release(&c.currentInput.Back, &c.backwardUntil)
	release(&c.currentInput.Left, &c.leftUntil)
	release(&c.currentInput.Right, &c.rightUntil)
	release(&c.currentInput.TurnLeft, &c.turnLeftUntil)
	release(&c.currentInput.TurnRight, &c.turnRightUntil)
}

func (c *Console) toggleRun() {
	c.mu.Lock()
	c.currentInput.Run = !c.currentInput.Run
	enabled := c.currentInput.Run
	c.mu.Unlock()
	slog.Debug("debug run toggled", "enabled", enabled)
}

func (c *Console) clearInput() {
	c.mu.Lock()
	c.currentInput = input.Raw{}
	c.pendingJump = false
	c.forwardUntil = time.Time{}
	c.backwardUntil = time.Time{}
	c.leftUntil = time.Time{}
	c.rightUntil = time.Time{}
	c.turnLeftUntil = time.Time{}
	c.turnRightUntil = time.Time{}
	c.mu.Unlock()
}

func (c *Console) isCommandMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandMode
}

func parseTriple[T any](parts []string, parse func(string, int) (T, error)) (T, T, T, bool) {
	var zero T
	if len(parts) != 4 {
		return zero, zero, zero, false
	}
	x, err1 := parse(parts[1], 64)
	y, err2 := parse(parts[2], 64)
	z, err3 := parse(parts[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return zero, zero, zero, false
	}
	return x, y, z, true
}

func boolLabel(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
