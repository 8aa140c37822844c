// Package telemetry adapts external rig feeds (speed deltas and absolute
// rotation) into non-blocking per-tick samples.
package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrNoSample means the source has nothing new; it is not a failure.
	ErrNoSample = errors.New("telemetry: no new sample")
	// ErrStale means the latest sample is older than the source's max age.
	ErrStale  = errors.New("telemetry: sample is stale")
	ErrClosed = errors.New("telemetry: source closed")
	// ErrNonFinite is reported by Poller for NaN or infinite readings.
	ErrNonFinite = errors.New("telemetry: non-finite value")
)

// failureKinds bounds the Poller's failure counters to known sentinels.
var failureKinds = []error{ErrStale, ErrClosed, ErrNonFinite, ErrBadDatagram, ErrBadFile}

// Channel is polled once per tick. Implementations must not block.
type Channel interface {
	ReadSpeed() (float64, error)
	ReadRotation() (float64, error)
}

type Sample struct {
	Speed       float64
	Rotation    float64
	HasSpeed    bool
	HasRotation bool
}

func (s Sample) Valid() bool {
	return s.HasSpeed || s.HasRotation
}

// Poller turns Channel reads into Samples, downgrading every failure to an
// invalid field.
type Poller struct {
	ch Channel

	mu       sync.Mutex
	failures map[string]int
}

func NewPoller(ch Channel) *Poller {
	return &Poller{ch: ch, failures: make(map[string]int)}
}

func (p *Poller) Poll() Sample {
	var s Sample
	if p == nil || p.ch == nil {
		return s
	}
	if v, err := checked(p.ch.ReadSpeed()); err == nil {
		s.Speed, s.HasSpeed = v, true
	} else {
		p.noteFailure("speed", err)
	}
	if v, err := checked(p.ch.ReadRotation()); err == nil {
		s.Rotation, s.HasRotation = v, true
	} else {
		p.noteFailure("rotation", err)
	}
	return s
}

func checked(v float64, err error) (float64, error) {
	if err != nil {
		return 0, err
	}
	if !finite(v) {
		return 0, fmt.Errorf("%w: %v", ErrNonFinite, v)
	}
	return v, nil
}

// failureKey groups err under its sentinel so that distinct messages do not
// grow the counter map.
func failureKey(field string, err error) string {
	for _, kind := range failureKinds {
		if errors.Is(err, kind) {
			return field + ":" + kind.Error()
		}
	}
	return field + ":other"
}

func (p *Poller) noteFailure(field string, err error) {
	if errors.Is(err, ErrNoSample) {
		return
	}
	key := failureKey(field, err)

	p.mu.Lock()
	p.failures[key]++
	count := p.failures[key]
	p.mu.Unlock()

	// First sighting, then every 100 repeats.
	if count == 1 || count%100 == 0 {
		slog.Debug("Telemetry read failed", "field", field, "error", err, "count", count)
	}
}

// slot holds the most recent decoded values for a streaming source. Speed is
// a delta and is handed out once; rotation is absolute and is repeated until
// it ages out.
type slot struct {
	mu     sync.Mutex
	maxAge time.Duration
	now    func() time.Time
	closed bool

	speed      float64
	speedAt    time.Time
	speedFresh bool
	speedErr   error

	rotation    float64
	rotationAt  time.Time
	hasRotation bool
	rotationErr error
}

func newSlot(maxAge time.Duration) *slot {
	return &slot{maxAge: maxAge, now: time.Now}
}

func (s *slot) putSpeed(v float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = v
	s.speedAt = at
	s.speedFresh = true
	s.speedErr = nil
}

func (s *slot) putRotation(v float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = v
	s.rotationAt = at
	s.hasRotation = true
	s.rotationErr = nil
}

func (s *slot) putSpeedErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speedErr = err
	s.speedFresh = false
}

func (s *slot) putRotationErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotationErr = err
	s.hasRotation = false
}

func (s *slot) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *slot) ReadSpeed() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.speedErr != nil {
		err := s.speedErr
		s.speedErr = nil
		return 0, err
	}
	if !s.speedFresh {
		return 0, ErrNoSample
	}
	s.speedFresh = false
	if s.expired(s.speedAt) {
		return 0, ErrStale
	}
	return s.speed, nil
}

func (s *slot) ReadRotation() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.rotationErr != nil {
		err := s.rotationErr
		s.rotationErr = nil
		return 0, err
	}
	if !s.hasRotation {
		return 0, ErrNoSample
	}
	if s.expired(s.rotationAt) {
		return 0, ErrStale
	}
	return s.rotation, nil
}

func (s *slot) expired(at time.Time) bool {
	return s.maxAge > 0 && s.now().Sub(at) > s.maxAge
}
