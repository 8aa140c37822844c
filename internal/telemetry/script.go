package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

type reading struct {
	value float64
	err   error
}

// Script is an in-memory Channel. Each Push queues one reading; each Read
// consumes one, or reports ErrNoSample when the queue is empty.
type Script struct {
	mu       sync.Mutex
	speed    []reading
	rotation []reading
}

func (s *Script) PushSpeed(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = append(s.speed, reading{value: v})
}

func (s *Script) PushRotation(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = append(s.rotation, reading{value: v})
}

// PushGap queues an empty reading on both fields, so one tick sees no sample.
func (s *Script) PushGap() {
	s.PushSpeedErr(ErrNoSample)
	s.PushRotationErr(ErrNoSample)
}

func (s *Script) PushSpeedErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = append(s.speed, reading{err: err})
}

func (s *Script) PushRotationErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = append(s.rotation, reading{err: err})
}

func (s *Script) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return max(len(s.speed), len(s.rotation))
}

func (s *Script) ReadSpeed() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pop(&s.speed)
}

func (s *Script) ReadRotation() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pop(&s.rotation)
}

func pop(q *[]reading) (float64, error) {
	if len(*q) == 0 {
		return 0, ErrNoSample
	}
	r := (*q)[0]
	*q = (*q)[1:]
	return r.value, r.err
}

// LoadScriptCSV reads a replay with a "speed" and/or "rotation" column, one
// row per tick. Empty cells become gaps for that tick.
func LoadScriptCSV(r io.Reader) (*Script, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read replay header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range headers {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	speedCol, hasSpeed := cols["speed"]
	rotCol, hasRot := cols["rotation"]
	if !hasSpeed && !hasRot {
		return nil, fmt.Errorf("replay needs a speed or rotation column")
	}

	s := &Script{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read replay line %d: %w", line, err)
		}
		speedReading, err := cell(record, speedCol, hasSpeed)
		if err != nil {
			return nil, fmt.Errorf("replay line %d speed: %w", line, err)
		}
		rotReading, err := cell(record, rotCol, hasRot)
		if err != nil {
			return nil, fmt.Errorf("replay line %d rotation: %w", line, err)
		}
		s.speed = append(s.speed, speedReading)
		s.rotation = append(s.rotation, rotReading)
	}
	return s, nil
}

func cell(record []string, col int, present bool) (reading, error) {
	if !present || col >= len(record) {
		return reading{err: ErrNoSample}, nil
	}
	raw := strings.TrimSpace(record[col])
	if raw == "" {
		return reading{err: ErrNoSample}, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return reading{}, err
	}
	if !finite(v) {
		return reading{}, fmt.Errorf("%w: %q", ErrNonFinite, raw)
	}
	return reading{value: v}, nil
}
