package telemetry

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DatagramSize is the length of a binary rig datagram:
// uint32 sequence, float32 speed, float32 rotation, all little-endian.
const DatagramSize = 12

var ErrBadDatagram = errors.New("telemetry: malformed datagram")

type datagram struct {
	seq         uint32
	hasSeq      bool
	speed       float64
	rotation    float64
	hasSpeed    bool
	hasRotation bool
}

// UDPSource receives rig datagrams on a background goroutine and exposes the
// latest values through Channel.
type UDPSource struct {
	*slot
	conn net.PacketConn

	lastSeq uint32
	haveSeq bool
	bad     atomic.Uint64

	wg   sync.WaitGroup
	once sync.Once
}

func ListenUDP(ctx context.Context, addr string, maxAge time.Duration) (*UDPSource, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen telemetry udp %s: %w", addr, err)
	}
	s := &UDPSource{slot: newSlot(maxAge), conn: conn}
	slog.Info("Listening for rig telemetry", "addr", conn.LocalAddr().String(), "max_age", maxAge)

	s.wg.Add(1)
	go s.run()
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	return s, nil
}

func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *UDPSource) Close() error {
	var err error
	s.once.Do(func() {
		s.slot.close()
		err = s.conn.Close()
		s.wg.Wait()
	})
	return err
}

func (s *UDPSource) run() {
	defer s.wg.Done()
	buf := make([]byte, 512)
	for {
		n, from, err := s.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Debug("Telemetry udp read failed", "error", err)
			continue
		}
		s.handle(buf[:n], from, time.Now())
	}
}

// handle decodes one datagram. A malformed one is counted and dropped; the
// last good values stay in place.
func (s *UDPSource) handle(b []byte, from net.Addr, at time.Time) {
	d, err := decodeDatagram(b)
	if err != nil {
		count := s.bad.Add(1)
		// First sighting, then every 100 repeats.
		if count == 1 || count%100 == 0 {
			slog.Debug("Dropping telemetry datagram", "from", from, "size", len(b), "error", err, "count", count)
		}
		return
	}
	s.accept(d, at)
}

// BadDatagrams is the number of datagrams dropped as malformed.
func (s *UDPSource) BadDatagrams() uint64 {
	return s.bad.Load()
}

func (s *UDPSource) accept(d datagram, at time.Time) {
	if d.hasSeq {
		// Serial-number comparison so the sequence may wrap.
		if s.haveSeq && int32(d.seq-s.lastSeq) <= 0 {
			return
		}
		s.lastSeq, s.haveSeq = d.seq, true
	}
	if d.hasSpeed {
		s.putSpeed(d.speed, at)
	}
	if d.hasRotation {
		s.putRotation(d.rotation, at)
	}
}

// decodeDatagram accepts the binary layout or an ASCII form such as
// "speed=1.25 rotation=90".
func decodeDatagram(b []byte) (datagram, error) {
	if len(b) == DatagramSize && !isASCII(b) {
		d := datagram{
			seq:         binary.LittleEndian.Uint32(b[0:4]),
			hasSeq:      true,
			speed:       float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))),
			rotation:    float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))),
			hasSpeed:    true,
			hasRotation: true,
		}
		if !finite(d.speed) || !finite(d.rotation) {
			return datagram{}, fmt.Errorf("%w: non-finite value", ErrBadDatagram)
		}
		return d, nil
	}

	var d datagram
	for _, field := range strings.FieldsFunc(string(b), func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '\n' || r == '\r' || r == '\t'
	}) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return datagram{}, fmt.Errorf("%w: field %q", ErrBadDatagram, field)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || !finite(v) {
			return datagram{}, fmt.Errorf("%w: value %q", ErrBadDatagram, value)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "speed":
			d.speed, d.hasSpeed = v, true
		case "rotation", "yaw":
			d.rotation, d.hasRotation = v, true
		case "seq":
			d.seq, d.hasSeq = uint32(v), true
		default:
			return datagram{}, fmt.Errorf("%w: unknown key %q", ErrBadDatagram, key)
		}
	}
	if !d.hasSpeed && !d.hasRotation {
		return datagram{}, fmt.Errorf("%w: empty", ErrBadDatagram)
	}
	return d, nil
}

// EncodeDatagram builds the binary layout accepted by UDPSource.
func EncodeDatagram(seq uint32, speed, rotation float32) []byte {
	b := make([]byte, DatagramSize)
	binary.LittleEndian.PutUint32(b[0:4], seq)
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(speed))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(rotation))
	return b
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c == '\n' || c == '\r' || c == '\t' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
