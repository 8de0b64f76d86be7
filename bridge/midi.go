package bridge

import (
	"encoding/binary"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/dagargo/obridge/iobuf"
	"github.com/dagargo/obridge/pkg"
)

// EventSize is the size in bytes of one USB-MIDI event: a cable/code
// index byte followed by three MIDI data bytes.
const EventSize = 4

// BulkMIDISize is the fixed size of a USB bulk MIDI transfer buffer.
const BulkMIDISize = 512

// cableCodeMin and cableCodeMax bound the USB-MIDI code index values the
// inbound path accepts: note-off, note-on, poly-pressure, CC, PC,
// channel-pressure, pitch-bend, and single-byte realtime.
const (
	cableCodeMin = 0x08
	cableCodeMax = 0x0F
)

// Event is one timestamped MIDI event as staged in the o2p/p2o MIDI
// rings.
type Event struct {
	Time  float64
	Bytes [EventSize]byte
}

// eventWireSize is the byte size of one marshaled [Event] on a MIDI
// ring: an 8-byte float64 timestamp followed by the 4 raw MIDI bytes.
const eventWireSize = 8 + EventSize

func (e Event) marshal() []byte {
	b := make([]byte, eventWireSize)
	binary.LittleEndian.PutUint64(b[:8], math.Float64bits(e.Time))
	copy(b[8:], e.Bytes[:])
	return b
}

func unmarshalEvent(b []byte) Event {
	var e Event
	e.Time = math.Float64frombits(binary.LittleEndian.Uint64(b[:8]))
	copy(e.Bytes[:], b[8:])
	return e
}

// MIDI holds the mutable state one Engine's MIDI path owns: the
// outbound pacing sub-machine and its staging buffer.
type MIDI struct {
	Log *zap.Logger

	pos       int
	lastTime  float64
	eventRead bool
	held      Event
	staging   [BulkMIDISize]byte
}

// NewMIDI creates a MIDI bridge.
func NewMIDI(log *zap.Logger) *MIDI {
	if log == nil {
		log = pkg.Logger()
	}
	return &MIDI{Log: log}
}

// HandleInbound implements the MIDI Bridge's inbound path (§4.4): scan
// data in 4-byte events, keep only recognised cable codes, stamp them
// all with now, and write to o2p if space allows.
func (m *MIDI) HandleInbound(data []byte, now float64, o2p iobuf.Ring) {
	for i := 0; i+EventSize <= len(data); i += EventSize {
		code := data[i]
		if code < cableCodeMin || code > cableCodeMax {
			continue
		}
		var ev Event
		ev.Time = now
		copy(ev.Bytes[:], data[i:i+EventSize])

		if o2p.WriteSpace() < eventWireSize {
			m.Log.Warn("o2p midi ring buffer overflow, discarding event")
			continue
		}
		o2p.Write(ev.marshal())
	}
}

// PacingResult reports what one outer iteration of the outbound pacing
// loop decided: whether a burst is ready to submit and how long the
// caller should sleep before checking p2o_midi_ready again.
type PacingResult struct {
	Burst []byte
	Sleep time.Duration
}

// SmallestSleep returns half the average wait time for a 32-sample
// buffer, the pacing loop's minimum spin-wait granularity.
func SmallestSleep(sampleTimeNS int64) time.Duration {
	return time.Duration(sampleTimeNS*32/2) * time.Nanosecond
}

// Step runs one outer iteration of the outbound pacing algorithm (§4.4
// step 1): drain full events from p2o while they share (or precede)
// last_time, staging up to BulkMIDISize bytes; stop at the first
// strictly-later timestamp. It returns the burst to submit (nil if none
// is ready this iteration) and how long to sleep afterward.
func (m *MIDI) Step(p2o iobuf.Ring, smallestSleep time.Duration) PacingResult {
	var diff float64

	for p2o.ReadSpace() >= eventWireSize && m.pos < BulkMIDISize {
		if m.pos == 0 {
			for i := range m.staging {
				m.staging[i] = 0
			}
			diff = 0
		}

		if !m.eventRead {
			raw := make([]byte, eventWireSize)
			p2o.Read(raw)
			m.held = unmarshalEvent(raw)
			m.eventRead = true
		}

		if m.held.Time > m.lastTime {
			diff = m.held.Time - m.lastTime
			m.lastTime = m.held.Time
			break
		}

		copy(m.staging[m.pos:m.pos+EventSize], m.held.Bytes[:])
		m.pos += EventSize
		m.eventRead = false
	}

	var result PacingResult
	if m.pos > 0 {
		result.Burst = append([]byte(nil), m.staging[:m.pos]...)
		m.pos = 0
	}

	if diff > 0 {
		result.Sleep = time.Duration(diff * float64(time.Second))
	} else {
		result.Sleep = smallestSleep
	}
	return result
}

// Reset initialises the pacing sub-machine's last_time to now, called
// once before the outbound goroutine's first iteration.
func (m *MIDI) Reset(now float64) {
	m.pos = 0
	m.eventRead = false
	m.lastTime = now
}
