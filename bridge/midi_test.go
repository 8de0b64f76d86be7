package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dagargo/obridge/iobuf"
)

func TestHandleInboundFiltersCableCodes(t *testing.T) {
	m := NewMIDI(zap.NewNop())
	ring := iobuf.NewMemRing(1024)

	data := []byte{
		0x09, 0x90, 0x40, 0x7f, // note-on, accepted
		0x00, 0x00, 0x00, 0x00, // cable code 0x0, rejected
		0x0F, 0xF8, 0x00, 0x00, // realtime, accepted
	}
	m.HandleInbound(data, 1.5, ring)

	assert.Equal(t, 2*eventWireSize, ring.ReadSpace())
}

func TestHandleInboundDropsOnOverflow(t *testing.T) {
	m := NewMIDI(zap.NewNop())
	ring := iobuf.NewMemRing(eventWireSize) // room for exactly one event

	data := []byte{
		0x09, 0x90, 0x40, 0x7f,
		0x08, 0x80, 0x40, 0x00,
	}
	m.HandleInbound(data, 0.1, ring)

	assert.Equal(t, eventWireSize, ring.ReadSpace())
}

func TestStepCoalescesSameTimestampEvents(t *testing.T) {
	m := NewMIDI(zap.NewNop())
	m.Reset(0.0)

	p2o := iobuf.NewMemRing(4096)
	e1 := Event{Time: 0.0, Bytes: [4]byte{0x09, 0x90, 0x40, 0x7f}}
	e2 := Event{Time: 0.0, Bytes: [4]byte{0x08, 0x80, 0x40, 0x00}}
	e3 := Event{Time: 0.100, Bytes: [4]byte{0x09, 0x90, 0x41, 0x7f}}
	p2o.Write(e1.marshal())
	p2o.Write(e2.marshal())
	p2o.Write(e3.marshal())

	result := m.Step(p2o, SmallestSleep(20833))
	require.NotNil(t, result.Burst)
	assert.Equal(t, 8, len(result.Burst)) // two events merged
	assert.InDelta(t, 0.100, result.Sleep.Seconds(), 1e-9)

	// e3 was already read out of the ring and is now held (its later
	// timestamp broke the first drain loop before it could be staged).
	// With the ring empty, the drain loop's read_space guard never lets
	// Step stage it: a burst only appears once more data arrives.
	result2 := m.Step(p2o, SmallestSleep(20833))
	assert.Nil(t, result2.Burst)
	assert.Equal(t, SmallestSleep(20833), result2.Sleep)

	e4 := Event{Time: 0.100, Bytes: [4]byte{0x08, 0x80, 0x41, 0x00}}
	p2o.Write(e4.marshal())

	result3 := m.Step(p2o, SmallestSleep(20833))
	require.NotNil(t, result3.Burst)
	assert.Equal(t, 8, len(result3.Burst)) // held e3 plus e4, same timestamp
}

func TestStepSleepsSmallestWhenRingEmpty(t *testing.T) {
	m := NewMIDI(zap.NewNop())
	m.Reset(0.0)
	p2o := iobuf.NewMemRing(4096)

	result := m.Step(p2o, SmallestSleep(20833))
	assert.Nil(t, result.Burst)
	assert.Equal(t, SmallestSleep(20833), result.Sleep)
}
