package iobuf

import (
	"testing"

	"github.com/dagargo/obridge/pkg"
	"github.com/stretchr/testify/assert"
)

func TestValidateRequiresAudioRings(t *testing.T) {
	assert.Equal(t, pkg.CodeMissingO2PAudioBuf, IOBuffers{}.Validate(nil))

	b := IOBuffers{O2PAudio: NewMemRing(16)}
	assert.Equal(t, pkg.CodeMissingP2OAudioBuf, b.Validate(nil))

	b = IOBuffers{O2PAudio: NewMemRing(16), P2OAudio: NewMemRing(16)}
	assert.Equal(t, pkg.CodeOK, b.Validate(nil))
}

func TestValidateRequiresClockForDLL(t *testing.T) {
	b := IOBuffers{O2PAudio: NewMemRing(16), P2OAudio: NewMemRing(16)}
	assert.Equal(t, pkg.CodeMissingGetTime, b.Validate(fakeDLL{}))

	// With the clock supplied the DLL check passes; the clock alone also
	// counts as a MIDI collaborator, so the MIDI rings are required next.
	b.Clock = ClockFunc(func() float64 { return 0 })
	assert.Equal(t, pkg.CodeMissingO2PMIDIBuf, b.Validate(fakeDLL{}))
}

func TestValidateRequiresAllOrNoneMIDI(t *testing.T) {
	base := IOBuffers{O2PAudio: NewMemRing(16), P2OAudio: NewMemRing(16)}

	withClock := base
	withClock.Clock = ClockFunc(func() float64 { return 0 })
	assert.Equal(t, pkg.CodeMissingO2PMIDIBuf, withClock.Validate(nil))

	withClock.O2PMIDI = NewMemRing(16)
	assert.Equal(t, pkg.CodeMissingP2OMIDIBuf, withClock.Validate(nil))

	withClock.P2OMIDI = NewMemRing(16)
	assert.Equal(t, pkg.CodeOK, withClock.Validate(nil))
}

func TestMemRingRoundTrip(t *testing.T) {
	r := NewMemRing(8)
	assert.Equal(t, 8, r.WriteSpace())
	r.Write([]byte{1, 2, 3})
	assert.Equal(t, 3, r.ReadSpace())
	assert.Equal(t, 5, r.WriteSpace())

	dst := make([]byte, 3)
	r.Read(dst)
	assert.Equal(t, []byte{1, 2, 3}, dst)
	assert.Equal(t, 0, r.ReadSpace())
}

func TestMemRingWrapsAround(t *testing.T) {
	r := NewMemRing(4)
	r.Write([]byte{1, 2, 3})
	r.Discard(2)
	r.Write([]byte{4, 5})

	dst := make([]byte, 3)
	r.Read(dst)
	assert.Equal(t, []byte{3, 4, 5}, dst)
}

func TestFuncRingCheckReportsFirstMissingHook(t *testing.T) {
	assert.Equal(t, pkg.CodeMissingReadSpace, FuncRing{}.Check())
	f := FuncRing{ReadSpaceFunc: func() int { return 0 }}
	assert.Equal(t, pkg.CodeMissingWriteSpace, f.Check())
}

type fakeDLL struct{}

func (fakeDLL) Tick(framesPerTransfer int, now float64) {}
