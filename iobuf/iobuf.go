// Package iobuf defines the collaborator contracts the engine is built
// against but never implements itself: the four single-producer/
// single-consumer byte rings carrying audio and MIDI between host and
// device, and the monotonic clock used for DLL ticks and MIDI
// timestamping. Callers supply concrete implementations (typically
// wrapping a lock-free ring buffer library) when activating an engine.
package iobuf

import "github.com/dagargo/obridge/pkg"

// Ring is a single-producer/single-consumer byte ring. ReadSpace and
// WriteSpace must be monotonic with respect to a concurrent
// single-writer/single-reader pair. Read and Write are used with an
// exact byte count already known to be available; a Ring implementation
// need not itself validate n against its current space.
type Ring interface {
	ReadSpace() int
	WriteSpace() int
	// Read consumes len(dst) bytes into dst.
	Read(dst []byte)
	// Discard consumes and drops exactly n bytes without copying them out.
	Discard(n int)
	// Write writes exactly len(src) bytes. The caller has already checked
	// WriteSpace() >= len(src).
	Write(src []byte)
}

// Clock supplies monotonic host time in seconds, mirroring get_time() in
// the collaborator interface. DLL ticks and MIDI inbound timestamps both
// read from it.
type Clock interface {
	Now() float64
}

// ClockFunc adapts a plain function to a [Clock].
type ClockFunc func() float64

// Now implements [Clock].
func (f ClockFunc) Now() float64 { return f() }

// DLL is the delay-locked loop collaborator used to keep the device and
// host clocks aligned. It is ticked once per audio-in completion; its
// internal state and algorithm are entirely the caller's concern.
type DLL interface {
	Tick(framesPerTransfer int, now float64)
}

// IOBuffers bundles the four ring handles and the clock an activated
// engine reads and writes. Audio rings are mandatory; MIDI rings and the
// clock are optional as a group — see [IOBuffers.Validate].
type IOBuffers struct {
	O2PAudio Ring
	P2OAudio Ring
	O2PMIDI  Ring
	P2OMIDI  Ring
	Clock    Clock
}

// midiConfigured reports whether any MIDI collaborator was supplied.
func (b IOBuffers) midiConfigured() bool {
	return b.O2PMIDI != nil || b.P2OMIDI != nil || b.Clock != nil
}

// Validate checks the activation preconditions: O2PAudio and P2OAudio
// are always required; MIDI is optional but if any of Clock, O2PMIDI,
// P2OMIDI is supplied all three must be; if dll is non-nil, Clock is
// mandatory regardless of MIDI. It returns the first missing
// collaborator's fixed [pkg.Code], or [pkg.CodeOK] if none is missing.
func (b IOBuffers) Validate(dll DLL) pkg.Code {
	if b.O2PAudio == nil {
		return pkg.CodeMissingO2PAudioBuf
	}
	if b.P2OAudio == nil {
		return pkg.CodeMissingP2OAudioBuf
	}
	if dll != nil && b.Clock == nil {
		return pkg.CodeMissingGetTime
	}
	if b.midiConfigured() {
		if b.Clock == nil {
			return pkg.CodeMissingGetTime
		}
		if b.O2PMIDI == nil {
			return pkg.CodeMissingO2PMIDIBuf
		}
		if b.P2OMIDI == nil {
			return pkg.CodeMissingP2OMIDIBuf
		}
	}
	return pkg.CodeOK
}

// FuncRing adapts four closures into a [Ring], mirroring the
// function-pointer collaborator style the engine this package was
// modeled after used for its ring buffer hooks. Check reports which
// hook, if any, was left nil.
type FuncRing struct {
	ReadSpaceFunc  func() int
	WriteSpaceFunc func() int
	ReadFunc       func(dst []byte)
	DiscardFunc    func(n int)
	WriteFunc      func(src []byte)
}

// Check reports the fixed error code for the first nil hook, or
// [pkg.CodeOK] if all four required hooks are set. DiscardFunc has no
// dedicated code: a FuncRing without it falls back to reading into a
// scratch buffer of n bytes via ReadFunc.
func (f FuncRing) Check() pkg.Code {
	switch {
	case f.ReadSpaceFunc == nil:
		return pkg.CodeMissingReadSpace
	case f.WriteSpaceFunc == nil:
		return pkg.CodeMissingWriteSpace
	case f.ReadFunc == nil:
		return pkg.CodeMissingRead
	case f.WriteFunc == nil:
		return pkg.CodeMissingWrite
	default:
		return pkg.CodeOK
	}
}

func (f FuncRing) ReadSpace() int  { return f.ReadSpaceFunc() }
func (f FuncRing) WriteSpace() int { return f.WriteSpaceFunc() }
func (f FuncRing) Read(dst []byte) { f.ReadFunc(dst) }

func (f FuncRing) Discard(n int) {
	if f.DiscardFunc != nil {
		f.DiscardFunc(n)
		return
	}
	scratch := make([]byte, n)
	f.ReadFunc(scratch)
}

func (f FuncRing) Write(src []byte) { f.WriteFunc(src) }

var _ Ring = FuncRing{}
