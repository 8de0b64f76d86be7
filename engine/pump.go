package engine

import (
	"context"
	"errors"
	"time"

	"github.com/dagargo/obridge/codec"
	"github.com/dagargo/obridge/pkg"
)

// runAudioUSBLoop is the audio/USB goroutine group (§4.5, §5): it
// busy-waits while status == READY, then runs cycles, each issuing the
// audio-in, audio-out and midi-in transfers in turn. A drop to BOOT
// starts a new cycle; a drop to STOP or ERROR ends the goroutine.
func (e *Engine) runAudioUSBLoop(ctx context.Context) {
	defer e.wg.Done()
	pkg.RaiseThreadPriority(e.log)

	for e.GetStatus() == StatusReady {
		if ctx.Err() != nil {
			return
		}
		time.Sleep(time.Millisecond)
	}

	for {
		e.audio.ResetLatency()
		e.lock.Lock()
		e.p2oLatency = 0
		e.p2oMaxLatency = 0
		e.status = StatusWait
		e.lock.Unlock()

		e.runCycle(ctx)

		status := e.GetStatus()
		if status <= StatusStop {
			return
		}
		// status == BOOT: drain p2o to a frame boundary and re-stamp the
		// outbound buffer before re-entering the wait state. InitOutbound
		// re-zeroes every block's frames/sample data while restamping the
		// 0x07FF header, rather than a raw zero-fill that would wipe it.
		frameSize := 4 * e.desc.Inputs
		if e.io.P2OAudio != nil && frameSize > 0 {
			aligned := (e.io.P2OAudio.ReadSpace() / frameSize) * frameSize
			e.io.P2OAudio.Discard(aligned)
		}
		if err := codec.InitOutbound(e.layout, e.desc.Inputs, e.outBuf); err != nil {
			e.log.Error("failed to re-stamp outbound buffer on boot re-entry", pkg.ZapErr(err))
		}
	}
}

// runCycle drives one boot->wait->run->exit cycle: submit the three
// resubmitting transfers and process completions until status drops
// below WAIT or the context is cancelled.
func (e *Engine) runCycle(ctx context.Context) {
	for e.GetStatus() >= StatusWait {
		if ctx.Err() != nil {
			e.SetStatus(StatusStop)
			return
		}

		if !e.stepAudioIn(ctx) {
			return
		}
		if !e.stepAudioOut(ctx) {
			return
		}
		if !e.stepMIDIIn(ctx) {
			return
		}
	}
}

func (e *Engine) stepAudioIn(ctx context.Context) bool {
	n, err := e.transport.InterruptTransfer(ctx, audioInEP, e.inBuf)
	if err != nil {
		e.log.Error("audio in transfer failed", pkg.ZapErr(err))
		e.SetStatus(StatusError)
		return false
	}
	if n < len(e.inBuf) {
		// A short completion carries no full block; nothing to decode yet.
		return true
	}

	e.lock.Lock()
	if e.dll != nil && e.io.Clock != nil {
		e.dll.Tick(e.layout.FramesPerTransfer(), e.io.Clock.Now())
	}
	status := e.status
	e.lock.Unlock()

	e.audio.HandleInbound(e.inBuf, e.io.O2PAudio, status < StatusRun)
	return true
}

func (e *Engine) stepAudioOut(ctx context.Context) bool {
	e.audio.HandleOutbound(e.outBuf, e.io.P2OAudio, e.IsP2OAudioEnable())

	cur, max := e.audio.Latency()
	e.lock.Lock()
	e.p2oLatency = cur
	e.p2oMaxLatency = max
	e.lock.Unlock()

	if _, err := e.transport.InterruptTransfer(ctx, audioOutEP, e.outBuf); err != nil {
		e.log.Error("audio out transfer failed", pkg.ZapErr(err))
		e.SetStatus(StatusError)
		return false
	}
	return true
}

func (e *Engine) stepMIDIIn(ctx context.Context) bool {
	if e.io.O2PMIDI == nil {
		return true
	}

	buf := make([]byte, 512)
	n, err := e.transport.BulkTransfer(ctx, midiInEP, buf)
	if err != nil {
		if errors.Is(err, pkg.ErrTimeout) {
			return true // normal, silent
		}
		e.log.Error("midi in transfer failed", pkg.ZapErr(err))
		e.SetStatus(StatusError)
		return false
	}

	if e.GetStatus() < StatusRun {
		return true
	}

	now := 0.0
	if e.io.Clock != nil {
		now = e.io.Clock.Now()
	}
	e.midi.HandleInbound(buf[:n], now, e.io.O2PMIDI)
	return true
}

// runMIDIOutLoop is the dedicated MIDI-out thread (§4.4): it paces
// outbound bursts against event timestamps, submitting via midiOutEP
// only when it has a new burst ready.
func (e *Engine) runMIDIOutLoop(ctx context.Context) {
	defer e.wg.Done()

	if e.io.P2OMIDI == nil {
		return
	}

	now := 0.0
	if e.io.Clock != nil {
		now = e.io.Clock.Now()
	}
	e.midi.Reset(now)
	e.setMIDIReady(true)

	for {
		result := e.midi.Step(e.io.P2OMIDI, e.smallestSleep())

		if result.Burst != nil {
			e.setMIDIReady(false)
			if _, err := e.transport.BulkTransfer(ctx, midiOutEP, result.Burst); err != nil {
				e.log.Error("midi out transfer failed", pkg.ZapErr(err))
				e.SetStatus(StatusError)
				return
			}
			e.setMIDIReady(true)
		}

		time.Sleep(result.Sleep)

		for !e.getMIDIReady() {
			time.Sleep(e.smallestSleep())
			if ctx.Err() != nil {
				return
			}
		}

		if e.GetStatus() <= StatusStop {
			return
		}
	}
}

func (e *Engine) setMIDIReady(ready bool) {
	e.p2oMIDILock.Lock()
	e.p2oMIDIReady = ready
	e.p2oMIDILock.Unlock()
}

func (e *Engine) getMIDIReady() bool {
	e.p2oMIDILock.Lock()
	defer e.p2oMIDILock.Unlock()
	return e.p2oMIDIReady
}
