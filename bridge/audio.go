// Package bridge implements the Audio Bridge and MIDI Bridge: the
// per-transfer logic that moves decoded samples and framed MIDI events
// between the device-facing Block Codec and the host-facing rings in
// [github.com/dagargo/obridge/iobuf].
package bridge

import (
	"go.uber.org/zap"

	"github.com/dagargo/obridge/codec"
	"github.com/dagargo/obridge/iobuf"
	"github.com/dagargo/obridge/pkg"
	"github.com/dagargo/obridge/resample"
)

// outState is the outbound audio sub-machine's two states.
type outState int

const (
	stateWaitingToStart outState = iota
	stateRunning
)

// Audio holds the mutable state one Engine's audio path owns: the
// outbound sub-machine, latency statistics, and the resampler used on
// underflow. It is only ever touched from the audio/USB goroutine group
// and takes no lock itself: the enabled flag is passed in on each
// HandleOutbound call, and the caller copies the latency statistics into
// its own lock-guarded fields.
type Audio struct {
	Layout   codec.Layout
	Inputs   int
	Outputs  int
	Log      *zap.Logger
	Resample resample.Converter

	state         outState
	frameCounter  uint16
	p2oLatency    int
	p2oMaxLatency int

	scratch []float32
}

// NewAudio creates an Audio bridge for the given block layout and
// channel counts. conv is the sample-rate converter invoked on
// outbound underflow.
func NewAudio(layout codec.Layout, inputs, outputs int, conv resample.Converter, log *zap.Logger) *Audio {
	if log == nil {
		log = pkg.Logger()
	}
	return &Audio{
		Layout:   layout,
		Inputs:   inputs,
		Outputs:  outputs,
		Log:      log,
		Resample: conv,
	}
}

// Latency reports the last-observed and maximum readable byte counts on
// the p2o audio ring, tracked while the outbound sub-machine is running.
func (a *Audio) Latency() (current, max int) {
	return a.p2oLatency, a.p2oMaxLatency
}

// ResetLatency clears the tracked latency statistics, called at the
// start of each engine cycle.
func (a *Audio) ResetLatency() {
	a.p2oLatency = 0
	a.p2oMaxLatency = 0
}

// HandleInbound implements the Audio Bridge's inbound path (§4.3):
// decode the transfer buffer and forward it to the o2p ring unless the
// engine is still warming up. The caller is responsible for ticking the
// DLL (if attached) under lock before calling this, since that requires
// state HandleInbound has no access to. dropWarmup is true when the
// status snapshot taken under lock is below RUN.
func (a *Audio) HandleInbound(buf []byte, o2p iobuf.Ring, dropWarmup bool) {
	needSamples := a.Layout.FramesPerTransfer() * a.Outputs
	if cap(a.scratch) < needSamples {
		a.scratch = make([]float32, needSamples)
	}
	out := a.scratch[:needSamples]

	n, err := codec.DecodeInbound(a.Layout, a.Outputs, buf, out)
	if err != nil {
		a.Log.Error("decode inbound audio block failed", pkg.ZapErr(err))
		return
	}
	if dropWarmup {
		return
	}

	byteLen := n * 4
	if o2p.WriteSpace() < byteLen {
		a.Log.Warn("o2p audio ring overflow, dropping transfer",
			zap.Int("needed", byteLen), zap.Int("available", o2p.WriteSpace()))
		return
	}
	o2p.Write(floatsToBytes(out[:n]))
}

// HandleOutbound implements the Audio Bridge's outbound path (§4.3): run
// the two-state sub-machine over p2o, then encode into buf. Encoding
// runs on every call, including warm-up and mid-stream disable, so the
// wire frames field always advances in lockstep with cumulative blocks
// sent; only the header, stamped once by [codec.InitOutbound], is never
// touched again.
func (a *Audio) HandleOutbound(buf []byte, p2o iobuf.Ring, enabled bool) {
	frameSize := 4 * a.Inputs
	transferSize := a.Layout.FramesPerTransfer() * frameSize

	switch a.state {
	case stateWaitingToStart:
		if enabled && p2o.ReadSpace() >= transferSize {
			aligned := (p2o.ReadSpace() / frameSize) * frameSize
			p2o.Discard(aligned)
			a.state = stateRunning
		}
		a.encodeSilence(buf)
		return
	case stateRunning:
		if !enabled {
			a.encodeSilence(buf)
			a.state = stateWaitingToStart
			return
		}

		avail := p2o.ReadSpace()
		a.p2oLatency = avail
		if avail > a.p2oMaxLatency {
			a.p2oMaxLatency = avail
		}

		frames := a.Layout.FramesPerTransfer()
		samples := make([]float32, frames*a.Inputs)

		if avail >= transferSize {
			raw := make([]byte, transferSize)
			p2o.Read(raw)
			bytesToFloats(raw, samples)
		} else {
			availFrames := avail / frameSize
			if availFrames == 0 {
				zeroFloats(samples)
			} else {
				raw := make([]byte, availFrames*frameSize)
				p2o.Read(raw)
				scratchF := make([]float32, availFrames*a.Inputs)
				bytesToFloats(raw, scratchF)
				a.resampleInterleaved(scratchF, availFrames, frames, samples)
			}
		}

		if err := codec.EncodeOutbound(a.Layout, a.Inputs, samples, buf, &a.frameCounter); err != nil {
			a.Log.Error("encode outbound audio block failed", pkg.ZapErr(err))
		}
	}
}

// resampleInterleaved stretches inAvail frames of interleaved audio to
// exactly outFrames frames, resampling each channel independently since
// [resample.Converter] operates on a single channel at a time. It writes
// into out, which must already be sized outFrames*a.Inputs.
func (a *Audio) resampleInterleaved(in []float32, inFrames, outFrames int, out []float32) {
	channel := make([]float32, inFrames)
	for c := 0; c < a.Inputs; c++ {
		for f := 0; f < inFrames; f++ {
			channel[f] = in[f*a.Inputs+c]
		}
		resampled, err := a.Resample.Convert(channel, outFrames)
		if err != nil {
			a.Log.Error("resample on underflow failed", pkg.ZapErr(err))
			for f := 0; f < outFrames; f++ {
				out[f*a.Inputs+c] = 0
			}
			continue
		}
		if len(resampled) < outFrames {
			a.Log.Warn("resampler produced fewer frames than requested",
				zap.Int("want", outFrames), zap.Int("got", len(resampled)))
		}
		for f := 0; f < outFrames; f++ {
			if f < len(resampled) {
				out[f*a.Inputs+c] = resampled[f]
			} else {
				out[f*a.Inputs+c] = 0
			}
		}
	}
}

// encodeSilence stamps buf with a zeroed sample block, still advancing
// the frame counter via [codec.EncodeOutbound]. Since EncodeOutbound
// never rewrites a block's header bytes, this leaves the 0x07FF
// sentinel [codec.InitOutbound] stamped intact.
func (a *Audio) encodeSilence(buf []byte) {
	silence := make([]float32, a.Layout.FramesPerTransfer()*a.Inputs)
	if err := codec.EncodeOutbound(a.Layout, a.Inputs, silence, buf, &a.frameCounter); err != nil {
		a.Log.Error("encode silent outbound audio block failed", pkg.ZapErr(err))
	}
}

func zeroFloats(f []float32) {
	for i := range f {
		f[i] = 0
	}
}
