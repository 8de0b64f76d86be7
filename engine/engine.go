// Package engine implements the Engine Supervisor: lifecycle state
// machine, USB device setup, transfer buffer allocation, and the
// goroutines that drive the Audio Bridge and MIDI Bridge in
// [github.com/dagargo/obridge/bridge] against a real device reached
// through [github.com/dagargo/obridge/transport/hal].
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dagargo/obridge/bridge"
	"github.com/dagargo/obridge/codec"
	"github.com/dagargo/obridge/devicedesc"
	"github.com/dagargo/obridge/iobuf"
	"github.com/dagargo/obridge/pkg"
	"github.com/dagargo/obridge/pkg/linux/usbid"
	"github.com/dagargo/obridge/resample"
	"github.com/dagargo/obridge/transport/hal"
)

// idDB is the process-wide USB ID database, loaded lazily on the first
// Init so that callers that never open a device never touch the
// filesystem.
var (
	idDB     *usbid.Database
	idDBOnce sync.Once
)

func identifyDevice(vendor, product uint16) (vendorName, productName string) {
	idDBOnce.Do(func() {
		idDB = usbid.New()
		idDB.Load()
	})
	return idDB.LookupVendor(vendor), idDB.LookupProduct(vendor, product)
}

// USB endpoint addresses, bit-exact per the device's descriptor.
const (
	audioInEP  = 0x83
	audioOutEP = 0x03
	midiInEP   = 0x81
	midiOutEP  = 0x01
)

// FramesPerBlock is the fixed number of PCM frames carried by one wire
// block, independent of channel count or blocks-per-transfer.
const FramesPerBlock = 7

// PaddingSize is the fixed number of opaque padding bytes per wire
// block.
const PaddingSize = 4

// sampleTimeNS is the nominal per-sample duration used to size the MIDI
// pacing loop's minimum sleep. It is deliberately independent of the
// device's actual sample rate: it only bounds how eagerly the pacer
// polls p2o_midi_ready, not any audio timing.
const sampleTimeNS = int64(1e9 / 48000)

// setupStep is one (claim interface, set alt setting) pair the USB
// setup sequence performs in order.
type setupStep struct {
	iface, alt uint8
}

var setupSequence = []setupStep{
	{iface: 1, alt: 3},
	{iface: 2, alt: 2},
	{iface: 3, alt: 0},
}

var clearHaltEndpoints = []uint8{audioInEP, audioOutEP, midiInEP, midiOutEP}

// Engine owns one device's transfer pump and lifecycle state. Fields set
// at Init time are immutable afterward; status, p2oAudioEnabled,
// p2oLatency and p2oMaxLatency are guarded by lock, and p2oMIDIReady by
// p2oMIDILock; the transfer
// buffers are single-writer, touched only from the audio/USB goroutine
// group.
type Engine struct {
	transport hal.Transport
	desc      devicedesc.Desc
	log       *zap.Logger

	layout            codec.Layout
	blocksPerTransfer int

	audio *bridge.Audio
	midi  *bridge.MIDI

	inBuf  []byte
	outBuf []byte

	io  iobuf.IOBuffers
	dll iobuf.DLL

	lock            pkg.SpinLock
	status          Status
	p2oAudioEnabled bool
	p2oLatency      int
	p2oMaxLatency   int

	p2oMIDILock  pkg.SpinLock
	p2oMIDIReady bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Init opens the device at (bus, address), looks it up in table, runs
// the USB setup sequence, and allocates the transfer buffers. It never
// starts the transfer pump; call Activate or ActivateWithDLL for that.
func Init(ctx context.Context, t hal.Transport, table devicedesc.Table, bus, address uint8, blocksPerTransfer int, log *zap.Logger) (*Engine, pkg.Code) {
	if log == nil {
		log = pkg.Logger()
	}
	if blocksPerTransfer <= 0 {
		return nil, pkg.CodeGeneric
	}

	if err := t.Open(ctx, bus, address); err != nil {
		pkg.LogError(pkg.ComponentEngine, "usb init failed", pkg.ZapErr(err))
		return nil, pkg.CodeUSBInitFailed
	}

	vendor, product := t.VendorProduct()
	vendorName, productName := identifyDevice(vendor, product)
	desc, ok := table.Lookup(vendor, product)
	if !ok {
		log.Error("no channel layout registered for device",
			zap.Uint16("vendor", vendor), zap.Uint16("product", product),
			zap.String("vendorName", vendorName), zap.String("productName", productName))
		t.Close()
		return nil, pkg.CodeCantFindMatchingDevice
	}
	log.Info("device identified",
		zap.Uint16("vendor", vendor), zap.Uint16("product", product),
		zap.String("vendorName", vendorName), zap.String("productName", productName),
		zap.String("name", desc.Name))

	if code := runSetupSequence(t, log); code != pkg.CodeOK {
		t.Close()
		return nil, code
	}

	layout := codec.Layout{
		FramesPerBlock:    FramesPerBlock,
		PaddingSize:       PaddingSize,
		BlocksPerTransfer: blocksPerTransfer,
	}

	e := &Engine{
		transport:         t,
		desc:              desc,
		log:               log,
		layout:            layout,
		blocksPerTransfer: blocksPerTransfer,
		status:            StatusReady,
		inBuf:             make([]byte, layout.TransferSize(desc.Outputs)),
		outBuf:            make([]byte, layout.TransferSize(desc.Inputs)),
	}
	if err := codec.InitOutbound(layout, desc.Inputs, e.outBuf); err != nil {
		t.Close()
		return nil, pkg.CodeCantPrepareTransfer
	}

	e.audio = bridge.NewAudio(layout, desc.Inputs, desc.Outputs, resample.NewSoxr(), log)
	e.midi = bridge.NewMIDI(log)

	return e, pkg.CodeOK
}

func runSetupSequence(t hal.Transport, log *zap.Logger) pkg.Code {
	if err := t.ControlTransfer(context.Background(), hal.SetupPacket{
		RequestType: 0x00, // host-to-device, standard, device
		Request:     0x09, // SET_CONFIGURATION
		Value:       1,
	}, nil); err != nil {
		log.Error("can't set usb config", pkg.ZapErr(err))
		return pkg.CodeCantSetConfig
	}

	for _, step := range setupSequence {
		if err := t.ClaimInterface(step.iface); err != nil {
			log.Error("can't claim usb interface", zap.Uint8("iface", step.iface), pkg.ZapErr(err))
			return pkg.CodeCantClaimInterface
		}
		if err := t.SetAltSetting(step.iface, step.alt); err != nil {
			log.Error("can't set usb alt setting", zap.Uint8("iface", step.iface), zap.Uint8("alt", step.alt), pkg.ZapErr(err))
			return pkg.CodeCantSetAltSetting
		}
	}

	for _, ep := range clearHaltEndpoints {
		if err := t.ClearHalt(ep); err != nil {
			log.Error("can't clear endpoint", zap.Uint8("endpoint", ep), pkg.ZapErr(err))
			return pkg.CodeCantClearEndpoint
		}
	}
	return pkg.CodeOK
}

// GetDeviceDesc returns the descriptor resolved for this engine's
// device at Init time.
func (e *Engine) GetDeviceDesc() devicedesc.Desc {
	return e.desc
}

// GetStatus reads the current status under lock.
func (e *Engine) GetStatus() Status {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.status
}

// SetStatus writes status under lock.
func (e *Engine) SetStatus(s Status) {
	e.lock.Lock()
	e.status = s
	e.lock.Unlock()
}

// IsP2OAudioEnable reports whether host-to-device audio is enabled.
func (e *Engine) IsP2OAudioEnable() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.p2oAudioEnabled
}

// SetP2OAudioEnable enables or disables host-to-device audio; the
// outbound sub-machine observes this on its next cycle.
func (e *Engine) SetP2OAudioEnable(enabled bool) {
	e.lock.Lock()
	e.p2oAudioEnabled = enabled
	e.lock.Unlock()
}

// Latency reports the last-observed and maximum readable byte counts on
// the p2o audio ring.
func (e *Engine) Latency() (current, max int) {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.p2oLatency, e.p2oMaxLatency
}

// GetErrStr returns the fixed diagnostic string for a [pkg.Code].
func GetErrStr(code pkg.Code) string {
	return code.String()
}

// Activate validates io, transitions the engine to READY-driven startup,
// and starts the transfer pump goroutines with no DLL attached.
func (e *Engine) Activate(io iobuf.IOBuffers) error {
	return e.activate(io, nil)
}

// ActivateWithDLL is like Activate but attaches dll, ticked once per
// audio-in completion. get_time becomes mandatory in this mode.
func (e *Engine) ActivateWithDLL(io iobuf.IOBuffers, dll iobuf.DLL) error {
	if dll == nil {
		return fmt.Errorf("engine: nil dll passed to ActivateWithDLL")
	}
	return e.activate(io, dll)
}

func (e *Engine) activate(io iobuf.IOBuffers, dll iobuf.DLL) error {
	if code := io.Validate(dll); code != pkg.CodeOK {
		return code
	}

	e.io = io
	e.dll = dll

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.wg.Add(2)
	go e.runAudioUSBLoop(ctx)
	go e.runMIDIOutLoop(ctx)

	return nil
}

// Wait blocks until both the audio/USB goroutine group and the MIDI-out
// goroutine have exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Stop requests shutdown; Wait returns once both goroutines observe it.
func (e *Engine) Stop() {
	e.SetStatus(StatusStop)
}

// Destroy releases the claimed interfaces and the USB device handle.
// Callers must Stop and Wait first if the engine was activated. All
// teardown steps run even if an earlier one fails; their errors are
// combined in the returned error.
func (e *Engine) Destroy() error {
	if e.cancel != nil {
		e.cancel()
	}

	var err error
	for _, step := range setupSequence {
		if releaseErr := e.transport.ReleaseInterface(step.iface); releaseErr != nil {
			err = multierr.Append(err, fmt.Errorf("release interface %d: %w", step.iface, releaseErr))
		}
	}
	err = multierr.Append(err, e.transport.Close())
	return err
}

// smallestSleep is the MIDI pacing loop's minimum spin-wait increment.
func (e *Engine) smallestSleep() time.Duration {
	return bridge.SmallestSleep(sampleTimeNS)
}
