// Package fake provides an in-memory [hal.Transport] for exercising the
// engine's setup sequence, transfer pump, and error paths without a real
// USB device. It replaces the fifo-backed multi-device host emulation
// this package's teacher used for its own device stack: the engine only
// ever addresses one already-enumerated device, so the fake models
// exactly that.
package fake

import (
	"context"
	"sync"

	"github.com/dagargo/obridge/transport/hal"
)

// Endpoint is a single direction's worth of buffered transfer payloads.
// IN endpoints are fed by the test via Feed; OUT endpoints record every
// write for later assertions via Written.
type Endpoint struct {
	mu      sync.Mutex
	pending [][]byte
	written [][]byte
	err     error
}

// Feed queues a payload to be returned by the next BulkTransfer or
// InterruptTransfer on an IN endpoint.
func (e *Endpoint) Feed(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	e.pending = append(e.pending, cp)
}

// FailNext arranges for the next transfer on this endpoint to return err.
func (e *Endpoint) FailNext(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Written returns every payload written to an OUT endpoint, in order.
func (e *Endpoint) Written() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]byte, len(e.written))
	copy(out, e.written)
	return out
}

func (e *Endpoint) read(buf []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		err := e.err
		e.err = nil
		return 0, err
	}
	if len(e.pending) == 0 {
		return 0, nil
	}
	n := copy(buf, e.pending[0])
	e.pending = e.pending[1:]
	return n, nil
}

func (e *Endpoint) write(buf []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		err := e.err
		e.err = nil
		return 0, err
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	e.written = append(e.written, cp)
	return len(buf), nil
}

// Transport is a scriptable [hal.Transport] double.
type Transport struct {
	Vendor, Product uint16

	mu          sync.Mutex
	opened      bool
	claimed     map[uint8]bool
	altSettings map[uint8]uint8
	haltCleared map[uint8]int

	endpoints map[uint8]*Endpoint

	// FailOpen, when set, is returned by Open instead of succeeding.
	FailOpen error
	// FailClaim maps an interface number to an error ClaimInterface should
	// return for it.
	FailClaim map[uint8]error
	// FailAlt maps an interface number to an error SetAltSetting should
	// return for it.
	FailAlt map[uint8]error
}

// New creates an unopened fake transport reporting the given vendor and
// product IDs once opened.
func New(vendor, product uint16) *Transport {
	return &Transport{
		Vendor:      vendor,
		Product:     product,
		claimed:     make(map[uint8]bool),
		altSettings: make(map[uint8]uint8),
		haltCleared: make(map[uint8]int),
		endpoints:   make(map[uint8]*Endpoint),
		FailClaim:   make(map[uint8]error),
		FailAlt:     make(map[uint8]error),
	}
}

// Endpoint returns (creating if necessary) the scriptable endpoint state
// for the given address, so a test can Feed IN data or inspect OUT writes.
func (t *Transport) Endpoint(addr uint8) *Endpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, ok := t.endpoints[addr]
	if !ok {
		ep = &Endpoint{}
		t.endpoints[addr] = ep
	}
	return ep
}

// HaltClearedCount reports how many times ClearHalt was called for addr.
func (t *Transport) HaltClearedCount(addr uint8) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.haltCleared[addr]
}

// ClaimedInterfaces reports which interface numbers have been claimed.
func (t *Transport) ClaimedInterfaces() map[uint8]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[uint8]bool, len(t.claimed))
	for k, v := range t.claimed {
		out[k] = v
	}
	return out
}

func (t *Transport) Open(ctx context.Context, bus, address uint8) error {
	if t.FailOpen != nil {
		return t.FailOpen
	}
	t.mu.Lock()
	t.opened = true
	t.mu.Unlock()
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	t.opened = false
	t.mu.Unlock()
	return nil
}

func (t *Transport) ControlTransfer(ctx context.Context, setup hal.SetupPacket, data []byte) (int, error) {
	return len(data), nil
}

func (t *Transport) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	ep := t.Endpoint(endpoint)
	if endpoint&0x80 != 0 {
		return ep.read(data)
	}
	return ep.write(data)
}

func (t *Transport) InterruptTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	return t.BulkTransfer(ctx, endpoint, data)
}

func (t *Transport) ClaimInterface(iface uint8) error {
	if err := t.FailClaim[iface]; err != nil {
		return err
	}
	t.mu.Lock()
	t.claimed[iface] = true
	t.mu.Unlock()
	return nil
}

func (t *Transport) ReleaseInterface(iface uint8) error {
	t.mu.Lock()
	delete(t.claimed, iface)
	t.mu.Unlock()
	return nil
}

func (t *Transport) SetAltSetting(iface, alt uint8) error {
	if err := t.FailAlt[iface]; err != nil {
		return err
	}
	t.mu.Lock()
	t.altSettings[iface] = alt
	t.mu.Unlock()
	return nil
}

func (t *Transport) ClearHalt(endpoint uint8) error {
	t.mu.Lock()
	t.haltCleared[endpoint]++
	t.mu.Unlock()
	return nil
}

func (t *Transport) VendorProduct() (vendor, product uint16) {
	return t.Vendor, t.Product
}

var _ hal.Transport = (*Transport)(nil)
