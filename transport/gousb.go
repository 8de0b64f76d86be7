package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/gousb"

	"github.com/dagargo/obridge/pkg"
	"github.com/dagargo/obridge/transport/hal"
)

// LibUSB is a [hal.Transport] backed by github.com/google/gousb, which
// wraps libusb. This is the transport a production build of the engine
// uses to talk to real hardware.
type LibUSB struct {
	ctx *gousb.Context
	dev *gousb.Device
	cfg *gousb.Config

	mu    sync.Mutex
	ifs   map[uint8]*gousb.Interface
	inEP  map[uint8]*gousb.InEndpoint
	outEP map[uint8]*gousb.OutEndpoint
}

// NewLibUSB creates a transport with its own libusb context.
func NewLibUSB() *LibUSB {
	return &LibUSB{
		ifs:   make(map[uint8]*gousb.Interface),
		inEP:  make(map[uint8]*gousb.InEndpoint),
		outEP: make(map[uint8]*gousb.OutEndpoint),
	}
}

// Open finds and opens the device at the given bus/address and claims
// configuration 1. It does not claim any interfaces; call ClaimInterface
// and SetAltSetting per the engine's setup sequence.
func (l *LibUSB) Open(ctx context.Context, bus, address uint8) error {
	l.ctx = gousb.NewContext()

	devs, err := l.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == int(bus) && desc.Address == int(address)
	})
	if err != nil {
		l.ctx.Close()
		return fmt.Errorf("obridge: enumerate devices: %w", err)
	}
	if len(devs) == 0 {
		l.ctx.Close()
		return fmt.Errorf("obridge: device %d:%d: %w", bus, address, pkg.ErrNoDevice)
	}
	// Close any extra matches; bus/address is unique so this is defensive.
	for _, extra := range devs[1:] {
		extra.Close()
	}
	l.dev = devs[0]

	if err := l.dev.SetAutoDetach(true); err != nil {
		pkg.LogWarn(pkg.ComponentTransport, "set auto detach failed", pkg.ZapErr(err))
	}

	cfg, err := l.dev.Config(1)
	if err != nil {
		l.Close()
		return fmt.Errorf("obridge: set configuration: %w", err)
	}
	l.cfg = cfg

	return nil
}

// Close releases the configuration, device and context.
func (l *LibUSB) Close() error {
	l.mu.Lock()
	for _, iface := range l.ifs {
		iface.Close()
	}
	l.ifs = make(map[uint8]*gousb.Interface)
	l.inEP = make(map[uint8]*gousb.InEndpoint)
	l.outEP = make(map[uint8]*gousb.OutEndpoint)
	l.mu.Unlock()

	if l.cfg != nil {
		l.cfg.Close()
		l.cfg = nil
	}
	if l.dev != nil {
		l.dev.Close()
		l.dev = nil
	}
	if l.ctx != nil {
		l.ctx.Close()
		l.ctx = nil
	}
	return nil
}

// ClaimInterface is a bookkeeping step: gousb claims an interface and
// selects its alternate setting in the same call, so the actual claim
// happens in SetAltSetting. This lets the engine's setup sequence issue
// claim then set-alt-setting as two calls, matching the libusb API it was
// modeled on.
func (l *LibUSB) ClaimInterface(iface uint8) error {
	return nil
}

// ReleaseInterface releases a claimed interface and its endpoints.
func (l *LibUSB) ReleaseInterface(iface uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if in, ok := l.ifs[iface]; ok {
		in.Close()
		delete(l.ifs, iface)
	}
	return nil
}

// SetAltSetting claims interface/alt via gousb and indexes its endpoints
// for later BulkTransfer/InterruptTransfer calls.
func (l *LibUSB) SetAltSetting(iface, alt uint8) error {
	intf, err := l.cfg.Interface(int(iface), int(alt))
	if err != nil {
		return fmt.Errorf("obridge: claim interface %d alt %d: %w", iface, alt, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if old, ok := l.ifs[iface]; ok {
		old.Close()
	}
	l.ifs[iface] = intf

	for _, ep := range intf.Setting.Endpoints {
		addr := uint8(ep.Address)
		if addr&0x80 != 0 {
			in, err := intf.InEndpoint(int(ep.Number))
			if err == nil {
				l.inEP[addr] = in
			}
		} else {
			out, err := intf.OutEndpoint(int(ep.Number))
			if err == nil {
				l.outEP[addr] = out
			}
		}
	}
	return nil
}

// ClearHalt clears the halt/stall condition on an endpoint via the
// standard CLEAR_FEATURE(ENDPOINT_HALT) control request.
func (l *LibUSB) ClearHalt(endpoint uint8) error {
	const (
		requestTypeOut      = 0x02 // host-to-device, standard, recipient endpoint
		requestClearFeature = 0x01
		featureEndpointHalt = 0x00
	)
	_, err := l.dev.Control(requestTypeOut, requestClearFeature, featureEndpointHalt, uint16(endpoint), nil)
	return err
}

// ControlTransfer issues a control transfer directly on the device handle.
func (l *LibUSB) ControlTransfer(ctx context.Context, setup hal.SetupPacket, data []byte) (int, error) {
	return l.dev.Control(setup.RequestType, setup.Request, setup.Value, setup.Index, data)
}

// BulkTransfer reads or writes on a claimed bulk endpoint, chosen by the
// direction bit of the endpoint address.
func (l *LibUSB) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	l.mu.Lock()
	in, isIn := l.inEP[endpoint]
	out, isOut := l.outEP[endpoint]
	l.mu.Unlock()

	switch {
	case endpoint&0x80 != 0 && isIn:
		return in.ReadContext(ctx, data)
	case endpoint&0x80 == 0 && isOut:
		return out.WriteContext(ctx, data)
	default:
		return 0, fmt.Errorf("obridge: endpoint %#x not claimed", endpoint)
	}
}

// InterruptTransfer behaves like BulkTransfer: gousb determines the
// transfer type from the endpoint descriptor discovered at claim time, so
// the same Read/Write path serves both bulk and interrupt endpoints.
func (l *LibUSB) InterruptTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	return l.BulkTransfer(ctx, endpoint, data)
}

// VendorProduct returns the vendor and product IDs from the device
// descriptor read at open time.
func (l *LibUSB) VendorProduct() (vendor, product uint16) {
	if l.dev == nil {
		return 0, 0
	}
	return uint16(l.dev.Desc.Vendor), uint16(l.dev.Desc.Product)
}

var _ hal.Transport = (*LibUSB)(nil)
