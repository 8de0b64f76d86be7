package transport

// Standard USB request types and codes for talking to a device directly
// through [hal.Transport.ControlTransfer], trimmed from the full USB 2.0
// standard request table to GET_DESCRIPTOR (reading vendor/product) and
// CLEAR_FEATURE (clearing a stalled endpoint). The engine does not use
// them: it reads vendor/product through hal.Transport.VendorProduct, and
// LibUSB.ClearHalt builds its request from its own local constants.
const (
	RequestTypeOut      = 0x00 // Host to device
	RequestTypeIn       = 0x80 // Device to host
	RequestTypeStandard = 0x00 // Standard request
	RequestTypeDevice   = 0x00 // Recipient: device
	RequestTypeEndpoint = 0x02 // Recipient: endpoint
)

const (
	RequestGetStatus     = 0x00
	RequestClearFeature  = 0x01
	RequestGetDescriptor = 0x06
)

// FeatureEndpointHalt is the wValue for CLEAR_FEATURE targeting the
// halt/stall condition of an endpoint.
const FeatureEndpointHalt = 0x00

// DescriptorTypeDevice is the descriptor type value for GET_DESCRIPTOR
// requests that read the device descriptor.
const DescriptorTypeDevice = 0x01

// DeviceDescriptorSize is the length of a full USB device descriptor.
const DeviceDescriptorSize = 18

// VendorProductFromDescriptor extracts the vendor and product IDs from a
// raw 18-byte device descriptor (offsets 8 and 10, little-endian).
func VendorProductFromDescriptor(data []byte) (vendor, product uint16, ok bool) {
	if len(data) < DeviceDescriptorSize {
		return 0, 0, false
	}
	vendor = uint16(data[8]) | uint16(data[9])<<8
	product = uint16(data[10]) | uint16(data[11])<<8
	return vendor, product, true
}
