package bridge

import (
	"encoding/binary"
	"math"
)

// floatsToBytes and bytesToFloats convert between the Audio Bridge's
// working float32 samples and the raw byte payload the host rings carry.
// This is a purely internal format (little-endian IEEE 754), distinct
// from the device's big-endian fixed-point wire format the Block Codec
// handles; nothing outside the ring buffer ever inspects it.

func floatsToBytes(f []float32) []byte {
	b := make([]byte, 4*len(f))
	for i, v := range f {
		binary.LittleEndian.PutUint32(b[i*4:i*4+4], math.Float32bits(v))
	}
	return b
}

func bytesToFloats(b []byte, out []float32) {
	n := len(b) / 4
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : i*4+4]))
	}
}
