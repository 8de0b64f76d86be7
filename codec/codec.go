// Package codec converts between the device's big-endian fixed-point
// block wire format and host-endian normalised float, the only place in
// the engine that touches endianness or fixed-point scaling.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// HeaderSentinel is the fixed value an outbound block's header carries on
// the wire.
const HeaderSentinel = 0x07FF

// blockHeaderSize is the size in bytes of the fixed header+frames fields
// preceding a block's padding and sample data.
const blockHeaderSize = 4 // header:u16 + frames:u16

// scale converts between a signed 32-bit sample and a float in [-1, 1).
const scale = math.MaxInt32

// Layout describes the wire framing of a device's audio blocks:
// FramesPerBlock frames per block (fixed by the protocol, independent of
// channel count), PaddingSize opaque bytes per block (device-specific),
// and BlocksPerTransfer blocks per USB transfer.
type Layout struct {
	FramesPerBlock    int
	PaddingSize       int
	BlocksPerTransfer int
}

// BlockSize returns the size in bytes of one block carrying the given
// channel count.
func (l Layout) BlockSize(channels int) int {
	return blockHeaderSize + l.PaddingSize + 4*l.FramesPerBlock*channels
}

// TransferSize returns the size in bytes of a full transfer of
// BlocksPerTransfer blocks carrying the given channel count.
func (l Layout) TransferSize(channels int) int {
	return l.BlockSize(channels) * l.BlocksPerTransfer
}

// FramesPerTransfer returns F, the number of PCM frames carried by one
// transfer.
func (l Layout) FramesPerTransfer() int {
	return l.FramesPerBlock * l.BlocksPerTransfer
}

var (
	// ErrShortBuffer indicates a transfer buffer smaller than Layout requires.
	ErrShortBuffer = errors.New("codec: buffer too short for layout")
	// ErrShortSamples indicates fewer input floats than the layout requires.
	ErrShortSamples = errors.New("codec: sample slice too short for layout")
)

// InitOutbound zeroes buf and stamps every block's header with
// [HeaderSentinel]. It must run once, before the first EncodeOutbound
// call, since EncodeOutbound only ever rewrites the frames counter and
// sample data.
func InitOutbound(l Layout, channels int, buf []byte) error {
	blockSize := l.BlockSize(channels)
	if len(buf) < l.TransferSize(channels) {
		return ErrShortBuffer
	}
	for b := 0; b < l.BlocksPerTransfer; b++ {
		blk := buf[b*blockSize : (b+1)*blockSize]
		for i := range blk {
			blk[i] = 0
		}
		binary.BigEndian.PutUint16(blk[0:2], HeaderSentinel)
	}
	return nil
}

// EncodeOutbound consumes exactly l.FramesPerTransfer()*channels floats
// from in, writing each sample big-endian fixed-point into buf and
// advancing the per-block frames counter by FramesPerBlock (wrapping mod
// 2^16), starting from *counter. buf must already carry the header and
// padding written by [InitOutbound].
func EncodeOutbound(l Layout, channels int, in []float32, buf []byte, counter *uint16) error {
	blockSize := l.BlockSize(channels)
	needSamples := l.FramesPerTransfer() * channels
	if len(in) < needSamples {
		return ErrShortSamples
	}
	if len(buf) < l.TransferSize(channels) {
		return ErrShortBuffer
	}

	pos := 0
	for b := 0; b < l.BlocksPerTransfer; b++ {
		blk := buf[b*blockSize : (b+1)*blockSize]
		*counter += uint16(l.FramesPerBlock)
		binary.BigEndian.PutUint16(blk[2:4], *counter)

		data := blk[blockHeaderSize+l.PaddingSize:]
		samples := l.FramesPerBlock * channels
		for s := 0; s < samples; s++ {
			v := int32(in[pos] * scale)
			binary.BigEndian.PutUint32(data[s*4:s*4+4], uint32(v))
			pos++
		}
	}
	return nil
}

// DecodeInbound reads a full transfer of l.BlocksPerTransfer blocks
// carrying the given channel count from buf, appending
// l.FramesPerTransfer()*channels normalised float samples to out (which
// must have that much capacity) and returning the number of samples
// written.
func DecodeInbound(l Layout, channels int, buf []byte, out []float32) (int, error) {
	blockSize := l.BlockSize(channels)
	if len(buf) < l.TransferSize(channels) {
		return 0, ErrShortBuffer
	}
	needSamples := l.FramesPerTransfer() * channels
	if len(out) < needSamples {
		return 0, ErrShortSamples
	}

	pos := 0
	for b := 0; b < l.BlocksPerTransfer; b++ {
		blk := buf[b*blockSize : (b+1)*blockSize]
		data := blk[blockHeaderSize+l.PaddingSize:]
		samples := l.FramesPerBlock * channels
		for s := 0; s < samples; s++ {
			raw := int32(binary.BigEndian.Uint32(data[s*4 : s*4+4]))
			out[pos] = float32(raw) / scale
			pos++
		}
	}
	return pos, nil
}
