package bridge

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dagargo/obridge/codec"
	"github.com/dagargo/obridge/iobuf"
	"github.com/dagargo/obridge/resample"
)

func testAudioLayout() codec.Layout {
	return codec.Layout{FramesPerBlock: 7, PaddingSize: 4, BlocksPerTransfer: 4}
}

func TestHandleInboundDropsDuringWarmup(t *testing.T) {
	layout := testAudioLayout()
	channels := 2
	a := NewAudio(layout, channels, channels, resample.NewSoxr(), zap.NewNop())

	buf := make([]byte, layout.TransferSize(channels))
	o2p := iobuf.NewMemRing(4096)

	a.HandleInbound(buf, o2p, true)
	assert.Equal(t, 0, o2p.ReadSpace())
}

func TestHandleInboundWritesWhenRunning(t *testing.T) {
	layout := testAudioLayout()
	channels := 2
	a := NewAudio(layout, channels, channels, resample.NewSoxr(), zap.NewNop())

	buf := make([]byte, layout.TransferSize(channels))
	require.NoError(t, codec.InitOutbound(layout, channels, buf))
	o2p := iobuf.NewMemRing(1 << 20)

	a.HandleInbound(buf, o2p, false)
	wantBytes := layout.FramesPerTransfer() * channels * 4
	assert.Equal(t, wantBytes, o2p.ReadSpace())
}

func TestHandleInboundLogsOverflowWithoutWriting(t *testing.T) {
	layout := testAudioLayout()
	channels := 2
	a := NewAudio(layout, channels, channels, resample.NewSoxr(), zap.NewNop())

	buf := make([]byte, layout.TransferSize(channels))
	require.NoError(t, codec.InitOutbound(layout, channels, buf))
	o2p := iobuf.NewMemRing(4) // far too small

	a.HandleInbound(buf, o2p, false)
	assert.Equal(t, 0, o2p.ReadSpace())
}

func TestHandleOutboundWaitsUntilEnabledAndFull(t *testing.T) {
	layout := testAudioLayout()
	channels := 2
	a := NewAudio(layout, channels, channels, resample.NewSoxr(), zap.NewNop())

	buf := make([]byte, layout.TransferSize(channels))
	require.NoError(t, codec.InitOutbound(layout, channels, buf))
	p2o := iobuf.NewMemRing(1 << 20)

	// disabled: stays in state 0 regardless of ring contents.
	a.HandleOutbound(buf, p2o, false)
	assert.Equal(t, stateWaitingToStart, a.state)

	// enabled but not enough data yet.
	p2o.Write(make([]byte, 4))
	a.HandleOutbound(buf, p2o, true)
	assert.Equal(t, stateWaitingToStart, a.state)

	// enabled with at least one full transfer: switches to running and drains
	// down to a whole-frame boundary. The 4 bytes written above are half of
	// an 8-byte frame, so they stay in the ring.
	full := layout.FramesPerTransfer() * channels * 4
	p2o.Write(make([]byte, full))
	a.HandleOutbound(buf, p2o, true)
	assert.Equal(t, stateRunning, a.state)
	assert.Equal(t, 4, p2o.ReadSpace())
}

func TestHandleOutboundDisableMidStreamPreservesHeaderAndZeroesSamples(t *testing.T) {
	layout := testAudioLayout()
	channels := 2
	a := NewAudio(layout, channels, channels, resample.NewSoxr(), zap.NewNop())
	a.state = stateRunning

	buf := make([]byte, layout.TransferSize(channels))
	require.NoError(t, codec.InitOutbound(layout, channels, buf))
	blockSize := layout.BlockSize(channels)
	for b := 0; b < layout.BlocksPerTransfer; b++ {
		blk := buf[b*blockSize : (b+1)*blockSize]
		data := blk[4+layout.PaddingSize:]
		for i := range data {
			data[i] = 0xAB
		}
	}
	p2o := iobuf.NewMemRing(16)

	a.HandleOutbound(buf, p2o, false)

	assert.Equal(t, stateWaitingToStart, a.state)
	for b := 0; b < layout.BlocksPerTransfer; b++ {
		blk := buf[b*blockSize : (b+1)*blockSize]
		assert.Equal(t, uint16(codec.HeaderSentinel), binary.BigEndian.Uint16(blk[0:2]),
			"header sentinel must survive a mid-stream disable")
		data := blk[4+layout.PaddingSize:]
		for _, v := range data {
			assert.Equal(t, byte(0), v)
		}
	}
}

func TestHandleOutboundWarmupAdvancesFrameCounter(t *testing.T) {
	layout := testAudioLayout()
	channels := 2
	a := NewAudio(layout, channels, channels, resample.NewSoxr(), zap.NewNop())

	buf := make([]byte, layout.TransferSize(channels))
	require.NoError(t, codec.InitOutbound(layout, channels, buf))
	p2o := iobuf.NewMemRing(1 << 20)

	// still waiting to start (nothing enabled/available yet), but the
	// frames field must still advance and the header must stay intact.
	a.HandleOutbound(buf, p2o, false)

	blockSize := layout.BlockSize(channels)
	for b := 0; b < layout.BlocksPerTransfer; b++ {
		blk := buf[b*blockSize : (b+1)*blockSize]
		assert.Equal(t, uint16(codec.HeaderSentinel), binary.BigEndian.Uint16(blk[0:2]))
		wantFrames := uint16((b + 1) * layout.FramesPerBlock)
		assert.Equal(t, wantFrames, binary.BigEndian.Uint16(blk[2:4]))
	}
}

func TestHandleOutboundReadsFullTransferWhenAvailable(t *testing.T) {
	layout := testAudioLayout()
	channels := 2
	a := NewAudio(layout, channels, channels, resample.NewSoxr(), zap.NewNop())
	a.state = stateRunning

	buf := make([]byte, layout.TransferSize(channels))
	require.NoError(t, codec.InitOutbound(layout, channels, buf))
	p2o := iobuf.NewMemRing(1 << 20)

	full := layout.FramesPerTransfer() * channels * 4
	p2o.Write(make([]byte, full))

	a.HandleOutbound(buf, p2o, true)

	assert.Equal(t, 0, p2o.ReadSpace())
	assert.Equal(t, stateRunning, a.state)
}

func TestHandleOutboundResamplesOnUnderflow(t *testing.T) {
	layout := testAudioLayout()
	channels := 1
	a := NewAudio(layout, channels, channels, resample.NewSoxr(), zap.NewNop())
	a.state = stateRunning

	buf := make([]byte, layout.TransferSize(channels))
	require.NoError(t, codec.InitOutbound(layout, channels, buf))
	p2o := iobuf.NewMemRing(1 << 20)

	half := (layout.FramesPerTransfer() / 2) * channels * 4
	p2o.Write(make([]byte, half))

	a.HandleOutbound(buf, p2o, true)

	assert.Equal(t, 0, p2o.ReadSpace())
}
