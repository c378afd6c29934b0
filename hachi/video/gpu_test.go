package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hachiemu/hachi/hachi/addr"
	"github.com/hachiemu/hachi/hachi/memory"
)

func newTestGPU(t *testing.T) (*GPU, *memory.MMU) {
	t.Helper()
	m := memory.New()
	g := New(m)
	m.Write(addr.LCDC, 0x91)
	m.Write(addr.BGP, 0xE4)
	return g, m
}

func TestScanlineModeSequence(t *testing.T) {
	g, m := newTestGPU(t)

	assert.Equal(t, OAMScan, g.Mode())

	g.Tick(79)
	assert.Equal(t, OAMScan, g.Mode())

	g.Tick(1)
	assert.Equal(t, PixelTransfer, g.Mode())
	assert.Equal(t, uint8(3), m.Read(addr.STAT)&0x03)

	// no sprites, no window: transfer runs the base length
	g.Tick(172)
	assert.Equal(t, HBlank, g.Mode())
	assert.Equal(t, uint8(0), m.Read(addr.STAT)&0x03)

	g.Tick(456 - 80 - 172)
	assert.Equal(t, OAMScan, g.Mode())
	assert.Equal(t, 1, g.Line())
	assert.Equal(t, uint8(1), m.Read(addr.LY))
}

func TestFrameModeOrdering(t *testing.T) {
	g, m := newTestGPU(t)

	for line := 0; line < 144; line++ {
		assert.Equal(t, OAMScan, g.Mode(), "line %d", line)
		g.Tick(80)
		assert.Equal(t, PixelTransfer, g.Mode(), "line %d", line)
		g.Tick(172)
		assert.Equal(t, HBlank, g.Mode(), "line %d", line)
		g.Tick(456 - 80 - 172)
	}

	for line := 144; line < 154; line++ {
		assert.Equal(t, VBlank, g.Mode(), "line %d", line)
		assert.Equal(t, uint8(line), m.Read(addr.LY))
		g.Tick(456)
	}

	assert.Equal(t, OAMScan, g.Mode(), "wrapped to a new frame")
	assert.Equal(t, 0, g.Line())
	assert.Equal(t, uint64(1), g.Frames())
}

func TestVBlankInterruptAtLine144(t *testing.T) {
	g, m := newTestGPU(t)

	g.Tick(143*456 + 455)
	assert.Zero(t, m.Read(addr.IF)&addr.VBlankInterrupt.Mask())

	g.Tick(1)
	assert.Equal(t, 144, g.Line())
	assert.Equal(t, VBlank, g.Mode())
	assert.NotZero(t, m.Read(addr.IF)&addr.VBlankInterrupt.Mask())
}

func TestLYCCoincidenceInterrupt(t *testing.T) {
	g, m := newTestGPU(t)
	m.Write(addr.LYC, 5)
	m.Write(addr.STAT, 0x40)

	g.Tick(4 * 456)
	assert.Zero(t, m.Read(addr.IF)&addr.LCDSTATInterrupt.Mask())
	assert.Zero(t, m.Read(addr.STAT)&0x04)

	g.Tick(456)
	assert.Equal(t, 5, g.Line())
	assert.NotZero(t, m.Read(addr.STAT)&0x04, "coincidence bit")
	assert.NotZero(t, m.Read(addr.IF)&addr.LCDSTATInterrupt.Mask())
}

// The STAT sources share one interrupt line: a condition becoming true
// while another already holds the line high produces no second request.
func TestSTATLineBlocking(t *testing.T) {
	g, m := newTestGPU(t)
	m.Write(addr.STAT, 0x28) // mode 0 and mode 2 sources enabled

	// run to the first hblank, which raises the line
	g.Tick(80 + 172)
	assert.Equal(t, HBlank, g.Mode())
	assert.NotZero(t, m.Read(addr.IF)&addr.LCDSTATInterrupt.Mask())

	m.Write(addr.IF, 0x00)

	// hblank into the next line's OAM scan: the line never drops, so
	// the mode 2 condition is swallowed
	g.Tick(456 - 80 - 172)
	assert.Equal(t, OAMScan, g.Mode())
	assert.Zero(t, m.Read(addr.IF)&addr.LCDSTATInterrupt.Mask())
}

func TestLCDDisableResetsState(t *testing.T) {
	g, m := newTestGPU(t)

	g.Tick(10 * 456)
	assert.Equal(t, 10, g.Line())

	m.Write(addr.LCDC, 0x11)
	g.Tick(4)
	assert.Equal(t, uint8(0), m.Read(addr.LY))
	assert.Equal(t, uint8(0), m.Read(addr.STAT)&0x03)

	// re-enable restarts from the top of the frame
	m.Write(addr.LCDC, 0x91)
	g.Tick(80)
	assert.Equal(t, PixelTransfer, g.Mode())
	assert.Equal(t, 0, g.Line())
}

func TestSpritesExtendPixelTransfer(t *testing.T) {
	g, m := newTestGPU(t)
	m.Write(addr.LCDC, 0x93) // sprites on

	// one sprite overlapping line 0
	m.Write(addr.OAMStart+0, 16) // Y
	m.Write(addr.OAMStart+1, 8)  // X

	g.Tick(80 + 172)
	assert.Equal(t, PixelTransfer, g.Mode(), "sprite fetch stall keeps mode 3 alive")

	g.Tick(spriteFetchPenalty)
	assert.Equal(t, HBlank, g.Mode())
}

func TestFramePublishedEachFrame(t *testing.T) {
	g, _ := newTestGPU(t)

	assert.Equal(t, uint64(0), g.Frames())
	g.Tick(456 * 154)
	assert.Equal(t, uint64(1), g.Frames())
	assert.Len(t, g.Snapshot(), FramebufferWidth*FramebufferHeight)
}
