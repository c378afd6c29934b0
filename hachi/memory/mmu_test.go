package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hachiemu/hachi/hachi/addr"
)

func newTestMMU(t *testing.T) *MMU {
	t.Helper()
	cart, err := NewCartridgeWithData(makeTestROM(2, 0x00, 0x00))
	assert.NoError(t, err)
	return NewWithCartridge(cart)
}

func newCGBMMU(t *testing.T) *MMU {
	t.Helper()
	rom := makeTestROM(2, 0x00, 0x00)
	rom[cgbFlagAddress] = 0x80
	cart, err := NewCartridgeWithData(rom)
	assert.NoError(t, err)
	return NewWithCartridge(cart)
}

func TestWorkRAMReadWrite(t *testing.T) {
	m := newTestMMU(t)

	m.Write(0xC000, 0x12)
	m.Write(0xDFFF, 0x34)
	assert.Equal(t, uint8(0x12), m.Read(0xC000))
	assert.Equal(t, uint8(0x34), m.Read(0xDFFF))
}

func TestEchoRAMMirrorsWorkRAM(t *testing.T) {
	m := newTestMMU(t)

	m.Write(0xC123, 0x42)
	assert.Equal(t, uint8(0x42), m.Read(0xE123))

	m.Write(0xE456, 0x24)
	assert.Equal(t, uint8(0x24), m.Read(0xC456))
}

func TestInterruptFlagUpperBitsReadHigh(t *testing.T) {
	m := newTestMMU(t)

	m.Write(addr.IF, 0x00)
	assert.Equal(t, uint8(0xE0), m.Read(addr.IF))

	m.RequestInterrupt(addr.VBlankInterrupt)
	assert.Equal(t, uint8(0xE1), m.Read(addr.IF))
}

func TestUnusableRegionReadsOpenBus(t *testing.T) {
	m := newTestMMU(t)
	m.Write(0xFEA0, 0x42)
	assert.Equal(t, uint8(0xFF), m.Read(0xFEA0))
}

func TestLYIsReadOnly(t *testing.T) {
	m := newTestMMU(t)
	m.SetLY(42)
	m.Write(addr.LY, 0x99)
	assert.Equal(t, uint8(42), m.Read(addr.LY))
}

func TestSTATWritePreservesModeBits(t *testing.T) {
	m := newTestMMU(t)
	m.SetSTATBits(0x07) // mode 3 + coincidence

	m.Write(addr.STAT, 0xFF)
	got := m.Read(addr.STAT)
	assert.Equal(t, uint8(0x07), got&0x07, "mode and coincidence bits survive writes")
	assert.Equal(t, uint8(0x78), got&0x78, "enable bits are written")
}

func TestOAMDMATransfer(t *testing.T) {
	m := newTestMMU(t)

	for i := 0; i < oamSize; i++ {
		m.Write(0xC000+uint16(i), byte(i))
	}

	m.Write(addr.DMA, 0xC0)
	assert.True(t, m.DMAActive())

	// while in flight only high RAM and the interrupt registers respond
	assert.Equal(t, uint8(0xFF), m.Read(0xC000))
	m.Write(0xFF80, 0x42)
	assert.Equal(t, uint8(0x42), m.Read(0xFF80))

	// writes outside high RAM are dropped
	m.Write(0xC0A0, 0x99)

	m.TickDMA(640)
	assert.False(t, m.DMAActive())

	for i := 0; i < oamSize; i++ {
		assert.Equal(t, byte(i), m.Read(addr.OAMStart+uint16(i)), "OAM byte %d", i)
	}
	assert.Equal(t, uint8(0x00), m.Read(0xC0A0), "blocked write must not land")
}

func TestOAMDMATransfersOneBytePerMachineCycle(t *testing.T) {
	m := newTestMMU(t)
	m.Write(0xC000, 0xAA)

	m.Write(addr.DMA, 0xC0)
	m.TickDMA(4)
	assert.Equal(t, uint8(0xAA), m.OAMByte(0))
	assert.True(t, m.DMAActive())

	m.TickDMA(636)
	assert.False(t, m.DMAActive())
}

func TestBootROMOverlay(t *testing.T) {
	m := newTestMMU(t)

	boot := make([]byte, 0x100)
	boot[0x00] = 0x31
	assert.NoError(t, m.LoadBootROM(boot))
	assert.True(t, m.BootROMMapped())

	assert.Equal(t, uint8(0x31), m.Read(0x0000))

	// addresses past the overlay come from the cartridge
	assert.Equal(t, uint8(0x01), m.Read(0x4000))

	m.Write(addr.BOOT, 0x01)
	assert.False(t, m.BootROMMapped())
	assert.Equal(t, uint8(0x00), m.Read(0x0000), "cartridge visible after unmap")
}

func TestBootROMRejectsBadSize(t *testing.T) {
	m := newTestMMU(t)
	assert.Error(t, m.LoadBootROM(make([]byte, 0x80)))
}

func TestCGBWorkRAMBanking(t *testing.T) {
	m := newCGBMMU(t)

	m.Write(addr.SVBK, 0x01)
	m.Write(0xD000, 0x11)
	m.Write(addr.SVBK, 0x03)
	m.Write(0xD000, 0x33)

	m.Write(addr.SVBK, 0x01)
	assert.Equal(t, uint8(0x11), m.Read(0xD000))
	m.Write(addr.SVBK, 0x03)
	assert.Equal(t, uint8(0x33), m.Read(0xD000))

	// bank 0 select maps bank 1
	m.Write(addr.SVBK, 0x00)
	assert.Equal(t, uint8(0x11), m.Read(0xD000))

	// 0xC000 region is always bank 0
	m.Write(0xC000, 0x42)
	m.Write(addr.SVBK, 0x05)
	assert.Equal(t, uint8(0x42), m.Read(0xC000))
}

func TestWorkRAMBankingIgnoredOnDMG(t *testing.T) {
	m := newTestMMU(t)

	m.Write(0xD000, 0x11)
	m.Write(addr.SVBK, 0x03)
	assert.Equal(t, uint8(0x11), m.Read(0xD000))
	assert.Equal(t, uint8(0xFF), m.Read(addr.SVBK))
}

func TestCGBVRAMBanking(t *testing.T) {
	m := newCGBMMU(t)

	m.Write(addr.VBK, 0x00)
	m.Write(0x8000, 0xAA)
	m.Write(addr.VBK, 0x01)
	m.Write(0x8000, 0xBB)

	assert.Equal(t, uint8(0xBB), m.Read(0x8000))
	m.Write(addr.VBK, 0x00)
	assert.Equal(t, uint8(0xAA), m.Read(0x8000))

	assert.Equal(t, uint8(0xAA), m.VRAMBankRead(0, 0x8000))
	assert.Equal(t, uint8(0xBB), m.VRAMBankRead(1, 0x8000))
}

func TestCGBPaletteRAMAutoIncrement(t *testing.T) {
	m := newCGBMMU(t)

	m.Write(addr.BCPS, 0x80) // index 0, auto-increment
	m.Write(addr.BCPD, 0x1F)
	m.Write(addr.BCPD, 0x00)

	m.Write(addr.BCPS, 0x00)
	assert.Equal(t, uint8(0x1F), m.Read(addr.BCPD))
	m.Write(addr.BCPS, 0x01)
	assert.Equal(t, uint8(0x00), m.Read(addr.BCPD))

	// reads do not auto-increment
	m.Write(addr.BCPS, 0x81)
	_ = m.Read(addr.BCPD)
	assert.Equal(t, uint8(0x81), m.Read(addr.BCPS)&0xBF)
}

func TestSpeedSwitch(t *testing.T) {
	m := newCGBMMU(t)

	assert.False(t, m.TrySpeedSwitch(), "not armed")
	assert.False(t, m.DoubleSpeed())

	m.Write(addr.KEY1, 0x01)
	assert.True(t, m.TrySpeedSwitch())
	assert.True(t, m.DoubleSpeed())
	assert.Equal(t, uint8(0xFE), m.Read(addr.KEY1), "speed bit set, armed bit clear")

	m.Write(addr.KEY1, 0x01)
	assert.True(t, m.TrySpeedSwitch())
	assert.False(t, m.DoubleSpeed())
}

func TestSpeedSwitchIgnoredOnDMG(t *testing.T) {
	m := newTestMMU(t)
	m.Write(addr.KEY1, 0x01)
	assert.False(t, m.TrySpeedSwitch())
	assert.Equal(t, uint8(0xFF), m.Read(addr.KEY1))
}

func TestGeneralPurposeVRAMDMA(t *testing.T) {
	m := newCGBMMU(t)

	for i := 0; i < 0x20; i++ {
		m.Write(0xC000+uint16(i), byte(i))
	}

	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA2, 0x00)
	m.Write(addr.HDMA3, 0x00)
	m.Write(addr.HDMA4, 0x40)
	m.Write(addr.HDMA5, 0x01) // two 16-byte blocks

	for i := 0; i < 0x20; i++ {
		assert.Equal(t, byte(i), m.Read(0x8040+uint16(i)), "VRAM byte %d", i)
	}
	assert.Equal(t, uint8(0xFF), m.Read(addr.HDMA5), "transfer reports complete")
}

func TestVRAMDMAWrapsDestination(t *testing.T) {
	m := newCGBMMU(t)

	for i := 0; i < 0x20; i++ {
		m.Write(0xC000+uint16(i), byte(0x80+i))
	}

	// destination 16 bytes below the top of VRAM, two blocks: the
	// second block wraps to the start of the bank
	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA2, 0x00)
	m.Write(addr.HDMA3, 0x1F)
	m.Write(addr.HDMA4, 0xF0)
	m.Write(addr.HDMA5, 0x01)

	for i := 0; i < 0x10; i++ {
		assert.Equal(t, byte(0x80+i), m.Read(0x9FF0+uint16(i)), "top byte %d", i)
	}
	for i := 0; i < 0x10; i++ {
		assert.Equal(t, byte(0x90+i), m.Read(0x8000+uint16(i)), "wrapped byte %d", i)
	}
}

func TestJoypadRegister(t *testing.T) {
	m := newTestMMU(t)

	m.Write(addr.P1, 0x20) // select d-pad
	assert.Equal(t, uint8(0xEF), m.Read(addr.P1), "no buttons pressed reads high")

	m.Joypad().Set(ButtonRight, true)
	assert.Equal(t, uint8(0xEE), m.Read(addr.P1))

	m.Write(addr.P1, 0x10) // select action buttons: right is invisible
	assert.Equal(t, uint8(0xDF), m.Read(addr.P1))
}

func TestJoypadInterruptOnPress(t *testing.T) {
	m := newTestMMU(t)

	m.Write(addr.P1, 0x10) // select action buttons
	m.Joypad().Set(ButtonA, true)
	assert.NotZero(t, m.Read(addr.IF)&addr.JoypadInterrupt.Mask())
}

func TestJoypadInterruptOnlyForSelectedGroup(t *testing.T) {
	m := newTestMMU(t)

	m.Write(addr.P1, 0x20) // select d-pad only
	m.Joypad().Set(ButtonA, true)
	assert.Zero(t, m.Read(addr.IF)&addr.JoypadInterrupt.Mask(),
		"press on the deselected group must not raise the interrupt")

	m.Joypad().Set(ButtonDown, true)
	assert.NotZero(t, m.Read(addr.IF)&addr.JoypadInterrupt.Mask())
}
