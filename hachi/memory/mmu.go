package memory

import (
	"fmt"
	"log/slog"

	"github.com/hachiemu/hachi/hachi/addr"
	"github.com/hachiemu/hachi/hachi/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

const (
	vramBankSize = 0x2000
	wramBankSize = 0x1000
	oamSize      = 0xA0
	hramSize     = 0x7F

	// an OAM DMA transfer copies 160 bytes at one byte per machine cycle
	oamDMACycles = 640
)

// SerialPort is the minimal interface for a peer connected to SB/SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// oamDMA tracks an in-flight transfer into object attribute memory.
// While one is active the CPU can only reach high RAM and the interrupt
// registers; everything else reads 0xFF and drops writes.
type oamDMA struct {
	active bool
	src    uint16
	index  int
	budget int // unspent cycles, 4 per byte
}

// MMU unifies cartridge space, video RAM, work RAM, object attribute
// memory, the I/O register window, high RAM and the interrupt-enable
// byte into one 16-bit address space. Every address has exactly one
// owner; cartridge ownership depends on the bank controller state.
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	regionMap [256]memRegion

	bootROM    []byte
	bootMapped bool

	vram     [2][vramBankSize]byte
	vramBank uint8
	wram     [8][wramBankSize]byte
	wramBank uint8
	oam      [oamSize]byte
	hram     [hramSize]byte
	io       [0x80]byte

	interrupts Interrupts
	timer      Timer
	joypad     *Joypad
	serial     SerialPort

	dma oamDMA

	// color-model state
	cgb         bool
	key1        byte
	doubleSpeed bool
	hdmaSrc     uint16
	hdmaDst     uint16
	hdmaStat    byte

	bgPalRAM  [64]byte
	objPalRAM [64]byte
	bcps      byte
	ocps      byte
}

// New creates a memory unit with no cartridge loaded, equivalent to
// powering on with an empty slot.
func New() *MMU {
	return NewWithCartridge(NewCartridge())
}

// NewWithCartridge creates a memory unit with the given cartridge
// inserted and its bank controller attached.
func NewWithCartridge(cart *Cartridge) *MMU {
	m := &MMU{
		cart:     cart,
		mbc:      NewMBC(cart),
		cgb:      cart.CGB(),
		wramBank: 1,
		hdmaStat: 0xFF,
	}
	m.joypad = NewJoypad()
	m.joypad.OnPress = func() { m.RequestInterrupt(addr.JoypadInterrupt) }
	m.timer.OnOverflow = func() { m.RequestInterrupt(addr.TimerInterrupt) }
	m.serial = serial.NewLogSink(func() { m.RequestInterrupt(addr.SerialInterrupt) })
	m.initRegionMap()
	return m
}

func (m *MMU) initRegionMap() {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// SetSerialPort replaces the default logging peer.
func (m *MMU) SetSerialPort(port SerialPort) { m.serial = port }

// SerialPort returns the attached serial peer.
func (m *MMU) SerialPort() SerialPort { return m.serial }

// Cartridge returns the loaded cartridge.
func (m *MMU) Cartridge() *Cartridge { return m.cart }

// MBC returns the attached bank controller.
func (m *MMU) MBC() MBC { return m.mbc }

// Interrupts exposes the interrupt controller.
func (m *MMU) Interrupts() *Interrupts { return &m.interrupts }

// Joypad exposes the input register block.
func (m *MMU) Joypad() *Joypad { return m.joypad }

// Timer exposes the timer block.
func (m *MMU) Timer() *Timer { return &m.timer }

// CGB reports whether the machine runs in color mode.
func (m *MMU) CGB() bool { return m.cgb }

// DoubleSpeed reports whether the CPU clock is currently doubled.
func (m *MMU) DoubleSpeed() bool { return m.doubleSpeed }

// RequestInterrupt raises the request bit for the given interrupt.
func (m *MMU) RequestInterrupt(i addr.Interrupt) {
	m.interrupts.Request(i)
}

// LoadBootROM maps a boot image over the bottom of the address space
// until the program writes the unmap register. Accepts the 256-byte
// original-model image or the 2304-byte color-model image (whose second
// page is a window onto the cartridge header).
func (m *MMU) LoadBootROM(data []byte) error {
	if len(data) != 0x100 && len(data) != 0x900 {
		return fmt.Errorf("boot image must be 256 or 2304 bytes, got %d", len(data))
	}
	m.bootROM = data
	m.bootMapped = true
	return nil
}

// BootROMMapped reports whether the boot overlay is still visible.
func (m *MMU) BootROMMapped() bool { return m.bootMapped }

func (m *MMU) bootRead(address uint16) (byte, bool) {
	if !m.bootMapped {
		return 0, false
	}
	switch {
	case address < 0x100:
		return m.bootROM[address], true
	case address >= 0x200 && int(address) < len(m.bootROM):
		return m.bootROM[address], true
	}
	return 0, false
}

// SetTimerSeed initializes the internal divider, matching the value the
// boot sequence leaves behind when the overlay is skipped.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.Seed(seed)
}

// Tick advances the timer, serial port and real-time clock by the given
// cycle count.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
	if rtc, ok := m.mbc.(*MBC3); ok {
		rtc.TickRTC(cycles)
	}
}

// TickDMA settles any pending OAM DMA transfer. The scheduler calls this
// after the display has observed post-step state.
func (m *MMU) TickDMA(cycles int) {
	if !m.dma.active {
		return
	}
	m.dma.budget += cycles
	for m.dma.budget >= 4 && m.dma.index < oamSize {
		m.oam[m.dma.index] = m.readRaw(m.dma.src + uint16(m.dma.index))
		m.dma.index++
		m.dma.budget -= 4
	}
	if m.dma.index >= oamSize {
		m.dma.active = false
	}
}

// DMAActive reports whether an OAM DMA transfer is blocking the bus.
func (m *MMU) DMAActive() bool { return m.dma.active }

// dmaAccessible reports whether the CPU may touch the address while an
// OAM DMA transfer is in flight.
func dmaAccessible(address uint16) bool {
	return (address >= 0xFF80 && address <= 0xFFFE) ||
		address == addr.IF || address == addr.IE
}

// Read returns the byte at the given address as seen by the CPU.
func (m *MMU) Read(address uint16) byte {
	if m.dma.active && !dmaAccessible(address) {
		return 0xFF
	}
	return m.readRaw(address)
}

// Write stores a byte at the given address as seen by the CPU,
// triggering any register side effects.
func (m *MMU) Write(address uint16, value byte) {
	if m.dma.active && !dmaAccessible(address) {
		return
	}
	m.writeRaw(address, value)
}

// readRaw resolves a read without the DMA bus gate. Peripherals (the
// display controller, the DMA engine itself) use this path.
func (m *MMU) readRaw(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM:
		if b, ok := m.bootRead(address); ok {
			return b
		}
		return m.mbc.Read(address)
	case regionVRAM:
		return m.vram[m.vramBank][address-0x8000]
	case regionExtRAM:
		return m.mbc.Read(address)
	case regionWRAM:
		return m.wramRead(address)
	case regionEcho:
		return m.readRaw(address - 0x2000)
	case regionOAM:
		if address <= addr.OAMEnd {
			return m.oam[address-addr.OAMStart]
		}
		// unusable region
		return 0xFF
	case regionIO:
		return m.ioRead(address)
	}
	return 0xFF
}

func (m *MMU) writeRaw(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		m.mbc.Write(address, value)
	case regionVRAM:
		m.vram[m.vramBank][address-0x8000] = value
	case regionWRAM:
		m.wramWrite(address, value)
	case regionEcho:
		m.writeRaw(address-0x2000, value)
	case regionOAM:
		if address <= addr.OAMEnd {
			m.oam[address-addr.OAMStart] = value
		}
	case regionIO:
		m.ioWrite(address, value)
	}
}

func (m *MMU) effectiveWRAMBank() uint8 {
	if !m.cgb || m.wramBank == 0 {
		return 1
	}
	return m.wramBank
}

func (m *MMU) wramRead(address uint16) byte {
	if address < 0xD000 {
		return m.wram[0][address-0xC000]
	}
	return m.wram[m.effectiveWRAMBank()][address-0xD000]
}

func (m *MMU) wramWrite(address uint16, value byte) {
	if address < 0xD000 {
		m.wram[0][address-0xC000] = value
		return
	}
	m.wram[m.effectiveWRAMBank()][address-0xD000] = value
}

func (m *MMU) ioRead(address uint16) byte {
	switch {
	case address >= 0xFF80 && address <= 0xFFFE:
		return m.hram[address-0xFF80]
	case address == addr.IE || address == addr.IF:
		return m.interrupts.Read(address)
	case address == addr.P1:
		return m.joypad.Read()
	case address == addr.SB || address == addr.SC:
		if m.serial == nil {
			return 0xFF
		}
		return m.serial.Read(address)
	case address >= addr.DIV && address <= addr.TAC:
		return m.timer.Read(address)
	case address == addr.KEY1:
		if !m.cgb {
			return 0xFF
		}
		return m.key1 | 0x7E
	case address == addr.VBK:
		if !m.cgb {
			return 0xFF
		}
		return m.vramBank | 0xFE
	case address == addr.SVBK:
		if !m.cgb {
			return 0xFF
		}
		return m.wramBank | 0xF8
	case address >= addr.HDMA1 && address <= addr.HDMA4:
		return 0xFF
	case address == addr.HDMA5:
		if !m.cgb {
			return 0xFF
		}
		return m.hdmaStat
	case address == addr.BCPS:
		return m.bcps | 0x40
	case address == addr.BCPD:
		return m.bgPalRAM[m.bcps&0x3F]
	case address == addr.OCPS:
		return m.ocps | 0x40
	case address == addr.OCPD:
		return m.objPalRAM[m.ocps&0x3F]
	}
	return m.io[address&0x7F]
}

func (m *MMU) ioWrite(address uint16, value byte) {
	switch {
	case address >= 0xFF80 && address <= 0xFFFE:
		m.hram[address-0xFF80] = value
		return
	case address == addr.IE || address == addr.IF:
		m.interrupts.Write(address, value)
		return
	case address == addr.P1:
		m.joypad.Write(value)
		return
	case address == addr.SB || address == addr.SC:
		if m.serial != nil {
			m.serial.Write(address, value)
		}
		return
	case address >= addr.DIV && address <= addr.TAC:
		m.timer.Write(address, value)
		return
	case address == addr.STAT:
		// mode and coincidence bits are owned by the display controller
		m.io[addr.STAT&0x7F] = m.io[addr.STAT&0x7F]&0x07 | value&0x78
		return
	case address == addr.LY:
		// read-only for programs
		return
	case address == addr.DMA:
		m.io[addr.DMA&0x7F] = value
		m.dma = oamDMA{active: true, src: uint16(value) << 8}
		return
	case address == addr.BOOT:
		if value != 0 && m.bootMapped {
			m.bootMapped = false
			slog.Debug("boot image unmapped")
		}
		return
	case address == addr.KEY1:
		if m.cgb {
			m.key1 = m.key1&0x80 | value&0x01
		}
		return
	case address == addr.VBK:
		if m.cgb {
			m.vramBank = value & 0x01
		}
		return
	case address == addr.SVBK:
		if m.cgb {
			m.wramBank = value & 0x07
		}
		return
	case address == addr.HDMA1:
		m.hdmaSrc = m.hdmaSrc&0x00FF | uint16(value)<<8
		return
	case address == addr.HDMA2:
		m.hdmaSrc = m.hdmaSrc&0xFF00 | uint16(value&0xF0)
		return
	case address == addr.HDMA3:
		m.hdmaDst = m.hdmaDst&0x00FF | uint16(value&0x1F)<<8
		return
	case address == addr.HDMA4:
		m.hdmaDst = m.hdmaDst&0xFF00 | uint16(value&0xF0)
		return
	case address == addr.HDMA5:
		if m.cgb {
			m.vramDMA(value)
		}
		return
	case address == addr.BCPS:
		m.bcps = value & 0xBF
		return
	case address == addr.BCPD:
		m.bgPalRAM[m.bcps&0x3F] = value
		if m.bcps&0x80 != 0 {
			m.bcps = m.bcps&0x80 | (m.bcps+1)&0x3F
		}
		return
	case address == addr.OCPS:
		m.ocps = value & 0xBF
		return
	case address == addr.OCPD:
		m.objPalRAM[m.ocps&0x3F] = value
		if m.ocps&0x80 != 0 {
			m.ocps = m.ocps&0x80 | (m.ocps+1)&0x3F
		}
		return
	}
	m.io[address&0x7F] = value
}

// vramDMA performs a general-purpose VRAM DMA transfer. Transfers
// requested in h-blank mode are run to completion immediately as well;
// the length granularity is what programs depend on for correctness.
func (m *MMU) vramDMA(control byte) {
	length := (int(control&0x7F) + 1) * 0x10
	src := m.hdmaSrc & 0xFFF0
	dst := m.hdmaDst & 0x1FF0
	for i := 0; i < length; i++ {
		// the destination wraps within VRAM
		m.vram[m.vramBank][(dst+uint16(i))&0x1FFF] = m.readRaw(src + uint16(i))
	}
	m.hdmaSrc = src + uint16(length)
	m.hdmaDst = (dst + uint16(length)) & 0x1FFF
	m.hdmaStat = 0xFF
}

// TrySpeedSwitch performs the double-speed toggle if KEY1 is armed.
// Called by the CPU when it executes a stop instruction on color
// hardware.
func (m *MMU) TrySpeedSwitch() bool {
	if !m.cgb || m.key1&0x01 == 0 {
		return false
	}
	m.doubleSpeed = !m.doubleSpeed
	m.key1 = 0
	if m.doubleSpeed {
		m.key1 = 0x80
	}
	slog.Debug("speed switch", "double", m.doubleSpeed)
	return true
}

// --- display controller access -------------------------------------------
//
// The display controller owns LY, the STAT mode bits and the frame
// pipeline, but its backing storage lives here. These accessors bypass
// the DMA bus gate: the pixel pipeline reads VRAM/OAM directly.

// VRAMBankRead reads VRAM from an explicit bank, regardless of the
// currently selected one. Used for color-model attribute/tile fetches.
func (m *MMU) VRAMBankRead(bank int, address uint16) byte {
	return m.vram[bank&1][address-0x8000]
}

// OAMByte reads object attribute memory by offset.
func (m *MMU) OAMByte(offset int) byte {
	return m.oam[offset]
}

// IOPeek reads an I/O register without side effects or DMA gating.
func (m *MMU) IOPeek(address uint16) byte {
	return m.ioRead(address)
}

// SetLY updates the current-scanline register on behalf of the display
// controller.
func (m *MMU) SetLY(line uint8) {
	m.io[addr.LY&0x7F] = line
}

// SetSTATBits updates the mode and coincidence bits of STAT on behalf of
// the display controller.
func (m *MMU) SetSTATBits(bits uint8) {
	m.io[addr.STAT&0x7F] = m.io[addr.STAT&0x7F]&0x78 | bits&0x07
}

// BGPaletteRAM exposes color-model background palette memory.
func (m *MMU) BGPaletteRAM() *[64]byte { return &m.bgPalRAM }

// OBJPaletteRAM exposes color-model object palette memory.
func (m *MMU) OBJPaletteRAM() *[64]byte { return &m.objPalRAM }

// --- battery saves --------------------------------------------------------

// ExportSave returns a copy of battery-backed cartridge RAM, or nil when
// the cartridge has none.
func (m *MMU) ExportSave() []byte {
	if !m.cart.HasBattery() {
		return nil
	}
	if b, ok := m.mbc.(BatteryBacked); ok {
		return b.ExportRAM()
	}
	return nil
}

// ImportSave restores battery-backed cartridge RAM from a previous
// export.
func (m *MMU) ImportSave(data []byte) {
	if !m.cart.HasBattery() {
		return
	}
	if b, ok := m.mbc.(BatteryBacked); ok {
		b.ImportRAM(data)
	}
}
