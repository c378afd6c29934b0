package memory

import "fmt"

// MBC is the bank controller seen by the bus for the cartridge address
// ranges (ROM 0x0000-0x7FFF, external RAM 0xA000-0xBFFF). Writes into the
// ROM range are bank-select commands, never data writes.
type MBC interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// BatteryBacked is implemented by controllers whose external RAM can be
// persisted. The storage mechanism itself lives outside the core.
type BatteryBacked interface {
	ExportRAM() []byte
	ImportRAM(data []byte)
}

// NewMBC constructs the controller for a decoded cartridge.
func NewMBC(cart *Cartridge) MBC {
	switch cart.Type() {
	case NoMBCType:
		return NewNoMBC(cart.data)
	case MBC1Type:
		return NewMBC1(cart.data, cart.romBankCount, cart.ramBankCount)
	case MBC2Type:
		return NewMBC2(cart.data, cart.romBankCount)
	case MBC3Type:
		return NewMBC3(cart.data, cart.romBankCount, cart.ramBankCount, cart.hasRTC)
	case MBC5Type:
		return NewMBC5(cart.data, cart.romBankCount, cart.ramBankCount, cart.hasRumble)
	}
	// NewCartridgeWithData rejects unknown types at load time.
	panic(fmt.Sprintf("unreachable MBC type %d", cart.Type()))
}

// romRead resolves a switchable-region address against a bank index,
// wrapping the index modulo the physical bank count. Software selecting
// an index past the end of the image is a tolerated anomaly, not an
// error: hardware simply ignores the unused upper select bits.
func romRead(rom []uint8, bank, bankCount int, address uint16) uint8 {
	bank %= bankCount
	offset := bank*romBankSize + int(address&0x3FFF)
	return rom[offset]
}

// NoMBC is the pass-through controller for 32KB cartridges: the image is
// mapped directly at 0x0000-0x7FFF, bank-select writes do nothing, and
// there is no external RAM.
type NoMBC struct {
	rom []uint8
}

func NewNoMBC(rom []uint8) *NoMBC {
	return &NoMBC{rom: rom}
}

func (m *NoMBC) Read(address uint16) uint8 {
	if address <= 0x7FFF && int(address) < len(m.rom) {
		return m.rom[address]
	}
	return 0xFF
}

func (m *NoMBC) Write(address uint16, value uint8) {
	// ROM is immutable data; there is no controller logic to trigger.
}

// MBC1 supports up to 2MB ROM and 32KB RAM. The 5-bit low bank select
// never maps bank 0 into the switchable region; a 2-bit upper select is
// shared between ROM banking (mode 0) and RAM banking (mode 1). In mode 1
// the upper bits also remap the fixed region on large cartridges.
type MBC1 struct {
	rom          []uint8
	ram          []uint8
	romBankCount int
	ramBankCount int

	bankLow    uint8 // 5-bit select, 0 treated as 1
	bankHigh   uint8 // 2-bit select
	mode       uint8 // 0 = ROM banking, 1 = RAM banking
	ramEnabled bool
}

func NewMBC1(rom []uint8, romBanks, ramBanks int) *MBC1 {
	return &MBC1{
		rom:          rom,
		ram:          make([]uint8, ramBanks*ramBankSize),
		romBankCount: romBanks,
		ramBankCount: ramBanks,
		bankLow:      1,
	}
}

// romBank returns the effective bank for the switchable region.
func (m *MBC1) romBank() int {
	return int(m.bankHigh)<<5 | int(m.bankLow)
}

// fixedBank returns the effective bank for the 0x0000-0x3FFF region.
// In mode 1 the upper select bits apply there too.
func (m *MBC1) fixedBank() int {
	if m.mode == 1 {
		return int(m.bankHigh) << 5
	}
	return 0
}

func (m *MBC1) ramBank() int {
	if m.mode == 1 {
		return int(m.bankHigh)
	}
	return 0
}

func (m *MBC1) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		return romRead(m.rom, m.fixedBank(), m.romBankCount, address)
	case address <= 0x7FFF:
		return romRead(m.rom, m.romBank(), m.romBankCount, address)
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := (m.ramBank()%m.ramBankCount)*ramBankSize + int(address-0xA000)
		return m.ram[offset]
	}
	return 0xFF
}

func (m *MBC1) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x3FFF:
		m.bankLow = value & 0x1F
		if m.bankLow == 0 {
			m.bankLow = 1
		}
	case address <= 0x5FFF:
		m.bankHigh = value & 0x03
	case address <= 0x7FFF:
		m.mode = value & 0x01
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		offset := (m.ramBank()%m.ramBankCount)*ramBankSize + int(address-0xA000)
		m.ram[offset] = value
	}
}

func (m *MBC1) ExportRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC1) ImportRAM(data []byte) {
	copy(m.ram, data)
}

// MBC2 has a 4-bit ROM bank select and 512 half-byte cells of built-in
// RAM. Address bit 8 distinguishes RAM-enable writes from bank-select
// writes in the 0x0000-0x3FFF range.
type MBC2 struct {
	rom          []uint8
	ram          [512]uint8
	romBankCount int
	romBank      uint8
	ramEnabled   bool
}

func NewMBC2(rom []uint8, romBanks int) *MBC2 {
	return &MBC2{rom: rom, romBankCount: romBanks, romBank: 1}
}

func (m *MBC2) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		return romRead(m.rom, 0, m.romBankCount, address)
	case address <= 0x7FFF:
		return romRead(m.rom, int(m.romBank), m.romBankCount, address)
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		// 512 cells mirrored through the whole range; upper nibble open
		return m.ram[address&0x1FF] | 0xF0
	}
	return 0xFF
}

func (m *MBC2) Write(address uint16, value uint8) {
	switch {
	case address <= 0x3FFF:
		if address&0x0100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
		} else {
			m.romBank = value & 0x0F
			if m.romBank == 0 {
				m.romBank = 1
			}
		}
	case address >= 0xA000 && address <= 0xBFFF:
		if m.ramEnabled {
			m.ram[address&0x1FF] = value & 0x0F
		}
	}
}

func (m *MBC2) ExportRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram[:])
	return out
}

func (m *MBC2) ImportRAM(data []byte) {
	copy(m.ram[:], data)
}

// MBC3 has a 7-bit ROM bank select and maps either a RAM bank or one of
// the real-time-clock registers into the external RAM window. The clock
// registers are frozen by the 0x00->0x01 latch sequence.
type MBC3 struct {
	rom          []uint8
	ram          []uint8
	romBankCount int
	ramBankCount int

	romBank    uint8
	ramSelect  uint8 // 0-3 RAM bank, 8-12 RTC register
	ramEnabled bool

	hasRTC    bool
	rtc       [5]uint8
	latched   [5]uint8
	latchArm  bool
	rtcCycles uint64
}

func NewMBC3(rom []uint8, romBanks, ramBanks int, hasRTC bool) *MBC3 {
	return &MBC3{
		rom:          rom,
		ram:          make([]uint8, ramBanks*ramBankSize),
		romBankCount: romBanks,
		ramBankCount: ramBanks,
		romBank:      1,
		hasRTC:       hasRTC,
	}
}

func (m *MBC3) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		return romRead(m.rom, 0, m.romBankCount, address)
	case address <= 0x7FFF:
		return romRead(m.rom, int(m.romBank), m.romBankCount, address)
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.ramSelect <= 0x03 {
			if len(m.ram) == 0 {
				return 0xFF
			}
			offset := (int(m.ramSelect)%m.ramBankCount)*ramBankSize + int(address-0xA000)
			return m.ram[offset]
		}
		if m.hasRTC && m.ramSelect >= 0x08 && m.ramSelect <= 0x0C {
			return m.latched[m.ramSelect-0x08]
		}
		return 0xFF
	}
	return 0xFF
}

func (m *MBC3) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x3FFF:
		m.romBank = value & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case address <= 0x5FFF:
		m.ramSelect = value & 0x0F
	case address <= 0x7FFF:
		// latch on a 0x00 -> 0x01 write pair
		if value == 0x00 {
			m.latchArm = true
		} else if value == 0x01 && m.latchArm {
			m.latched = m.rtc
			m.latchArm = false
		} else {
			m.latchArm = false
		}
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.ramSelect <= 0x03 {
			if len(m.ram) == 0 {
				return
			}
			offset := (int(m.ramSelect)%m.ramBankCount)*ramBankSize + int(address-0xA000)
			m.ram[offset] = value
		} else if m.hasRTC && m.ramSelect >= 0x08 && m.ramSelect <= 0x0C {
			m.rtc[m.ramSelect-0x08] = value
		}
	}
}

// TickRTC advances the clock registers by emulated cycles, one second per
// 4194304 cycles, unless the halt flag (day-high bit 6) is set.
func (m *MBC3) TickRTC(cycles int) {
	if !m.hasRTC || m.rtc[4]&0x40 != 0 {
		return
	}
	m.rtcCycles += uint64(cycles)
	for m.rtcCycles >= 4194304 {
		m.rtcCycles -= 4194304
		m.advanceSecond()
	}
}

func (m *MBC3) advanceSecond() {
	m.rtc[0] = (m.rtc[0] + 1) & 0x3F
	if m.rtc[0] != 60 {
		return
	}
	m.rtc[0] = 0
	m.rtc[1] = (m.rtc[1] + 1) & 0x3F
	if m.rtc[1] != 60 {
		return
	}
	m.rtc[1] = 0
	m.rtc[2] = (m.rtc[2] + 1) & 0x1F
	if m.rtc[2] != 24 {
		return
	}
	m.rtc[2] = 0
	if m.rtc[3] == 0xFF {
		m.rtc[3] = 0
		if m.rtc[4]&0x01 != 0 {
			// day counter overflow: set the carry flag
			m.rtc[4] |= 0x80
		}
		m.rtc[4] ^= 0x01
		return
	}
	m.rtc[3]++
}

func (m *MBC3) ExportRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) ImportRAM(data []byte) {
	copy(m.ram, data)
}

// MBC5 has a 9-bit ROM bank select split over two registers and up to 16
// RAM banks. Unlike MBC1, bank 0 can be mapped into the switchable
// region. On rumble cartridges bit 3 of the RAM select drives the motor
// and is masked out of the bank index.
type MBC5 struct {
	rom          []uint8
	ram          []uint8
	romBankCount int
	ramBankCount int

	romBank    uint16
	ramBank    uint8
	ramEnabled bool
	hasRumble  bool
}

func NewMBC5(rom []uint8, romBanks, ramBanks int, hasRumble bool) *MBC5 {
	return &MBC5{
		rom:          rom,
		ram:          make([]uint8, ramBanks*ramBankSize),
		romBankCount: romBanks,
		ramBankCount: ramBanks,
		romBank:      1,
		hasRumble:    hasRumble,
	}
}

func (m *MBC5) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		return romRead(m.rom, 0, m.romBankCount, address)
	case address <= 0x7FFF:
		return romRead(m.rom, int(m.romBank), m.romBankCount, address)
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := (int(m.ramBank)%m.ramBankCount)*ramBankSize + int(address-0xA000)
		return m.ram[offset]
	}
	return 0xFF
}

func (m *MBC5) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x2FFF:
		m.romBank = m.romBank&0x100 | uint16(value)
	case address <= 0x3FFF:
		m.romBank = m.romBank&0x0FF | uint16(value&0x01)<<8
	case address <= 0x5FFF:
		if m.hasRumble {
			value &= 0x07
		}
		m.ramBank = value & 0x0F
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		offset := (int(m.ramBank)%m.ramBankCount)*ramBankSize + int(address-0xA000)
		m.ram[offset] = value
	}
}

func (m *MBC5) ExportRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC5) ImportRAM(data []byte) {
	copy(m.ram, data)
}
