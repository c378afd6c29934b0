package addr

// display registers
const (
	// LCDC is the LCD Control register.
	LCDC uint16 = 0xFF40
	// STAT is the LCD Status register.
	STAT uint16 = 0xFF41
	// SCY is the background Scroll Y register.
	SCY uint16 = 0xFF42
	// SCX is the background Scroll X register.
	SCX uint16 = 0xFF43
	// LY is the current scanline (readonly for the CPU).
	LY uint16 = 0xFF44
	// LYC is the LY Compare register.
	LYC uint16 = 0xFF45
	// DMA starts an OAM DMA transfer when written.
	DMA uint16 = 0xFF46
	// BGP is the background palette register (DMG).
	BGP uint16 = 0xFF47
	// OBP0 is object palette 0 (DMG).
	OBP0 uint16 = 0xFF48
	// OBP1 is object palette 1 (DMG).
	OBP1 uint16 = 0xFF49
	// WY is the Window Y position register.
	WY uint16 = 0xFF4A
	// WX is the Window X position register (offset by 7).
	WX uint16 = 0xFF4B
)

// color-model (CGB) registers
const (
	// KEY1 arms and reports the double-speed switch.
	KEY1 uint16 = 0xFF4D
	// VBK selects the active VRAM bank (bit 0).
	VBK uint16 = 0xFF4F
	// BOOT disables the boot ROM overlay when written non-zero.
	BOOT uint16 = 0xFF50
	// HDMA1..HDMA4 hold the VRAM DMA source/destination.
	HDMA1 uint16 = 0xFF51
	HDMA2 uint16 = 0xFF52
	HDMA3 uint16 = 0xFF53
	HDMA4 uint16 = 0xFF54
	// HDMA5 is the VRAM DMA length/mode/start register.
	HDMA5 uint16 = 0xFF55
	// BCPS is the background palette index register.
	BCPS uint16 = 0xFF68
	// BCPD reads/writes background palette RAM at the BCPS index.
	BCPD uint16 = 0xFF69
	// OCPS is the object palette index register.
	OCPS uint16 = 0xFF6A
	// OCPD reads/writes object palette RAM at the OCPS index.
	OCPD uint16 = 0xFF6B
	// SVBK selects the switchable work RAM bank (bits 0-2).
	SVBK uint16 = 0xFF70
)

// OAM (Object Attribute Memory) - sprite data
const (
	// OAMStart is the start of OAM memory (40 sprites * 4 bytes each)
	OAMStart uint16 = 0xFE00
	// OAMEnd is the end of OAM memory
	OAMEnd uint16 = 0xFE9F
)

// tile data and tile maps
const (
	// TileData0 is the start of unsigned tile data (tiles 0-255)
	TileData0 uint16 = 0x8000
	// TileData1 is the start of signed tile data region (tiles -128 to -1)
	TileData1 uint16 = 0x8800
	// TileData2 is the continuation of signed tile data (tiles 0-127)
	TileData2 uint16 = 0x9000

	// TileMap0 is background/window tile map 0
	TileMap0 uint16 = 0x9800
	// TileMap1 is background/window tile map 1
	TileMap1 uint16 = 0x9C00
)

// interrupts
const (
	// IF is the address for the Interrupt Flags register.
	IF uint16 = 0xFF0F
	// IE is the address for the Interrupt Enable register.
	IE uint16 = 0xFFFF
)

// joypad
const (
	// P1 is used to read the Joypad state.
	P1 uint16 = 0xFF00
)

// serial I/O
const (
	// SB holds the byte shifted out (and in) during a serial transfer.
	SB uint16 = 0xFF01
	// SC is the serial control register: bit 7 starts a transfer,
	// bit 0 selects the internal clock.
	SC uint16 = 0xFF02
)

// timers
const (
	// DIV is the divider register. Free-running, writing to it resets it.
	DIV uint16 = 0xFF04
	// TIMA is the timer counter register. Requests an interrupt on overflow.
	TIMA uint16 = 0xFF05
	// TMA is the timer modulo register, loaded into TIMA on overflow.
	TMA uint16 = 0xFF06
	// TAC is the timer control register (enable bit + rate select).
	TAC uint16 = 0xFF07
)

// Interrupt identifies one of the five interrupt sources. The numeric
// value is the bit position in IF/IE; lower values have higher priority.
type Interrupt uint8

const (
	// VBlankInterrupt fires when the display enters vertical blank.
	VBlankInterrupt Interrupt = iota
	// LCDSTATInterrupt fires on an enabled STAT condition edge.
	LCDSTATInterrupt
	// TimerInterrupt fires when TIMA overflows.
	TimerInterrupt
	// SerialInterrupt fires when a serial transfer completes.
	SerialInterrupt
	// JoypadInterrupt fires when a selected input line goes low.
	JoypadInterrupt
)

// Mask returns the IF/IE bit mask for the interrupt.
func (i Interrupt) Mask() uint8 {
	return 1 << i
}

// Vector returns the fixed dispatch address for the interrupt.
// Handlers are laid out 8 bytes apart starting at 0x40.
func (i Interrupt) Vector() uint16 {
	return 0x0040 + uint16(i)*8
}

func (i Interrupt) String() string {
	switch i {
	case VBlankInterrupt:
		return "vblank"
	case LCDSTATInterrupt:
		return "lcdstat"
	case TimerInterrupt:
		return "timer"
	case SerialInterrupt:
		return "serial"
	case JoypadInterrupt:
		return "joypad"
	}
	return "unknown"
}
