package cpu

import (
	"errors"
	"fmt"

	"github.com/hachiemu/hachi/hachi/addr"
)

// ErrUnknownOpcode is returned by Step when the fetched byte has no
// defined instruction. Execution cannot meaningfully continue past it.
var ErrUnknownOpcode = errors.New("unknown opcode")

// Bus is the CPU's view of the address space.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	// TrySpeedSwitch performs the double-speed toggle on color hardware
	// when armed, reporting whether a switch happened.
	TrySpeedSwitch() bool
}

const (
	zeroFlag      uint8 = 0x80
	subFlag       uint8 = 0x40
	halfCarryFlag uint8 = 0x20
	carryFlag     uint8 = 0x10
)

const interruptDispatchCycles = 20

// CPU holds the processor state: eight 8-bit registers (F is the flag
// register, only its top nibble exists), the stack pointer, the program
// counter and the interrupt master enable latch.
type CPU struct {
	bus Bus

	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8
	sp   uint16
	pc   uint16

	interruptsEnabled bool
	eiPending         bool
	halted            bool
	stopped           bool
	haltBug           bool
}

// New returns a CPU attached to the given bus, with all state zeroed as
// if a boot image were about to run.
func New(bus Bus) *CPU {
	return &CPU{bus: bus}
}

// InitPostBoot sets the register state the boot sequence leaves behind,
// for running without a boot image. The accumulator distinguishes the
// hardware model to programs.
func (c *CPU) InitPostBoot(cgb bool) {
	c.a, c.f = 0x01, 0xB0
	if cgb {
		c.a = 0x11
	}
	c.b, c.c = 0x00, 0x13
	c.d, c.e = 0x00, 0xD8
	c.h, c.l = 0x01, 0x4D
	c.sp = 0xFFFE
	c.pc = 0x0100
	c.interruptsEnabled = false
}

// Step services a pending interrupt or executes one instruction,
// returning the cycles consumed. A fetch of an undefined opcode returns
// an error wrapping ErrUnknownOpcode.
func (c *CPU) Step() (int, error) {
	if cycles := c.serviceInterrupts(); cycles > 0 {
		return cycles, nil
	}

	if c.stopped {
		// only an input line wakes a stopped processor
		if c.bus.Read(addr.IF)&addr.JoypadInterrupt.Mask() != 0 {
			c.stopped = false
		}
		return 4, nil
	}
	if c.halted {
		return 4, nil
	}

	eiBefore := c.eiPending

	fetchPC := c.pc
	op := c.bus.Read(fetchPC)
	if c.haltBug {
		// the fetch after the bugged halt does not advance PC
		c.haltBug = false
	} else {
		c.pc++
	}

	handler := opcodes[op]
	if handler == nil {
		return 0, fmt.Errorf("%w: 0x%02X at 0x%04X", ErrUnknownOpcode, op, fetchPC)
	}
	cycles := handler(c)

	// EI takes effect after the instruction that follows it
	if eiBefore && c.eiPending {
		c.interruptsEnabled = true
		c.eiPending = false
	}

	return cycles, nil
}

// serviceInterrupts wakes a halted CPU when an enabled interrupt is
// requested and, if the master enable latch is set, dispatches the
// highest-priority one: latch off, request bit cleared, PC pushed,
// control transferred to the fixed vector.
func (c *CPU) serviceInterrupts() int {
	serviceable := c.bus.Read(addr.IF) & c.bus.Read(addr.IE) & 0x1F
	if serviceable == 0 {
		return 0
	}
	c.halted = false
	if !c.interruptsEnabled {
		return 0
	}
	for i := addr.VBlankInterrupt; i <= addr.JoypadInterrupt; i++ {
		if serviceable&i.Mask() == 0 {
			continue
		}
		c.interruptsEnabled = false
		c.eiPending = false
		c.bus.Write(addr.IF, c.bus.Read(addr.IF)&^i.Mask())
		c.pushStack(c.pc)
		c.pc = i.Vector()
		return interruptDispatchCycles
	}
	return 0
}

// PC returns the current program counter.
func (c *CPU) PC() uint16 { return c.pc }

// Halted reports whether the CPU is waiting for an interrupt.
func (c *CPU) Halted() bool { return c.halted }

// Stopped reports whether the CPU is in the stop state.
func (c *CPU) Stopped() bool { return c.stopped }

// IME reports the interrupt master enable latch.
func (c *CPU) IME() bool { return c.interruptsEnabled }

func (c *CPU) String() string {
	return fmt.Sprintf("AF=%02X%02X BC=%02X%02X DE=%02X%02X HL=%02X%02X SP=%04X PC=%04X",
		c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l, c.sp, c.pc)
}

// --- register pairs -------------------------------------------------------

func (c *CPU) af() uint16 { return uint16(c.a)<<8 | uint16(c.f) }
func (c *CPU) bc() uint16 { return uint16(c.b)<<8 | uint16(c.c) }
func (c *CPU) de() uint16 { return uint16(c.d)<<8 | uint16(c.e) }
func (c *CPU) hl() uint16 { return uint16(c.h)<<8 | uint16(c.l) }

func (c *CPU) setAF(v uint16) {
	c.a = uint8(v >> 8)
	c.f = uint8(v) & 0xF0 // low nibble of F does not exist
}
func (c *CPU) setBC(v uint16) { c.b, c.c = uint8(v>>8), uint8(v) }
func (c *CPU) setDE(v uint16) { c.d, c.e = uint8(v>>8), uint8(v) }
func (c *CPU) setHL(v uint16) { c.h, c.l = uint8(v>>8), uint8(v) }

// --- flags ----------------------------------------------------------------

func (c *CPU) flag(mask uint8) bool {
	return c.f&mask != 0
}

func (c *CPU) setFlag(mask uint8, on bool) {
	if on {
		c.f |= mask
	} else {
		c.f &^= mask
	}
}

func (c *CPU) carryValue() uint8 {
	if c.flag(carryFlag) {
		return 1
	}
	return 0
}

// --- memory helpers -------------------------------------------------------

func (c *CPU) readImmediate() uint8 {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

func (c *CPU) readImmediateWord() uint16 {
	lo := c.readImmediate()
	hi := c.readImmediate()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) readWord(address uint16) uint16 {
	lo := c.bus.Read(address)
	hi := c.bus.Read(address + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) pushStack(v uint16) {
	c.sp--
	c.bus.Write(c.sp, uint8(v>>8))
	c.sp--
	c.bus.Write(c.sp, uint8(v))
}

func (c *CPU) popStack() uint16 {
	lo := c.bus.Read(c.sp)
	c.sp++
	hi := c.bus.Read(c.sp)
	c.sp++
	return uint16(hi)<<8 | uint16(lo)
}

// readR8 reads a register by its instruction-encoding index:
// B, C, D, E, H, L, (HL), A.
func (c *CPU) readR8(i int) uint8 {
	switch i {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case 6:
		return c.bus.Read(c.hl())
	default:
		return c.a
	}
}

func (c *CPU) writeR8(i int, v uint8) {
	switch i {
	case 0:
		c.b = v
	case 1:
		c.c = v
	case 2:
		c.d = v
	case 3:
		c.e = v
	case 4:
		c.h = v
	case 5:
		c.l = v
	case 6:
		c.bus.Write(c.hl(), v)
	default:
		c.a = v
	}
}
