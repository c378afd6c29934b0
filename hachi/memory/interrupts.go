package memory

import "github.com/hachiemu/hachi/hachi/addr"

const interruptMask = 0x1F

// Interrupts holds the enable (IE) and request (IF) masks for the five
// interrupt sources. Peripherals raise requests here; only the CPU clears
// a request bit, and only at dispatch time.
type Interrupts struct {
	enable  uint8
	request uint8
}

// Request sets the request bit for the given interrupt.
func (ir *Interrupts) Request(i addr.Interrupt) {
	ir.request |= i.Mask()
}

// Acknowledge clears the request bit for the given interrupt.
func (ir *Interrupts) Acknowledge(i addr.Interrupt) {
	ir.request &^= i.Mask()
}

// Pending returns the highest-priority interrupt that is both requested
// and enabled. Priority is fixed by bit position: vblank (bit 0) first,
// joypad (bit 4) last.
func (ir *Interrupts) Pending() (addr.Interrupt, bool) {
	serviceable := ir.enable & ir.request & interruptMask
	if serviceable == 0 {
		return 0, false
	}
	for i := addr.VBlankInterrupt; i <= addr.JoypadInterrupt; i++ {
		if serviceable&i.Mask() != 0 {
			return i, true
		}
	}
	return 0, false
}

// AnyRequested reports whether any enabled interrupt is requested,
// regardless of the CPU's master enable latch. Used for halt wakeup.
func (ir *Interrupts) AnyRequested() bool {
	return ir.enable&ir.request&interruptMask != 0
}

// Read returns the IF or IE register value. The unused upper three bits
// of IF always read as 1 on hardware.
func (ir *Interrupts) Read(address uint16) byte {
	switch address {
	case addr.IF:
		return ir.request | 0xE0
	case addr.IE:
		return ir.enable
	}
	return 0xFF
}

// Write stores the IF or IE register value.
func (ir *Interrupts) Write(address uint16, value byte) {
	switch address {
	case addr.IF:
		ir.request = value & interruptMask
	case addr.IE:
		ir.enable = value
	}
}
