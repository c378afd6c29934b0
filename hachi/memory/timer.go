package memory

import (
	"github.com/hachiemu/hachi/hachi/addr"
	"github.com/hachiemu/hachi/hachi/bit"
)

// tacLookup maps TAC input clock select (bits 1-0) to the bit position of
// the 16-bit internal divider used as the timer's clock source. TIMA
// increments on falling edges of the selected bit while the enable bit
// (TAC bit 2) is set.
//
//	00 -> bit 9  (4096 Hz)
//	01 -> bit 3  (262144 Hz)
//	10 -> bit 5  (65536 Hz)
//	11 -> bit 7  (16384 Hz)
var tacLookup = [4]uint16{9, 3, 5, 7}

// Timer implements the DIV/TIMA/TMA/TAC register block. The divider is
// free-running; DIV is its upper 8 bits and writing DIV zeroes the whole
// counter, which can itself produce a falling edge.
type Timer struct {
	divider      uint16
	lastTimerBit bool
	overflowWait int  // cycles left in the TIMA overflow/reload window
	pendingIRQ   bool // interrupt goes out one cycle after the TMA reload

	tima byte
	tma  byte
	tac  byte

	// OnOverflow is called when the timer interrupt should be requested.
	OnOverflow func()
}

// Tick advances the timer by the given number of cycles, examining the
// selected divider bit every cycle so mid-count register traffic observes
// edge-exact behavior.
func (t *Timer) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		if t.pendingIRQ {
			t.pendingIRQ = false
			if t.OnOverflow != nil {
				t.OnOverflow()
			}
		}

		t.divider++

		if t.overflowWait > 0 {
			t.overflowWait--
			if t.overflowWait == 0 {
				t.tima = t.tma
				t.pendingIRQ = true
			}
		}

		if !bit.IsSet(2, t.tac) {
			t.lastTimerBit = false
			continue
		}

		timerBit := bit.IsSet16(tacLookup[t.tac&0x03], t.divider)
		if t.lastTimerBit && !timerBit {
			t.increment()
		}
		t.lastTimerBit = timerBit
	}
}

func (t *Timer) increment() {
	if t.tima == 0xFF {
		// overflow: TIMA reads 0 for 4 cycles before the TMA reload
		t.overflowWait = 4
	}
	t.tima++
}

// Seed initializes the internal divider, used to match post-boot state.
func (t *Timer) Seed(value uint16) {
	t.divider = value
	t.lastTimerBit = false
	t.overflowWait = 0
	t.pendingIRQ = false
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return byte(t.divider >> 8)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	}
	return 0xFF
}

func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		t.divider = 0
	case addr.TIMA:
		t.tima = value
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value & 0x07
	}
}
