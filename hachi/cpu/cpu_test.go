package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hachiemu/hachi/hachi/addr"
)

// testBus is a flat 64KB RAM with a controllable speed switch.
type testBus struct {
	mem       [0x10000]byte
	canSwitch bool
}

func (b *testBus) Read(address uint16) byte         { return b.mem[address] }
func (b *testBus) Write(address uint16, value byte) { b.mem[address] = value }
func (b *testBus) TrySpeedSwitch() bool             { return b.canSwitch }

// newTestCPU returns a CPU with the given program at 0x0100 and PC/SP
// pointing at it.
func newTestCPU(program ...byte) (*CPU, *testBus) {
	bus := &testBus{}
	copy(bus.mem[0x0100:], program)
	c := New(bus)
	c.pc = 0x0100
	c.sp = 0xFFFE
	return c, bus
}

func mustStep(t *testing.T, c *CPU) int {
	t.Helper()
	cycles, err := c.Step()
	assert.NoError(t, err)
	return cycles
}

func TestPostBootRegisters(t *testing.T) {
	c, _ := newTestCPU()
	c.InitPostBoot(false)

	assert.Equal(t, uint16(0x01B0), c.af())
	assert.Equal(t, uint16(0x0013), c.bc())
	assert.Equal(t, uint16(0x00D8), c.de())
	assert.Equal(t, uint16(0x014D), c.hl())
	assert.Equal(t, uint16(0xFFFE), c.sp)
	assert.Equal(t, uint16(0x0100), c.pc)

	c.InitPostBoot(true)
	assert.Equal(t, uint8(0x11), c.a, "color hardware identifies itself in A")
}

func TestUnknownOpcodeIsFatal(t *testing.T) {
	c, _ := newTestCPU(0xDD)

	_, err := c.Step()
	assert.ErrorIs(t, err, ErrUnknownOpcode)
	assert.ErrorContains(t, err, "0xDD")
	assert.ErrorContains(t, err, "0x0100")
}

func TestInterruptDispatch(t *testing.T) {
	c, bus := newTestCPU(0x00)
	c.interruptsEnabled = true
	bus.mem[addr.IE] = 0x05 // vblank + timer
	bus.mem[addr.IF] = 0x05

	cycles := mustStep(t, c)

	assert.Equal(t, 20, cycles)
	assert.Equal(t, uint16(0x0040), c.pc, "vblank wins over timer")
	assert.False(t, c.interruptsEnabled)
	assert.Equal(t, uint8(0x04), bus.mem[addr.IF], "only the serviced bit is cleared")

	// return address on the stack
	assert.Equal(t, uint16(0xFFFC), c.sp)
	assert.Equal(t, byte(0x01), bus.mem[0xFFFD])
	assert.Equal(t, byte(0x00), bus.mem[0xFFFC])
}

func TestInterruptPriorityOrder(t *testing.T) {
	for _, tc := range []struct {
		pending uint8
		vector  uint16
	}{
		{0x1F, 0x0040},
		{0x1E, 0x0048},
		{0x1C, 0x0050},
		{0x18, 0x0058},
		{0x10, 0x0060},
	} {
		c, bus := newTestCPU(0x00)
		c.interruptsEnabled = true
		bus.mem[addr.IE] = 0x1F
		bus.mem[addr.IF] = tc.pending

		mustStep(t, c)
		assert.Equal(t, tc.vector, c.pc, "pending 0x%02X", tc.pending)
	}
}

func TestInterruptMaskedByIE(t *testing.T) {
	c, bus := newTestCPU(0x00)
	c.interruptsEnabled = true
	bus.mem[addr.IE] = 0x00
	bus.mem[addr.IF] = 0x1F

	cycles := mustStep(t, c)
	assert.Equal(t, 4, cycles, "plain NOP, nothing dispatched")
	assert.Equal(t, uint16(0x0101), c.pc)
}

func TestHaltWakesWithoutDispatchWhenIMEOff(t *testing.T) {
	c, bus := newTestCPU(0x00)
	c.halted = true
	bus.mem[addr.IE] = 0x04
	bus.mem[addr.IF] = 0x04

	mustStep(t, c)
	assert.False(t, c.halted)
	assert.Equal(t, uint16(0x0101), c.pc, "execution resumes in place")
	assert.Equal(t, byte(0x04), bus.mem[addr.IF], "request stays set")
}

func TestHaltedCPUConsumesIdleCycles(t *testing.T) {
	c, _ := newTestCPU(0x00)
	c.halted = true

	cycles := mustStep(t, c)
	assert.Equal(t, 4, cycles)
	assert.True(t, c.halted)
	assert.Equal(t, uint16(0x0100), c.pc)
}

func TestHaltBugDoublesNextByte(t *testing.T) {
	// HALT with IME off and an interrupt already pending does not halt;
	// the next fetch fails to advance PC so INC A runs twice.
	c, bus := newTestCPU(0x76, 0x3C, 0x00)
	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01

	mustStep(t, c) // HALT
	assert.False(t, c.halted)
	assert.True(t, c.haltBug)

	mustStep(t, c) // INC A, PC stuck
	assert.Equal(t, uint8(1), c.a)
	assert.Equal(t, uint16(0x0101), c.pc)

	mustStep(t, c) // INC A again
	assert.Equal(t, uint8(2), c.a)
	assert.Equal(t, uint16(0x0102), c.pc)
}

func TestEITakesEffectAfterNextInstruction(t *testing.T) {
	c, _ := newTestCPU(0xFB, 0x00, 0x00) // EI; NOP; NOP

	mustStep(t, c)
	assert.False(t, c.interruptsEnabled, "not yet after EI itself")

	mustStep(t, c)
	assert.True(t, c.interruptsEnabled, "enabled after the following instruction")
}

func TestEIDelayDefersDispatchByOneInstruction(t *testing.T) {
	c, bus := newTestCPU(0xFB, 0x3C, 0x00) // EI; INC A; NOP
	bus.mem[addr.IE] = 0x01
	bus.mem[addr.IF] = 0x01

	mustStep(t, c) // EI
	mustStep(t, c) // INC A still runs
	assert.Equal(t, uint8(1), c.a)

	mustStep(t, c) // now the interrupt goes
	assert.Equal(t, uint16(0x0040), c.pc)
}

func TestDICancelsPendingEI(t *testing.T) {
	c, _ := newTestCPU(0xFB, 0xF3, 0x00) // EI; DI; NOP

	mustStep(t, c)
	mustStep(t, c)
	mustStep(t, c)
	assert.False(t, c.interruptsEnabled)
}

func TestRETIEnablesInterruptsImmediately(t *testing.T) {
	c, bus := newTestCPU(0xD9) // RETI
	c.sp = 0xFFFC
	bus.mem[0xFFFC] = 0x34
	bus.mem[0xFFFD] = 0x12

	cycles := mustStep(t, c)
	assert.Equal(t, 16, cycles)
	assert.Equal(t, uint16(0x1234), c.pc)
	assert.True(t, c.interruptsEnabled)
}

func TestStopEntersLowPowerState(t *testing.T) {
	c, _ := newTestCPU(0x10, 0x00, 0x3C) // STOP 00; INC A

	mustStep(t, c)
	assert.True(t, c.stopped)
	assert.Equal(t, uint16(0x0102), c.pc, "padding byte skipped")

	// stays stopped while no input arrives
	mustStep(t, c)
	assert.True(t, c.stopped)
	assert.Equal(t, uint8(0), c.a)
}

func TestStopWakesOnJoypadRequest(t *testing.T) {
	c, bus := newTestCPU(0x10, 0x00, 0x3C)
	mustStep(t, c)
	assert.True(t, c.stopped)

	bus.mem[addr.IF] = addr.JoypadInterrupt.Mask()
	mustStep(t, c) // wake, no execution this step
	assert.False(t, c.stopped)

	mustStep(t, c)
	assert.Equal(t, uint8(1), c.a)
}

func TestStopPerformsArmedSpeedSwitch(t *testing.T) {
	c, bus := newTestCPU(0x10, 0x00, 0x3C)
	bus.canSwitch = true

	mustStep(t, c)
	assert.False(t, c.stopped, "switch instead of stopping")

	mustStep(t, c)
	assert.Equal(t, uint8(1), c.a, "execution continues past the switch")
}

func TestPopAFMasksLowFlagBits(t *testing.T) {
	c, bus := newTestCPU(0xF1) // POP AF
	c.sp = 0xFFFC
	bus.mem[0xFFFC] = 0xFF
	bus.mem[0xFFFD] = 0x12

	mustStep(t, c)
	assert.Equal(t, uint16(0x12F0), c.af(), "low nibble of F does not exist")
}
