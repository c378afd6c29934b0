package hachi

import (
	"github.com/hachiemu/hachi/hachi/cpu"
	"github.com/hachiemu/hachi/hachi/memory"
	"github.com/hachiemu/hachi/hachi/video"
)

// Bus wires the processor, memory unit and display controller together
// and owns the master cycle counter. One Step is one processor step;
// every peripheral is then advanced by the cycles it consumed, so all
// subsystems observe the same global cycle order.
type Bus struct {
	cpu *cpu.CPU
	mem *memory.MMU
	gpu *video.GPU

	cycles uint64
}

func NewBus(mem *memory.MMU) *Bus {
	return &Bus{
		cpu: cpu.New(mem),
		mem: mem,
		gpu: video.New(mem),
	}
}

// Step executes one processor step and settles the timer, serial port,
// display and OAM DMA behind it. In double-speed mode the processor and
// timer run at twice the dot clock, so the display sees half the cycles.
func (b *Bus) Step() (int, error) {
	cycles, err := b.cpu.Step()
	if err != nil {
		return 0, err
	}

	b.mem.Tick(cycles)

	dotCycles := cycles
	if b.mem.DoubleSpeed() {
		dotCycles = cycles / 2
	}
	b.gpu.Tick(dotCycles)

	// OAM DMA copies one byte per machine cycle at processor speed
	b.mem.TickDMA(cycles)

	b.cycles += uint64(cycles)
	return cycles, nil
}

// Cycles returns the total cycles executed since power-on.
func (b *Bus) Cycles() uint64 { return b.cycles }

// CPU returns the processor.
func (b *Bus) CPU() *cpu.CPU { return b.cpu }

// GPU returns the display controller.
func (b *Bus) GPU() *video.GPU { return b.gpu }

// Memory returns the memory unit.
func (b *Bus) Memory() *memory.MMU { return b.mem }
