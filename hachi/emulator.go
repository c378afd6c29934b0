package hachi

import (
	"log/slog"
	"os"

	"github.com/hachiemu/hachi/hachi/addr"
	"github.com/hachiemu/hachi/hachi/memory"
	"github.com/hachiemu/hachi/hachi/serial"
	"github.com/hachiemu/hachi/hachi/video"
)

// Option configures an emulator at construction.
type Option func(*Emulator) error

// WithBootROM runs the given boot image instead of starting from the
// post-boot register state.
func WithBootROM(data []byte) Option {
	return func(e *Emulator) error {
		return e.mem.LoadBootROM(data)
	}
}

// Emulator is the root struct and entry point for running the emulation.
type Emulator struct {
	bus *Bus
	mem *memory.MMU
}

// New creates an emulator with no cartridge inserted.
func New(opts ...Option) (*Emulator, error) {
	return newEmulator(memory.NewCartridge(), opts...)
}

// NewWithFile creates an emulator and loads the ROM image at path.
func NewWithFile(path string, opts ...Option) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewWithData(data, opts...)
}

// NewWithData creates an emulator from a ROM image already in memory.
func NewWithData(data []byte, opts ...Option) (*Emulator, error) {
	cart, err := memory.NewCartridgeWithData(data)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded cartridge",
		"title", cart.Title(),
		"type", cart.Type().String(),
		"romBanks", cart.ROMBanks(),
		"ramBanks", cart.RAMBanks(),
		"cgb", cart.CGB())
	return newEmulator(cart, opts...)
}

func newEmulator(cart *memory.Cartridge, opts ...Option) (*Emulator, error) {
	e := &Emulator{mem: memory.NewWithCartridge(cart)}
	e.bus = NewBus(e.mem)

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	if !e.mem.BootROMMapped() {
		e.bus.CPU().InitPostBoot(e.mem.CGB())
		e.initializeMemory()
	}
	return e, nil
}

// initializeMemory reproduces the I/O register state the boot sequence
// leaves behind, for running without a boot image.
func (e *Emulator) initializeMemory() {
	e.mem.SetTimerSeed(0xABCC)

	for _, reg := range []struct {
		address uint16
		value   byte
	}{
		{addr.TIMA, 0x00},
		{addr.TMA, 0x00},
		{addr.TAC, 0x00},
		{addr.IF, 0x01},
		{addr.LCDC, 0x91},
		{addr.SCY, 0x00},
		{addr.SCX, 0x00},
		{addr.LYC, 0x00},
		{addr.BGP, 0xFC},
		{addr.OBP0, 0xFF},
		{addr.OBP1, 0xFF},
		{addr.WY, 0x00},
		{addr.WX, 0x00},
		{addr.IE, 0x00},
	} {
		e.mem.Write(reg.address, reg.value)
	}
}

// Step executes one processor step, returning the cycles consumed.
func (e *Emulator) Step() (int, error) {
	return e.bus.Step()
}

// RunUntilFrame executes until the display completes the next frame.
func (e *Emulator) RunUntilFrame() error {
	target := e.bus.GPU().Frames() + 1
	for e.bus.GPU().Frames() < target {
		if _, err := e.bus.Step(); err != nil {
			return err
		}
	}
	return nil
}

// GetCurrentFrame returns a copy of the most recently completed frame.
func (e *Emulator) GetCurrentFrame() []uint32 {
	src := e.bus.GPU().Snapshot()
	frame := make([]uint32, len(src))
	copy(frame, src)
	return frame
}

// SetButton presses or releases a button.
func (e *Emulator) SetButton(button memory.Button, pressed bool) {
	e.mem.Joypad().Set(button, pressed)
}

// SerialOutput returns the bytes the program has written to the serial
// port, when the default logging peer is attached.
func (e *Emulator) SerialOutput() []byte {
	if sink, ok := e.mem.SerialPort().(*serial.LogSink); ok {
		return sink.Output()
	}
	return nil
}

// ExportSave returns battery-backed cartridge RAM, or nil if the
// cartridge has none.
func (e *Emulator) ExportSave() []byte { return e.mem.ExportSave() }

// ImportSave restores battery-backed cartridge RAM.
func (e *Emulator) ImportSave(data []byte) { e.mem.ImportSave(data) }

// Frames returns the number of frames completed so far.
func (e *Emulator) Frames() uint64 { return e.bus.GPU().Frames() }

// Bus returns the underlying bus, for debugging and tests.
func (e *Emulator) Bus() *Bus { return e.bus }

// Memory returns the memory unit.
func (e *Emulator) Memory() *memory.MMU { return e.mem }

// GPU returns the display controller.
func (e *Emulator) GPU() *video.GPU { return e.bus.GPU() }
