package video

import (
	"log/slog"

	"github.com/hachiemu/hachi/hachi/addr"
	"github.com/hachiemu/hachi/hachi/bit"
	"github.com/hachiemu/hachi/hachi/memory"
)

// Mode is the display controller state, as exposed in STAT bits 1-0.
type Mode uint8

const (
	HBlank Mode = iota
	VBlank
	OAMScan
	PixelTransfer
)

func (m Mode) String() string {
	switch m {
	case HBlank:
		return "hblank"
	case VBlank:
		return "vblank"
	case OAMScan:
		return "oamscan"
	case PixelTransfer:
		return "transfer"
	}
	return "unknown"
}

const (
	oamScanDots      = 80
	baseTransferDots = 172
	maxTransferDots  = 289
	lineDots         = 456
	visibleLines     = 144
	linesPerFrame    = 154
	frameDots        = lineDots * linesPerFrame

	spriteFetchPenalty = 6
	windowFetchPenalty = 6
)

// LCDC bit positions.
const (
	lcdDisplayEnable       = 7
	windowTileMapSelect    = 6
	windowDisplayEnable    = 5
	bgWindowTileDataSelect = 4
	bgTileMapSelect        = 3
	spriteSizeSelect       = 2
	spriteDisplayEnable    = 1
	bgDisplay              = 0
)

// GPU drives the scanline state machine: for each visible line an OAM
// scan, a pixel transfer of variable length, then horizontal blank to
// the 456-dot line boundary; lines 144-153 are vertical blank. Rendering
// happens a whole scanline at a time when pixel transfer completes.
type GPU struct {
	mem *memory.MMU
	oam *OAM

	framebuffer *FrameBuffer
	snapshot    []uint32
	frames      uint64

	enabled      bool
	mode         Mode
	line         int
	dots         int
	transferDots int
	windowLine   int
	statLine     bool

	lineSprites []Sprite
}

func New(mem *memory.MMU) *GPU {
	g := &GPU{
		mem:         mem,
		oam:         NewOAM(mem),
		framebuffer: NewFrameBuffer(),
		snapshot:    make([]uint32, FramebufferWidth*FramebufferHeight),
		enabled:     true,
		mode:        OAMScan,
	}
	return g
}

// Tick advances the display by the given number of dots.
func (g *GPU) Tick(cycles int) {
	if !bit.IsSet(lcdDisplayEnable, g.mem.IOPeek(addr.LCDC)) {
		if g.enabled {
			g.disable()
		}
		// keep frame pacing alive while the screen is off
		g.dots += cycles
		if g.dots >= frameDots {
			g.dots -= frameDots
			g.publishFrame()
		}
		return
	}
	if !g.enabled {
		g.enable()
	}

	g.dots += cycles

	for {
		switch g.mode {
		case OAMScan:
			if g.dots < oamScanDots {
				return
			}
			g.lineSprites = g.oam.GetSpritesForScanline(g.line, g.mem.CGB())
			g.transferDots = g.transferLength()
			g.setMode(PixelTransfer)

		case PixelTransfer:
			if g.dots < oamScanDots+g.transferDots {
				return
			}
			g.renderScanline()
			g.setMode(HBlank)

		case HBlank:
			if g.dots < lineDots {
				return
			}
			g.dots -= lineDots
			g.advanceLine()
			if g.line == visibleLines {
				g.setMode(VBlank)
				g.mem.RequestInterrupt(addr.VBlankInterrupt)
				g.publishFrame()
			} else {
				g.setMode(OAMScan)
			}

		case VBlank:
			if g.dots < lineDots {
				return
			}
			g.dots -= lineDots
			g.advanceLine()
			if g.line == 0 {
				g.windowLine = 0
				g.setMode(OAMScan)
			}
		}
	}
}

// transferLength computes the pixel transfer duration for the current
// line: the base cost plus a fetch stall per sprite and one for the
// window when it is active on this line.
func (g *GPU) transferLength() int {
	dots := baseTransferDots + spriteFetchPenalty*len(g.lineSprites)
	if g.windowVisibleOnLine() {
		dots += windowFetchPenalty
	}
	if dots > maxTransferDots {
		dots = maxTransferDots
	}
	return dots
}

func (g *GPU) windowVisibleOnLine() bool {
	lcdc := g.mem.IOPeek(addr.LCDC)
	if !bit.IsSet(windowDisplayEnable, lcdc) {
		return false
	}
	wy := int(g.mem.IOPeek(addr.WY))
	wx := int(g.mem.IOPeek(addr.WX))
	return g.line >= wy && wx <= 166
}

func (g *GPU) advanceLine() {
	g.line = (g.line + 1) % linesPerFrame
	g.mem.SetLY(uint8(g.line))
	g.syncSTAT()
}

func (g *GPU) setMode(mode Mode) {
	g.mode = mode
	g.syncSTAT()
}

// syncSTAT publishes the mode and coincidence bits and evaluates the
// STAT interrupt. All enabled conditions share one internal line; the
// interrupt fires only on its rising edge, so an already-high line
// swallows further conditions until every source goes low.
func (g *GPU) syncSTAT() {
	stat := g.mem.IOPeek(addr.STAT)
	coincidence := g.line == int(g.mem.IOPeek(addr.LYC))

	bits := uint8(g.mode)
	if coincidence {
		bits |= 0x04
	}
	g.mem.SetSTATBits(bits)

	line := coincidence && bit.IsSet(6, stat)
	switch g.mode {
	case HBlank:
		line = line || bit.IsSet(3, stat)
	case VBlank:
		line = line || bit.IsSet(4, stat)
	case OAMScan:
		line = line || bit.IsSet(5, stat)
	}

	if line && !g.statLine {
		g.mem.RequestInterrupt(addr.LCDSTATInterrupt)
	}
	g.statLine = line
}

func (g *GPU) enable() {
	g.enabled = true
	g.mode = OAMScan
	g.line = 0
	g.dots = 0
	g.windowLine = 0
	g.statLine = false
	g.mem.SetLY(0)
	g.syncSTAT()
	slog.Debug("lcd enabled")
}

func (g *GPU) disable() {
	g.enabled = false
	g.mode = HBlank
	g.line = 0
	g.dots = 0
	g.statLine = false
	g.mem.SetLY(0)
	g.mem.SetSTATBits(0)
	g.framebuffer.Fill(WhiteColor)
	slog.Debug("lcd disabled")
}

func (g *GPU) publishFrame() {
	g.framebuffer.CopyInto(g.snapshot)
	g.frames++
}

// Frames returns the number of frames completed so far.
func (g *GPU) Frames() uint64 { return g.frames }

// Snapshot returns the most recently completed frame. The slice is
// reused between frames; callers that keep it must copy.
func (g *GPU) Snapshot() []uint32 { return g.snapshot }

// Mode returns the current controller mode.
func (g *GPU) Mode() Mode { return g.mode }

// Line returns the scanline the controller is processing.
func (g *GPU) Line() int { return g.line }
