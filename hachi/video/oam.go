package video

import (
	"github.com/hachiemu/hachi/hachi/addr"
	"github.com/hachiemu/hachi/hachi/bit"
	"github.com/hachiemu/hachi/hachi/memory"
)

const (
	spriteCount      = 40
	spritesPerLine   = 10
	spriteEntryBytes = 4
)

// Sprite is one object attribute entry, decoded. X and Y are screen
// coordinates with the hardware offsets (8 and 16) already removed, so
// partially off-screen sprites have negative positions.
type Sprite struct {
	Y         int
	X         int
	TileIndex uint8
	Flags     uint8
	OAMIndex  int
	Height    int

	PaletteOBP1 bool
	FlipX       bool
	FlipY       bool
	BehindBG    bool

	// color-model attributes
	Palette  int // one of eight object palettes
	VRAMBank int

	// PixelMask marks the pixels this sprite owns after sprite-to-sprite
	// priority resolution. Bit 7 is the leftmost pixel.
	PixelMask uint8
}

func (s *Sprite) parseFlags() {
	s.PaletteOBP1 = bit.IsSet(4, s.Flags)
	s.FlipX = bit.IsSet(5, s.Flags)
	s.FlipY = bit.IsSet(6, s.Flags)
	s.BehindBG = bit.IsSet(7, s.Flags)
	s.Palette = int(s.Flags & 0x07)
	s.VRAMBank = int(s.Flags >> 3 & 0x01)
}

// HasPriorityForPixel reports whether this sprite owns the pixel at the
// given X offset within the sprite (0 = leftmost).
func (s *Sprite) HasPriorityForPixel(pixelX int) bool {
	if pixelX < 0 || pixelX > 7 {
		return false
	}
	return s.PixelMask&(1<<(7-pixelX)) != 0
}

// OAM scans object attribute memory for the sprites visible on each
// scanline and resolves their pixel ownership.
type OAM struct {
	mem            *memory.MMU
	priorityBuffer SpritePriorityBuffer
	spriteBuffer   [spritesPerLine]Sprite
}

func NewOAM(mem *memory.MMU) *OAM {
	return &OAM{mem: mem}
}

// GetSpritesForScanline returns the sprites overlapping the scanline, at
// most ten, in OAM order with pixel priority pre-resolved. indexPriority
// selects the color-model rule where OAM order alone decides overlaps.
func (o *OAM) GetSpritesForScanline(scanline int, indexPriority bool) []Sprite {
	sprites := o.spriteBuffer[:0]
	o.priorityBuffer.Clear()

	height := 8
	if bit.IsSet(2, o.mem.IOPeek(addr.LCDC)) {
		height = 16
	}

	for i := 0; i < spriteCount && len(sprites) < spritesPerLine; i++ {
		base := i * spriteEntryBytes

		spriteY := int(o.mem.OAMByte(base)) - 16
		if scanline < spriteY || scanline >= spriteY+height {
			continue
		}

		sprite := Sprite{
			Y:         spriteY,
			X:         int(o.mem.OAMByte(base+1)) - 8,
			TileIndex: o.mem.OAMByte(base + 2),
			Flags:     o.mem.OAMByte(base + 3),
			OAMIndex:  i,
			Height:    height,
		}
		sprite.parseFlags()
		sprites = append(sprites, sprite)

		claimX := sprite.X
		if indexPriority {
			// constant X turns every contest into an OAM-index tiebreak
			claimX = 0
		}
		for pixelX := 0; pixelX < 8; pixelX++ {
			o.priorityBuffer.TryClaimPixel(sprite.X+pixelX, sprite.OAMIndex, claimX)
		}
	}

	for i := range sprites {
		var mask uint8
		for pixelX := 0; pixelX < 8; pixelX++ {
			if o.priorityBuffer.Owner(sprites[i].X+pixelX) == sprites[i].OAMIndex {
				mask |= 1 << (7 - pixelX)
			}
		}
		sprites[i].PixelMask = mask
	}

	return sprites
}
