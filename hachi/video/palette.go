package video

// The four shades of the original hardware, as ARGB.
const (
	WhiteColor     uint32 = 0xFFFFFFFF
	LightGreyColor uint32 = 0xFF989898
	DarkGreyColor  uint32 = 0xFF4C4C4C
	BlackColor     uint32 = 0xFF000000
)

var dmgShades = [4]uint32{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}

// dmgColor resolves a 2-bit color index through an 8-bit palette
// register (BGP, OBP0 or OBP1): each index selects a 2-bit shade.
func dmgColor(palette uint8, index int) uint32 {
	return dmgShades[palette>>(index*2)&0x03]
}

// cgbColor converts a little-endian RGB555 palette RAM entry to ARGB.
// Each 5-bit channel is widened to 8 bits by repeating its top bits.
func cgbColor(lo, hi uint8) uint32 {
	raw := uint16(hi)<<8 | uint16(lo)
	r := uint32(raw & 0x1F)
	g := uint32(raw >> 5 & 0x1F)
	b := uint32(raw >> 10 & 0x1F)
	r = r<<3 | r>>2
	g = g<<3 | g>>2
	b = b<<3 | b>>2
	return 0xFF000000 | r<<16 | g<<8 | b
}

// cgbPaletteColor resolves a color index through one of the eight
// 4-color palettes held in palette RAM.
func cgbPaletteColor(ram *[64]byte, palette, index int) uint32 {
	offset := palette*8 + index*2
	return cgbColor(ram[offset], ram[offset+1])
}
