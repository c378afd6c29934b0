package video

import "github.com/hachiemu/hachi/hachi/bit"

// TileRow is one 8-pixel row of a tile pattern in the two-byte
// bit-plane format: the low byte provides bit 0 of each pixel's color
// index, the high byte bit 1. Bit 7 is the leftmost pixel.
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel extracts the 2-bit color index of a pixel (0 = leftmost).
func (t TileRow) GetPixel(pixelX int) int {
	bitIndex := uint8(7 - pixelX)
	pixel := 0
	if bit.IsSet(bitIndex, t.Low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		pixel |= 2
	}
	return pixel
}

// GetPixelFlipped extracts a pixel color with the row mirrored
// horizontally, as used by the flip-X tile and sprite attributes.
func (t TileRow) GetPixelFlipped(pixelX int) int {
	return t.GetPixel(7 - pixelX)
}
