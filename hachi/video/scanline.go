package video

import (
	"github.com/hachiemu/hachi/hachi/addr"
	"github.com/hachiemu/hachi/hachi/bit"
)

// renderScanline composites the background, window and sprite layers for
// the current line into the framebuffer.
func (g *GPU) renderScanline() {
	lcdc := g.mem.IOPeek(addr.LCDC)
	cgb := g.mem.CGB()

	// per-pixel background state consumed by sprite priority
	var bgIndex [FramebufferWidth]uint8
	var bgPriority [FramebufferWidth]bool

	// On the original model LCDC bit 0 blanks the background entirely;
	// on color hardware the background always draws and the bit instead
	// demotes its priority over sprites.
	if cgb || bit.IsSet(bgDisplay, lcdc) {
		g.drawBackground(lcdc, cgb, &bgIndex, &bgPriority)
		if bit.IsSet(windowDisplayEnable, lcdc) {
			g.drawWindow(lcdc, cgb, &bgIndex, &bgPriority)
		}
	} else {
		g.framebuffer.FillRow(g.line, WhiteColor)
	}

	if bit.IsSet(spriteDisplayEnable, lcdc) {
		g.drawSprites(lcdc, cgb, &bgIndex, &bgPriority)
	}
}

// tileDataAddress resolves a tile number to its pattern address using
// the LCDC addressing mode: unsigned from 0x8000 or signed from 0x9000.
func tileDataAddress(lcdc byte, tileNumber uint8) uint16 {
	if bit.IsSet(bgWindowTileDataSelect, lcdc) {
		return addr.TileData0 + uint16(tileNumber)*16
	}
	return uint16(0x9000 + int(int8(tileNumber))*16)
}

func (g *GPU) drawBackground(lcdc byte, cgb bool, bgIndex *[FramebufferWidth]uint8, bgPriority *[FramebufferWidth]bool) {
	scy := g.mem.IOPeek(addr.SCY)
	scx := g.mem.IOPeek(addr.SCX)
	bgp := g.mem.IOPeek(addr.BGP)

	mapBase := addr.TileMap0
	if bit.IsSet(bgTileMapSelect, lcdc) {
		mapBase = addr.TileMap1
	}

	y := int(uint8(g.line) + scy)
	mapRow := y / 8

	for x := 0; x < FramebufferWidth; x++ {
		bx := int(uint8(x) + scx)
		mapAddr := mapBase + uint16(mapRow*32+bx/8)

		tileNumber := g.mem.VRAMBankRead(0, mapAddr)
		var attr uint8
		if cgb {
			attr = g.mem.VRAMBankRead(1, mapAddr)
		}

		rowInTile := y % 8
		if bit.IsSet(6, attr) {
			rowInTile = 7 - rowInTile
		}
		rowAddr := tileDataAddress(lcdc, tileNumber) + uint16(rowInTile*2)
		bank := int(attr >> 3 & 0x01)
		row := TileRow{
			Low:  g.mem.VRAMBankRead(bank, rowAddr),
			High: g.mem.VRAMBankRead(bank, rowAddr+1),
		}

		var index int
		if bit.IsSet(5, attr) {
			index = row.GetPixelFlipped(bx % 8)
		} else {
			index = row.GetPixel(bx % 8)
		}

		bgIndex[x] = uint8(index)
		bgPriority[x] = bit.IsSet(7, attr)

		if cgb {
			g.framebuffer.SetPixel(x, g.line, cgbPaletteColor(g.mem.BGPaletteRAM(), int(attr&0x07), index))
		} else {
			g.framebuffer.SetPixel(x, g.line, dmgColor(bgp, index))
		}
	}
}

// drawWindow overlays the window layer. The window keeps its own line
// counter: it advances only on lines where the window actually drew, so
// toggling it mid-frame resumes rather than skips.
func (g *GPU) drawWindow(lcdc byte, cgb bool, bgIndex *[FramebufferWidth]uint8, bgPriority *[FramebufferWidth]bool) {
	wy := int(g.mem.IOPeek(addr.WY))
	wx := int(g.mem.IOPeek(addr.WX)) - 7
	if g.line < wy || wx >= FramebufferWidth {
		return
	}
	bgp := g.mem.IOPeek(addr.BGP)

	mapBase := addr.TileMap0
	if bit.IsSet(windowTileMapSelect, lcdc) {
		mapBase = addr.TileMap1
	}

	y := g.windowLine
	mapRow := y / 8
	drawn := false

	for x := max(wx, 0); x < FramebufferWidth; x++ {
		wxOffset := x - wx
		mapAddr := mapBase + uint16(mapRow*32+wxOffset/8)

		tileNumber := g.mem.VRAMBankRead(0, mapAddr)
		var attr uint8
		if cgb {
			attr = g.mem.VRAMBankRead(1, mapAddr)
		}

		rowInTile := y % 8
		if bit.IsSet(6, attr) {
			rowInTile = 7 - rowInTile
		}
		rowAddr := tileDataAddress(lcdc, tileNumber) + uint16(rowInTile*2)
		bank := int(attr >> 3 & 0x01)
		row := TileRow{
			Low:  g.mem.VRAMBankRead(bank, rowAddr),
			High: g.mem.VRAMBankRead(bank, rowAddr+1),
		}

		var index int
		if bit.IsSet(5, attr) {
			index = row.GetPixelFlipped(wxOffset % 8)
		} else {
			index = row.GetPixel(wxOffset % 8)
		}

		bgIndex[x] = uint8(index)
		bgPriority[x] = bit.IsSet(7, attr)

		if cgb {
			g.framebuffer.SetPixel(x, g.line, cgbPaletteColor(g.mem.BGPaletteRAM(), int(attr&0x07), index))
		} else {
			g.framebuffer.SetPixel(x, g.line, dmgColor(bgp, index))
		}
		drawn = true
	}

	if drawn {
		g.windowLine++
	}
}

func (g *GPU) drawSprites(lcdc byte, cgb bool, bgIndex *[FramebufferWidth]uint8, bgPriority *[FramebufferWidth]bool) {
	obp0 := g.mem.IOPeek(addr.OBP0)
	obp1 := g.mem.IOPeek(addr.OBP1)

	for i := range g.lineSprites {
		sprite := &g.lineSprites[i]

		rowInSprite := g.line - sprite.Y
		if sprite.FlipY {
			rowInSprite = sprite.Height - 1 - rowInSprite
		}

		tileIndex := sprite.TileIndex
		if sprite.Height == 16 {
			// tall sprites use an aligned tile pair
			tileIndex &^= 0x01
		}
		rowAddr := addr.TileData0 + uint16(tileIndex)*16 + uint16(rowInSprite*2)

		bank := 0
		if cgb {
			bank = sprite.VRAMBank
		}
		row := TileRow{
			Low:  g.mem.VRAMBankRead(bank, rowAddr),
			High: g.mem.VRAMBankRead(bank, rowAddr+1),
		}

		for pixelX := 0; pixelX < 8; pixelX++ {
			x := sprite.X + pixelX
			if x < 0 || x >= FramebufferWidth {
				continue
			}
			if !sprite.HasPriorityForPixel(pixelX) {
				continue
			}

			var index int
			if sprite.FlipX {
				index = row.GetPixelFlipped(pixelX)
			} else {
				index = row.GetPixel(pixelX)
			}
			if index == 0 {
				// color 0 is transparent for sprites
				continue
			}

			if cgb {
				// LCDC bit 0 clear lifts all sprites above the background
				if bit.IsSet(bgDisplay, lcdc) && bgIndex[x] != 0 &&
					(sprite.BehindBG || bgPriority[x]) {
					continue
				}
				g.framebuffer.SetPixel(x, g.line, cgbPaletteColor(g.mem.OBJPaletteRAM(), sprite.Palette, index))
				continue
			}

			if sprite.BehindBG && bgIndex[x] != 0 {
				continue
			}
			palette := obp0
			if sprite.PaletteOBP1 {
				palette = obp1
			}
			g.framebuffer.SetPixel(x, g.line, dmgColor(palette, index))
		}
	}
}
