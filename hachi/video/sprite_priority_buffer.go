package video

// SpritePriorityBuffer resolves sprite-to-sprite priority with a
// per-pixel ownership model instead of sorting. During the OAM scan each
// candidate sprite tries to claim the screen pixels it covers; at render
// time a sprite only draws the pixels it owns.
//
// Classic priority rules: the sprite with the lower X coordinate wins a
// pixel, and on equal X the lower OAM index wins. Color hardware ignores
// X and uses OAM index alone; callers get that behavior by claiming with
// a constant X for every sprite, which makes every contest an OAM-index
// tiebreak.
type SpritePriorityBuffer struct {
	ownerIndex [FramebufferWidth]int
	ownerX     [FramebufferWidth]int
}

// Clear resets ownership for a new scanline.
func (s *SpritePriorityBuffer) Clear() {
	for i := range s.ownerIndex {
		s.ownerIndex[i] = -1
		s.ownerX[i] = 0xFF
	}
}

// TryClaimPixel attempts to claim a pixel for the sprite, returning
// whether the claim won.
func (s *SpritePriorityBuffer) TryClaimPixel(pixelX, spriteIndex, spriteX int) bool {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return false
	}

	if owner := s.ownerIndex[pixelX]; owner != -1 {
		if spriteX > s.ownerX[pixelX] {
			return false
		}
		if spriteX == s.ownerX[pixelX] && spriteIndex >= owner {
			return false
		}
	}

	s.ownerIndex[pixelX] = spriteIndex
	s.ownerX[pixelX] = spriteX
	return true
}

// Owner returns the OAM index that owns a pixel, or -1 if unclaimed.
func (s *SpritePriorityBuffer) Owner(pixelX int) int {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return -1
	}
	return s.ownerIndex[pixelX]
}
