package video

const (
	// FramebufferWidth is the visible screen width in pixels.
	FramebufferWidth = 160
	// FramebufferHeight is the visible screen height in pixels.
	FramebufferHeight = 144
)

// FrameBuffer holds one frame of ARGB pixels, row-major.
type FrameBuffer struct {
	buffer []uint32
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		buffer: make([]uint32, FramebufferWidth*FramebufferHeight),
	}
}

func (fb *FrameBuffer) GetPixel(x, y int) uint32 {
	return fb.buffer[y*FramebufferWidth+x]
}

func (fb *FrameBuffer) SetPixel(x, y int, color uint32) {
	fb.buffer[y*FramebufferWidth+x] = color
}

// Fill paints the whole frame a single color.
func (fb *FrameBuffer) Fill(color uint32) {
	for i := range fb.buffer {
		fb.buffer[i] = color
	}
}

// FillRow paints one scanline a single color.
func (fb *FrameBuffer) FillRow(y int, color uint32) {
	row := fb.buffer[y*FramebufferWidth : (y+1)*FramebufferWidth]
	for i := range row {
		row[i] = color
	}
}

// ToSlice exposes the backing pixel slice.
func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// CopyInto copies the frame into dst, which must hold a full frame.
func (fb *FrameBuffer) CopyInto(dst []uint32) {
	copy(dst, fb.buffer)
}
