package graphics

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
)

// FrameBuffer is an in-memory RGBA canvas. Backends draw into it and then
// hand its pixels to the host. All drawing is clipped to the buffer.
type FrameBuffer struct {
	image *image.RGBA
	color color.RGBA
}

// NewFrameBuffer creates a black buffer of the given size
func NewFrameBuffer(width, height int) *FrameBuffer {
	fb := &FrameBuffer{
		image: image.NewRGBA(image.Rect(0, 0, width, height)),
		color: color.RGBA{A: 0xFF},
	}
	fb.Clear()
	return fb
}

// Clear fills the buffer with the current color
func (fb *FrameBuffer) Clear() {
	draw.Draw(fb.image, fb.image.Bounds(), image.NewUniform(fb.color), image.Point{}, draw.Src)
}

// SetColor sets the color used by Clear and FillRect
func (fb *FrameBuffer) SetColor(r, g, b uint8) {
	fb.color = color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// FillRect fills a rectangle, discarding the parts outside the buffer
func (fb *FrameBuffer) FillRect(x, y, width, height int) {
	rect := image.Rect(x, y, x+width, y+height).Intersect(fb.image.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(fb.image, rect, image.NewUniform(fb.color), image.Point{}, draw.Src)
}

// Present is a no-op; the owning backend decides when pixels are shown
func (fb *FrameBuffer) Present() error {
	return nil
}

// Size returns the buffer dimensions
func (fb *FrameBuffer) Size() (width, height int) {
	bounds := fb.image.Bounds()
	return bounds.Dx(), bounds.Dy()
}

// Pix returns the raw RGBA bytes, row-major
func (fb *FrameBuffer) Pix() []byte {
	return fb.image.Pix
}

// At returns the color of one pixel
func (fb *FrameBuffer) At(x, y int) color.RGBA {
	return fb.image.RGBAAt(x, y)
}

// Image returns the underlying image
func (fb *FrameBuffer) Image() *image.RGBA {
	return fb.image
}

// WritePPM encodes the buffer as a plain-text PPM image
func (fb *FrameBuffer) WritePPM(w io.Writer) error {
	width, height := fb.Size()
	out := bufio.NewWriter(w)

	// PPM header
	fmt.Fprintf(out, "P3\n%d %d\n255\n", width, height)

	// RGB data
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixel := fb.image.RGBAAt(x, y)
			fmt.Fprintf(out, "%d %d %d ", pixel.R, pixel.G, pixel.B)
		}
		fmt.Fprintf(out, "\n")
	}

	return out.Flush()
}
