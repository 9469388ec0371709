package system

import "invaders/internal/memory"

// Display geometry of the video RAM bitmap
const (
	DisplayWidth     = 224
	DisplayHeight    = 256
	DefaultBlockSize = 3
)

// Color is an RGB draw color
type Color struct {
	R, G, B uint8
}

// Palette of the cabinet's colored overlay strips
var (
	Black = Color{0x00, 0x00, 0x00}
	Red   = Color{0xFF, 0x00, 0x00}
	Green = Color{0x00, 0xFF, 0x00}
	White = Color{0xFF, 0xFF, 0xFF}
)

// BandColor returns the overlay color for a pixel whose video byte starts
// at row
func BandColor(row int) Color {
	switch {
	case row > 200 && row < 220:
		return Red
	case row < 80:
		return Green
	default:
		return White
	}
}

// Render draws the video RAM of ram onto canvas and presents it.
// Video RAM is column-major: each column is 32 bytes of 8 vertically
// stacked pixels, least significant bit first. The image is drawn rotated
// so that the bottom of memory is the top of the screen.
func Render(canvas Canvas, ram *memory.RAM, blockSize int) error {
	canvas.SetColor(Black.R, Black.G, Black.B)
	canvas.Clear()

	video := ram.VideoRAM()
	current := Black
	for i, value := range video {
		if value == 0 {
			continue
		}

		column := i / (DisplayHeight / 8)
		row := (i % (DisplayHeight / 8)) * 8

		color := BandColor(row)
		if color != current {
			canvas.SetColor(color.R, color.G, color.B)
			current = color
		}

		for bit := 0; bit < 8; bit++ {
			if value&(1<<bit) == 0 {
				continue
			}
			x := column * blockSize
			y := (DisplayHeight - row - bit) * blockSize
			canvas.FillRect(x, y, blockSize, blockSize)
		}
	}

	return canvas.Present()
}
