// Package debug provides frame and machine state dumping utilities
package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"invaders/internal/memory"
	"invaders/internal/system"
)

// Characters used for the overlay bands in text dumps
var bandGlyphs = map[system.Color]byte{
	system.Black: '.',
	system.Red:   'R',
	system.Green: 'G',
	system.White: '#',
}

// TextCanvas is a one character per pixel canvas. It draws exactly what a
// block size of one puts on screen.
type TextCanvas struct {
	width  int
	height int
	cells  []byte
	glyph  byte
}

// NewTextCanvas creates a blank canvas of the given size
func NewTextCanvas(width, height int) *TextCanvas {
	tc := &TextCanvas{
		width:  width,
		height: height,
		cells:  make([]byte, width*height),
		glyph:  '.',
	}
	tc.Clear()
	return tc
}

// Clear fills the canvas with the current glyph
func (tc *TextCanvas) Clear() {
	for i := range tc.cells {
		tc.cells[i] = tc.glyph
	}
}

// SetColor selects the glyph for the overlay band of r, g, b
func (tc *TextCanvas) SetColor(r, g, b uint8) {
	if glyph, ok := bandGlyphs[system.Color{R: r, G: g, B: b}]; ok {
		tc.glyph = glyph
	} else {
		tc.glyph = '?'
	}
}

// FillRect fills a rectangle, discarding cells outside the canvas
func (tc *TextCanvas) FillRect(x, y, width, height int) {
	for row := y; row < y+height; row++ {
		if row < 0 || row >= tc.height {
			continue
		}
		for col := x; col < x+width; col++ {
			if col < 0 || col >= tc.width {
				continue
			}
			tc.cells[row*tc.width+col] = tc.glyph
		}
	}
}

// Present is a no-op
func (tc *TextCanvas) Present() error {
	return nil
}

// At returns the glyph at x, y
func (tc *TextCanvas) At(x, y int) byte {
	return tc.cells[y*tc.width+x]
}

// Histogram counts cells per glyph
func (tc *TextCanvas) Histogram() map[byte]int {
	counts := make(map[byte]int)
	for _, cell := range tc.cells {
		counts[cell]++
	}
	return counts
}

// WriteTo writes the canvas as text, one line per row
func (tc *TextCanvas) WriteTo(w io.Writer) (int64, error) {
	out := bufio.NewWriter(w)
	var written int64
	for y := 0; y < tc.height; y++ {
		n, _ := out.Write(tc.cells[y*tc.width : (y+1)*tc.width])
		written += int64(n)
		out.WriteByte('\n')
		written++
	}
	return written, out.Flush()
}

// FrameDumper writes video RAM snapshots as text files
type FrameDumper struct {
	outputDir    string
	dumpEnabled  bool
	dumpCount    int
	maxDumps     int
	dumpInterval int // Dump every N frames
	dumped       []string
}

// NewFrameDumper creates a new frame dumper
func NewFrameDumper(outputDir string) *FrameDumper {
	return &FrameDumper{
		outputDir:    outputDir,
		dumpEnabled:  false,
		maxDumps:     10,
		dumpInterval: 1,
	}
}

// Enable activates frame dumping
func (fd *FrameDumper) Enable() error {
	if err := os.MkdirAll(fd.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	fd.dumpEnabled = true
	return nil
}

// Disable deactivates frame dumping
func (fd *FrameDumper) Disable() {
	fd.dumpEnabled = false
}

// SetMaxDumps sets the maximum number of frames to dump
func (fd *FrameDumper) SetMaxDumps(max int) {
	fd.maxDumps = max
}

// SetDumpInterval sets the interval between frame dumps
func (fd *FrameDumper) SetDumpInterval(interval int) {
	if interval > 0 {
		fd.dumpInterval = interval
	}
}

// DumpedFiles returns the files written so far
func (fd *FrameDumper) DumpedFiles() []string {
	return fd.dumped
}

// DumpFrame is a frame hook: it dumps the system's video RAM when the
// current frame is due
func (fd *FrameDumper) DumpFrame(sys *system.System) error {
	return fd.DumpVideoRAM(sys.CPU().Memory(), sys.Frame())
}

// DumpVideoRAM writes the rendered screen and a band histogram to a file
func (fd *FrameDumper) DumpVideoRAM(ram *memory.RAM, frameNum uint64) error {
	if !fd.dumpEnabled {
		return nil
	}

	// Check if we should dump this frame
	if frameNum%uint64(fd.dumpInterval) != 0 {
		return nil
	}

	// Check if we've exceeded max dumps
	if fd.dumpCount >= fd.maxDumps {
		return nil
	}

	filename := fmt.Sprintf("frame_%06d.txt", frameNum)
	filePath := filepath.Join(fd.outputDir, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create frame dump file: %w", err)
	}
	defer file.Close()

	if err := WriteFrame(file, ram, frameNum); err != nil {
		return fmt.Errorf("failed to write frame dump: %w", err)
	}

	fd.dumpCount++
	fd.dumped = append(fd.dumped, filePath)
	return nil
}

// WriteFrame renders video RAM as text followed by a band histogram
func WriteFrame(w io.Writer, ram *memory.RAM, frameNum uint64) error {
	canvas := NewTextCanvas(system.DisplayWidth, system.DisplayHeight)
	if err := system.Render(canvas, ram, 1); err != nil {
		return err
	}

	fmt.Fprintf(w, "Video RAM Dump\n")
	fmt.Fprintf(w, "Frame Number: %d\n", frameNum)
	fmt.Fprintf(w, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Dimensions: %dx%d\n", system.DisplayWidth, system.DisplayHeight)
	fmt.Fprintf(w, "===================\n\n")

	if _, err := canvas.WriteTo(w); err != nil {
		return err
	}

	// Band frequency analysis
	total := system.DisplayWidth * system.DisplayHeight
	histogram := canvas.Histogram()
	fmt.Fprintf(w, "\nBand   | Count | Percentage\n")
	fmt.Fprintf(w, "-------|-------|----------\n")
	for _, glyph := range []byte{'.', 'G', 'R', '#'} {
		fmt.Fprintf(w, "%-6c | %5d | %6.2f%%\n", glyph, histogram[glyph], float64(histogram[glyph])/float64(total)*100)
	}

	return nil
}
