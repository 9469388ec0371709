package graphics

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"invaders/internal/input"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow implements the Window interface without a display. Frames
// are drawn into memory and selected ones are written out as PPM images.
type HeadlessWindow struct {
	*FrameBuffer

	title      string
	width      int
	height     int
	running    bool
	frameCount int
	outputPath string
	dumpFrames map[int]bool
	dumped     []string
	events     *input.Queue
	debug      bool
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a headless "window" (no actual window)
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	outputPath := b.config.OutputDir
	if outputPath == "" {
		outputPath = "frame_output"
	}

	dumpFrames := make(map[int]bool, len(b.config.DumpFrames))
	for _, frame := range b.config.DumpFrames {
		dumpFrames[frame] = true
	}

	return &HeadlessWindow{
		FrameBuffer: NewFrameBuffer(width, height),
		title:       title,
		width:       width,
		height:      height,
		running:     true,
		outputPath:  outputPath,
		dumpFrames:  dumpFrames,
		events:      input.NewQueue(),
		debug:       b.config.Debug,
	}, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// HeadlessWindow implementation

// SetTitle sets the window title (for logging purposes)
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// GetSize returns window dimensions
func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns events injected with Notify
func (w *HeadlessWindow) PollEvents() []input.Event {
	return w.events.PollEvents()
}

// Notify injects an event, used for scripted input
func (w *HeadlessWindow) Notify(event input.Event) {
	w.events.Notify(event)
}

// Present counts the frame and saves it when it was selected for dumping
func (w *HeadlessWindow) Present() error {
	w.frameCount++

	if w.dumpFrames[w.frameCount] {
		filename := filepath.Join(w.outputPath, fmt.Sprintf("frame_%03d.ppm", w.frameCount))
		return w.SaveFrameAsPPM(filename)
	}

	return nil
}

// SaveFrameAsPPM saves the current frame as a PPM image file
func (w *HeadlessWindow) SaveFrameAsPPM(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer file.Close()

	if err := w.FrameBuffer.WritePPM(file); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	w.dumped = append(w.dumped, filename)
	if w.debug {
		log.Printf("[HEADLESS] Saved frame %d to %s", w.frameCount, filename)
	}
	return nil
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// SetOutputPath sets the output path for frame dumps
func (w *HeadlessWindow) SetOutputPath(path string) {
	w.outputPath = path
}

// DumpFrame selects a frame number to be saved when presented
func (w *HeadlessWindow) DumpFrame(frame int) {
	w.dumpFrames[frame] = true
}

// GetFrameCount returns the number of presented frames
func (w *HeadlessWindow) GetFrameCount() int {
	return w.frameCount
}

// DumpedFiles returns the paths of the frames written so far
func (w *HeadlessWindow) DumpedFiles() []string {
	return w.dumped
}
