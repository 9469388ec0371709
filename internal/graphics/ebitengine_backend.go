//go:build !headless
// +build !headless

package graphics

import (
	"errors"
	"fmt"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"invaders/internal/input"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	*FrameBuffer

	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             *input.Queue
	keymap             Keymap
	emulatorUpdateFunc func() error
}

// EbitengineGame implements ebiten.Game for the emulator
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	screenWidth  int
	screenHeight int
	windowWidth  int
	windowHeight int
	showFPS      bool
	status       string

	presentCount int
	drawCount    int // For limiting debug logs
}

// ebitenKeys maps Ebitengine key codes to host keys
var ebitenKeys = map[ebiten.Key]Key{
	ebiten.KeyEscape:     KeyEscape,
	ebiten.KeyEnter:      KeyEnter,
	ebiten.KeySpace:      KeySpace,
	ebiten.KeyArrowUp:    KeyUp,
	ebiten.KeyArrowDown:  KeyDown,
	ebiten.KeyArrowLeft:  KeyLeft,
	ebiten.KeyArrowRight: KeyRight,
	ebiten.KeyA:          KeyA,
	ebiten.KeyC:          KeyC,
	ebiten.KeyD:          KeyD,
	ebiten.KeyJ:          KeyJ,
	ebiten.KeyK:          KeyK,
	ebiten.KeyL:          KeyL,
	ebiten.KeyS:          KeyS,
	ebiten.KeyW:          KeyW,
	ebiten.KeyX:          KeyX,
	ebiten.KeyZ:          KeyZ,
	ebiten.Key1:          Key1,
	ebiten.Key2:          Key2,
	ebiten.KeyF1:         KeyF1,
	ebiten.KeyF2:         KeyF2,
	ebiten.KeyF5:         KeyF5,
	ebiten.KeyF9:         KeyF9,
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window whose canvas is width x height
// pixels. The OS window is sized from the backend config when set.
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	windowWidth, windowHeight := width, height
	if b.config.WindowWidth > 0 && b.config.WindowHeight > 0 {
		windowWidth, windowHeight = b.config.WindowWidth, b.config.WindowHeight
	}

	game := &EbitengineGame{
		screenWidth:  width,
		screenHeight: height,
		windowWidth:  windowWidth,
		windowHeight: windowHeight,
		frameImage:   ebiten.NewImage(width, height),
		showFPS:      b.config.ShowFPS,
	}

	window := &EbitengineWindow{
		FrameBuffer: NewFrameBuffer(width, height),
		backend:     b,
		title:       title,
		width:       width,
		height:      height,
		game:        game,
		running:     true,
		events:      input.NewQueue(),
		keymap:      b.config.keymap(),
	}

	game.window = window
	b.game = game

	// Configure Ebitengine
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetVsyncEnabled(b.config.VSync)

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	if b.config.Filter == "linear" {
		ebiten.SetScreenFilterEnabled(true)
	} else {
		ebiten.SetScreenFilterEnabled(false)
	}

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// EbitengineWindow implementation

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns the canvas dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns and clears the pending input events
func (w *EbitengineWindow) PollEvents() []input.Event {
	return w.events.PollEvents()
}

// Notify queues an event as if it came from the keyboard
func (w *EbitengineWindow) Notify(event input.Event) {
	w.events.Notify(event)
}

// Present uploads the drawn frame to the GPU image shown by Draw
func (w *EbitengineWindow) Present() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}

	w.game.frameImage.WritePixels(w.FrameBuffer.Pix())
	w.game.presentCount++
	return nil
}

// SetStatus sets a line of text drawn over the frame, empty to hide it
func (w *EbitengineWindow) SetStatus(status string) {
	if w.game != nil {
		w.game.status = status
	}
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop. It returns nil when the user quits.
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}

	err := ebiten.RunGame(w.game)
	w.running = false
	return err
}

// SetEmulatorUpdateFunc sets the function called once per Ebitengine tick
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// EbitengineGame implementation

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}

	if ebiten.IsWindowBeingClosed() || !g.window.running {
		return ebiten.Termination
	}

	// Process keyboard input
	g.processInput()

	// Update the emulator if function is provided
	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			if errors.Is(err, input.ErrQuit) {
				return ebiten.Termination
			}
			// Log error but don't stop the game
			log.Printf("[Ebitengine] Emulator update error: %v", err)
		}
	}

	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})

	// Scale to fit the window while maintaining aspect ratio
	scaleX := float64(g.windowWidth) / float64(g.screenWidth)
	scaleY := float64(g.windowHeight) / float64(g.screenHeight)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	// Center the image
	offsetX := (float64(g.windowWidth) - float64(g.screenWidth)*scale) / 2
	offsetY := (float64(g.windowHeight) - float64(g.screenHeight)*scale) / 2

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(g.frameImage, op)

	g.drawOverlay(screen)

	g.drawCount++
	if g.window.backend.config.Debug && g.drawCount%1800 == 0 {
		log.Printf("[Ebitengine] Drawing frame %d - %dx%d scaled %.2fx at offset (%.1f,%.1f)",
			g.drawCount, g.screenWidth, g.screenHeight, scale, offsetX, offsetY)
	}
}

// drawOverlay draws the FPS counter and status line
func (g *EbitengineGame) drawOverlay(screen *ebiten.Image) {
	face := basicfont.Face7x13
	y := 14

	if g.showFPS {
		label := fmt.Sprintf("FPS %.1f TPS %.1f", ebiten.ActualFPS(), ebiten.ActualTPS())
		text.Draw(screen, label, face, 4, y, color.RGBA{R: 0xFF, G: 0xFF, A: 0xFF})
		y += 16
	}
	if g.status != "" {
		text.Draw(screen, g.status, face, 4, y, color.White)
	}
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight

	// Scaling is handled in Draw()
	return outsideWidth, outsideHeight
}

// processInput turns key edges into cabinet switch events
func (g *EbitengineGame) processInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.window.events.Notify(input.Quit())
		return
	}

	for ebitenKey, hostKey := range ebitenKeys {
		key, bound := g.window.keymap[hostKey]
		if !bound {
			continue
		}

		if inpututil.IsKeyJustPressed(ebitenKey) {
			g.window.events.Notify(input.KeyDown(key))
		} else if inpututil.IsKeyJustReleased(ebitenKey) {
			g.window.events.Notify(input.KeyUp(key))
		}
	}
}
