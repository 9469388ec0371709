//go:build sdl
// +build sdl

package graphics

import (
	"fmt"
	"log"

	"github.com/veandco/go-sdl2/sdl"

	"invaders/internal/input"
)

// SDLBackend implements the Backend interface with SDL2
type SDLBackend struct {
	initialized bool
	config      Config
}

// SDLWindow draws straight onto an SDL renderer
type SDLWindow struct {
	title    string
	width    int
	height   int
	running  bool
	window   *sdl.Window
	renderer *sdl.Renderer
	keymap   Keymap
	events   *input.Queue
	debug    bool
}

// sdlKeys maps SDL key codes to host keys
var sdlKeys = map[sdl.Keycode]Key{
	sdl.K_ESCAPE: KeyEscape,
	sdl.K_RETURN: KeyEnter,
	sdl.K_SPACE:  KeySpace,
	sdl.K_UP:     KeyUp,
	sdl.K_DOWN:   KeyDown,
	sdl.K_LEFT:   KeyLeft,
	sdl.K_RIGHT:  KeyRight,
	sdl.K_a:      KeyA,
	sdl.K_c:      KeyC,
	sdl.K_d:      KeyD,
	sdl.K_j:      KeyJ,
	sdl.K_k:      KeyK,
	sdl.K_l:      KeyL,
	sdl.K_s:      KeyS,
	sdl.K_w:      KeyW,
	sdl.K_x:      KeyX,
	sdl.K_z:      KeyZ,
	sdl.K_1:      Key1,
	sdl.K_KP_1:   Key1,
	sdl.K_2:      Key2,
	sdl.K_KP_2:   Key2,
	sdl.K_F1:     KeyF1,
	sdl.K_F2:     KeyF2,
	sdl.K_F5:     KeyF5,
	sdl.K_F9:     KeyF9,
}

// NewSDLBackend creates a new SDL2 graphics backend
func NewSDLBackend() Backend {
	return &SDLBackend{}
}

// Initialize starts the SDL video subsystem
func (b *SDLBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("SDL backend already initialized")
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("SDL init failed: %w", err)
	}
	sdl.EventState(sdl.MOUSEMOTION, sdl.IGNORE)

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow opens an SDL window with a renderer of the given logical size
func (b *SDLBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	windowWidth, windowHeight := width, height
	if b.config.WindowWidth > 0 && b.config.WindowHeight > 0 {
		windowWidth, windowHeight = b.config.WindowWidth, b.config.WindowHeight
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_RESIZABLE)
	if b.config.Fullscreen {
		flags |= uint32(sdl.WINDOW_FULLSCREEN_DESKTOP)
	}

	window, err := sdl.CreateWindow(title,
		int32(sdl.WINDOWPOS_UNDEFINED), int32(sdl.WINDOWPOS_UNDEFINED),
		int32(windowWidth), int32(windowHeight), flags)
	if err != nil {
		return nil, fmt.Errorf("SDL window creation failed: %w", err)
	}

	rendererFlags := uint32(sdl.RENDERER_ACCELERATED)
	if b.config.VSync {
		rendererFlags |= uint32(sdl.RENDERER_PRESENTVSYNC)
	}
	renderer, err := sdl.CreateRenderer(window, -1, rendererFlags)
	if err != nil {
		window.Destroy()
		return nil, fmt.Errorf("SDL renderer creation failed: %w", err)
	}

	if b.config.Filter == "linear" {
		sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "1")
	}
	if err := renderer.SetLogicalSize(int32(width), int32(height)); err != nil {
		log.Printf("[SDL] failed to set logical size: %v", err)
	}

	return &SDLWindow{
		title:    title,
		width:    width,
		height:   height,
		running:  true,
		window:   window,
		renderer: renderer,
		keymap:   b.config.keymap(),
		events:   input.NewQueue(),
		debug:    b.config.Debug,
	}, nil
}

// Cleanup shuts SDL down
func (b *SDLBackend) Cleanup() error {
	if b.initialized {
		sdl.Quit()
	}
	b.initialized = false
	return nil
}

// IsHeadless returns false
func (b *SDLBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *SDLBackend) GetName() string {
	return "SDL2"
}

// SDLWindow implementation

// SetTitle sets the window title
func (w *SDLWindow) SetTitle(title string) {
	w.title = title
	w.window.SetTitle(title)
}

// GetSize returns the logical canvas dimensions
func (w *SDLWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *SDLWindow) ShouldClose() bool {
	return !w.running
}

// Clear fills the renderer with the draw color
func (w *SDLWindow) Clear() {
	w.renderer.Clear()
}

// SetColor sets the renderer draw color
func (w *SDLWindow) SetColor(r, g, b uint8) {
	w.renderer.SetDrawColor(r, g, b, 0xFF)
}

// FillRect fills a rectangle; SDL clips to the logical size
func (w *SDLWindow) FillRect(x, y, width, height int) {
	w.renderer.FillRect(&sdl.Rect{X: int32(x), Y: int32(y), W: int32(width), H: int32(height)})
}

// Present shows the rendered frame
func (w *SDLWindow) Present() error {
	w.renderer.Present()
	return nil
}

// Notify queues an event
func (w *SDLWindow) Notify(event input.Event) {
	w.events.Notify(event)
}

// PollEvents drains the SDL event queue. Must be called from the thread
// that created the window.
func (w *SDLWindow) PollEvents() []input.Event {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch ev := ev.(type) {
		case *sdl.QuitEvent:
			w.running = false
			w.events.Notify(input.Quit())

		case *sdl.KeyboardEvent:
			if ev.Repeat != 0 {
				continue
			}
			hostKey, known := sdlKeys[ev.Keysym.Sym]
			if !known {
				continue
			}
			if hostKey == KeyEscape {
				w.events.Notify(input.Quit())
				continue
			}
			key, bound := w.keymap[hostKey]
			if !bound {
				continue
			}

			switch ev.Type {
			case sdl.KEYDOWN:
				w.events.Notify(input.KeyDown(key))
			case sdl.KEYUP:
				w.events.Notify(input.KeyUp(key))
			}
			if w.debug {
				log.Printf("[SDL] key %s -> %s", hostKey, key)
			}
		}
	}

	return w.events.PollEvents()
}

// Cleanup destroys the renderer and window
func (w *SDLWindow) Cleanup() error {
	w.running = false
	if w.renderer != nil {
		if err := w.renderer.Destroy(); err != nil {
			return fmt.Errorf("SDL renderer destroy failed: %w", err)
		}
		w.renderer = nil
	}
	if w.window != nil {
		if err := w.window.Destroy(); err != nil {
			return fmt.Errorf("SDL window destroy failed: %w", err)
		}
		w.window = nil
	}
	return nil
}
