// Package graphics provides the host frontends (windows, terminal, headless)
// that draw the emulated display and collect player input
package graphics

import (
	"fmt"
	"sort"
	"strings"

	"invaders/internal/input"
	"invaders/internal/system"
)

// Backend represents a host frontend implementation (Ebitengine, SDL2, etc.)
type Backend interface {
	// Initialize initializes the graphics backend
	Initialize(config Config) error

	// CreateWindow creates a surface of the given pixel size
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if nothing is shown to a user
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window is a host surface. It is the Canvas the emulator draws on and the
// EventSource its input comes from.
type Window interface {
	system.Canvas
	system.EventSource

	// SetTitle sets the window title
	SetTitle(title string)

	// GetSize returns window dimensions
	GetSize() (width, height int)

	// ShouldClose returns true if window should close
	ShouldClose() bool

	// Cleanup releases window resources
	Cleanup() error
}

// Config contains configuration for graphics backends
type Config struct {
	// Window configuration
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool

	// Rendering configuration
	Filter  string // "nearest", "linear"
	ShowFPS bool

	// Host key to cabinet switch bindings, DefaultKeymap when nil
	Keymap Keymap

	// Backend-specific options
	Headless bool
	Debug    bool

	// Headless frame dumps
	OutputDir  string
	DumpFrames []int
}

// keymap returns the configured bindings or the defaults
func (c Config) keymap() Keymap {
	if c.Keymap == nil {
		return DefaultKeymap()
	}
	return c.Keymap
}

// Key represents host keyboard keys
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeySpace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyA
	KeyC
	KeyD
	KeyJ
	KeyK
	KeyL
	KeyS
	KeyW
	KeyX
	KeyZ
	Key1
	Key2
	KeyF1
	KeyF2
	KeyF5
	KeyF9
)

var hostKeyNames = map[Key]string{
	KeyEscape: "Escape",
	KeyEnter:  "Enter",
	KeySpace:  "Space",
	KeyUp:     "Up",
	KeyDown:   "Down",
	KeyLeft:   "Left",
	KeyRight:  "Right",
	KeyA:      "A",
	KeyC:      "C",
	KeyD:      "D",
	KeyJ:      "J",
	KeyK:      "K",
	KeyL:      "L",
	KeyS:      "S",
	KeyW:      "W",
	KeyX:      "X",
	KeyZ:      "Z",
	Key1:      "1",
	Key2:      "2",
	KeyF1:     "F1",
	KeyF2:     "F2",
	KeyF5:     "F5",
	KeyF9:     "F9",
}

func (k Key) String() string {
	if name, ok := hostKeyNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseHostKey resolves a host key name such as "Space" or "C"
func ParseHostKey(name string) (Key, error) {
	for key, candidate := range hostKeyNames {
		if strings.EqualFold(candidate, strings.TrimSpace(name)) {
			return key, nil
		}
	}
	return KeyUnknown, fmt.Errorf("unknown host key %q", name)
}

// Keymap binds host keys to cabinet switches
type Keymap map[Key]input.Key

// DefaultKeymap returns the classic bindings: C inserts a coin, 1/2 pick the
// player count, arrows and Space drive player 1, A/D/S drive player 2
func DefaultKeymap() Keymap {
	return Keymap{
		KeyC:     input.InsertCoin,
		Key1:     input.SelectOnePlayer,
		Key2:     input.SelectTwoPlayers,
		KeySpace: input.Player1Shoot,
		KeyLeft:  input.Player1Left,
		KeyRight: input.Player1Right,
		KeyS:     input.Player2Shoot,
		KeyA:     input.Player2Left,
		KeyD:     input.Player2Right,
	}
}

// ParseKeymap builds a keymap from host key name to switch name pairs
func ParseKeymap(bindings map[string]string) (Keymap, error) {
	keymap := make(Keymap, len(bindings))

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		hostKey, err := ParseHostKey(name)
		if err != nil {
			return nil, err
		}
		if hostKey == KeyEscape {
			return nil, fmt.Errorf("host key %s is reserved for quit", name)
		}
		key, err := input.ParseKeyName(bindings[name])
		if err != nil {
			return nil, fmt.Errorf("binding for %s: %w", name, err)
		}
		keymap[hostKey] = key
	}

	return keymap, nil
}

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendSDL        BackendType = "sdl"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine, "":
		return NewEbitengineBackend(), nil
	case BackendSDL:
		return NewSDLBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	default:
		return nil, fmt.Errorf("unknown graphics backend %q", backendType)
	}
}

// Helper type assertion functions

// AsEbitengineWindow tries to cast a Window to EbitengineWindow
func AsEbitengineWindow(window Window) (*EbitengineWindow, bool) {
	if ebitengineWindow, ok := window.(*EbitengineWindow); ok {
		return ebitengineWindow, true
	}
	return nil, false
}

// AsHeadlessWindow tries to cast a Window to HeadlessWindow
func AsHeadlessWindow(window Window) (*HeadlessWindow, bool) {
	if headlessWindow, ok := window.(*HeadlessWindow); ok {
		return headlessWindow, true
	}
	return nil, false
}
