//go:build !sdl
// +build !sdl

package graphics

import "fmt"

// SDLBackend stub for builds without the sdl tag
type SDLBackend struct{}

// NewSDLBackend creates a stub backend; rebuild with -tags sdl for SDL2
func NewSDLBackend() Backend {
	return &SDLBackend{}
}

func (b *SDLBackend) Initialize(config Config) error {
	return fmt.Errorf("SDL backend not available, rebuild with -tags sdl")
}

func (b *SDLBackend) CreateWindow(title string, width, height int) (Window, error) {
	return nil, fmt.Errorf("SDL backend not available, rebuild with -tags sdl")
}

func (b *SDLBackend) Cleanup() error {
	return nil
}

func (b *SDLBackend) IsHeadless() bool {
	return true
}

func (b *SDLBackend) GetName() string {
	return "SDL2-Stub"
}
