//go:build !headless
// +build !headless

package graphics

import (
	"errors"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"

	"invaders/internal/input"
)

func newTestEbitengineWindow(t *testing.T, config Config) *EbitengineWindow {
	t.Helper()

	backend := NewEbitengineBackend()
	if err := backend.Initialize(config); err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	window, err := backend.CreateWindow("Test Game", 672, 768)
	if err != nil {
		t.Fatalf("Window creation failed: %v", err)
	}

	ebitengineWindow, ok := AsEbitengineWindow(window)
	if !ok {
		t.Fatalf("Expected *EbitengineWindow, got %T", window)
	}
	return ebitengineWindow
}

// TestEbitengineBackend_Initialize tests backend initialization
func TestEbitengineBackend_Initialize(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle:  "Test Window",
		WindowWidth:  672,
		WindowHeight: 768,
		VSync:        true,
		Filter:       "nearest",
	}

	if err := backend.Initialize(config); err != nil {
		t.Fatalf("Expected successful initialization, got error: %v", err)
	}
	if !backend.(*EbitengineBackend).initialized {
		t.Error("Backend should be marked as initialized")
	}
	if backend.GetName() != "Ebitengine" {
		t.Errorf("Expected name Ebitengine, got %s", backend.GetName())
	}
	if backend.IsHeadless() {
		t.Error("Backend should not be headless")
	}
}

// TestEbitengineBackend_DoubleInitialize tests that a backend initializes once
func TestEbitengineBackend_DoubleInitialize(t *testing.T) {
	backend := NewEbitengineBackend()
	if err := backend.Initialize(Config{}); err != nil {
		t.Fatalf("First initialization failed: %v", err)
	}

	if err := backend.Initialize(Config{}); err == nil {
		t.Error("Expected error on second initialization")
	}
}

// TestEbitengineBackend_CreateWindow tests window creation
func TestEbitengineBackend_CreateWindow(t *testing.T) {
	window := newTestEbitengineWindow(t, Config{WindowTitle: "Test Window"})

	width, height := window.GetSize()
	if width != 672 || height != 768 {
		t.Errorf("Expected canvas size 672x768, got %dx%d", width, height)
	}
	if window.ShouldClose() {
		t.Error("New window should not be closing")
	}
	if window.GetGameForTesting() == nil {
		t.Error("Window should have game instance after creation")
	}
}

// TestEbitengineBackend_CreateWindow_Uninitialized tests window creation on uninitialized backend
func TestEbitengineBackend_CreateWindow_Uninitialized(t *testing.T) {
	backend := NewEbitengineBackend()

	_, err := backend.CreateWindow("Test Game", 672, 768)
	if err == nil {
		t.Fatal("Expected error when creating window on uninitialized backend")
	}

	expectedError := "backend not initialized"
	if err.Error() != expectedError {
		t.Errorf("Expected error message '%s', got '%s'", expectedError, err.Error())
	}
}

// TestEbitengineBackend_CreateWindow_Headless tests window creation in headless mode
func TestEbitengineBackend_CreateWindow_Headless(t *testing.T) {
	backend := NewEbitengineBackend()
	if err := backend.Initialize(Config{Headless: true}); err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	_, err := backend.CreateWindow("Test Game", 672, 768)
	if err == nil {
		t.Fatal("Expected error when creating window in headless mode")
	}

	expectedError := "cannot create window in headless mode"
	if err.Error() != expectedError {
		t.Errorf("Expected error message '%s', got '%s'", expectedError, err.Error())
	}
}

// TestEbitengineWindow_Present tests frame upload
func TestEbitengineWindow_Present(t *testing.T) {
	window := newTestEbitengineWindow(t, Config{})

	window.SetColor(0xFF, 0x00, 0x00)
	window.FillRect(0, 0, 3, 3)

	if err := window.Present(); err != nil {
		t.Fatalf("Present failed: %v", err)
	}
	if window.GetPresentCountForTesting() != 1 {
		t.Errorf("Expected one present, got %d", window.GetPresentCountForTesting())
	}
	if got := window.At(1, 1); got.R != 0xFF || got.G != 0 {
		t.Errorf("Expected red pixel in canvas, got %+v", got)
	}
}

// TestEbitengineWindow_Present_NilGame tests present without a game
func TestEbitengineWindow_Present_NilGame(t *testing.T) {
	window := &EbitengineWindow{FrameBuffer: NewFrameBuffer(1, 1)}

	if err := window.Present(); err == nil {
		t.Error("Expected error presenting without game")
	}
}

// TestEbitengineWindow_EmulatorUpdateFunc tests that Update drives the emulator
func TestEbitengineWindow_EmulatorUpdateFunc(t *testing.T) {
	window := newTestEbitengineWindow(t, Config{})

	updateCalled := false
	window.SetEmulatorUpdateFunc(func() error {
		updateCalled = true
		return nil
	})

	if window.GetEmulatorUpdateFuncForTesting() == nil {
		t.Fatal("Emulator update function should be set")
	}
	if err := window.GetGameForTesting().Update(); err != nil {
		t.Fatalf("Game Update failed: %v", err)
	}
	if !updateCalled {
		t.Error("Emulator update function should have been called during game update")
	}
}

// TestEbitengineWindow_EmulatorUpdateFunc_Error tests error handling in emulator update
func TestEbitengineWindow_EmulatorUpdateFunc_Error(t *testing.T) {
	window := newTestEbitengineWindow(t, Config{})

	window.SetEmulatorUpdateFunc(func() error {
		return errors.New("emulator error")
	})

	// Game Update should not fail even if emulator update fails
	if err := window.GetGameForTesting().Update(); err != nil {
		t.Fatalf("Game Update should not fail when emulator update fails: %v", err)
	}
}

// TestEbitengineWindow_QuitTerminates tests that a quit request ends the game loop
func TestEbitengineWindow_QuitTerminates(t *testing.T) {
	window := newTestEbitengineWindow(t, Config{})

	window.SetEmulatorUpdateFunc(func() error {
		return input.ErrQuit
	})

	if err := window.GetGameForTesting().Update(); !errors.Is(err, ebiten.Termination) {
		t.Errorf("Expected ebiten.Termination, got %v", err)
	}
}

// TestEbitengineWindow_CleanupStopsLoop tests that a cleaned up window terminates
func TestEbitengineWindow_CleanupStopsLoop(t *testing.T) {
	window := newTestEbitengineWindow(t, Config{})

	if err := window.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if !window.ShouldClose() {
		t.Error("Window should be closing after cleanup")
	}
	if err := window.GetGameForTesting().Update(); !errors.Is(err, ebiten.Termination) {
		t.Errorf("Expected ebiten.Termination, got %v", err)
	}
}

// TestEbitengineWindow_NotifyAndPoll tests injected events
func TestEbitengineWindow_NotifyAndPoll(t *testing.T) {
	window := newTestEbitengineWindow(t, Config{})

	window.Notify(input.KeyDown(input.InsertCoin))
	events := window.PollEvents()

	if len(events) != 1 || events[0] != input.KeyDown(input.InsertCoin) {
		t.Errorf("Expected injected KeyDown, got %v", events)
	}
	if events := window.PollEvents(); len(events) != 0 {
		t.Errorf("Expected events to be drained, got %v", events)
	}
}

// TestEbitengineGame_Layout tests game layout calculations
func TestEbitengineGame_Layout(t *testing.T) {
	game := &EbitengineGame{}

	width, height := game.Layout(1024, 768)

	if width != 1024 || height != 768 {
		t.Errorf("Expected layout 1024x768, got %dx%d", width, height)
	}
	if game.windowWidth != 1024 || game.windowHeight != 768 {
		t.Errorf("Expected window size tracked, got %dx%d", game.windowWidth, game.windowHeight)
	}
}
