// Package app implements the emulator application: it owns the graphics
// backend, the emulated system and save states, and drives the host loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"invaders/internal/graphics"
	"invaders/internal/input"
	"invaders/internal/rom"
	"invaders/internal/sound"
	"invaders/internal/system"
)

// Application represents the main emulator application
type Application struct {
	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window

	// Application state
	config   *Config
	image    *rom.ROM
	system   *system.System
	emulator *Emulator
	states   *StateManager
	sound    *sound.Board
	onFrame  []FrameHook

	// Control flags
	ctx         context.Context
	running     bool
	initialized bool

	// Performance tracking
	startTime   time.Time
	lastFPSTime time.Time
	lastFPSAt   uint64
	currentFPS  float64
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// FrameHook is called after every emulated frame
type FrameHook func(sys *system.System) error

// NewApplication creates the application and opens its window
func NewApplication(config *Config) (*Application, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.validate(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "validate", Err: err}
	}

	app := &Application{
		config:      config,
		startTime:   time.Now(),
		lastFPSTime: time.Now(),
	}

	if err := app.initializeGraphicsBackend(); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "graphics setup",
			Err:       err,
		}
	}

	app.states = NewStateManager(config.Paths.SaveStates, config.Emulation.SaveStateSlots)
	app.initialized = true
	return app, nil
}

// initializeGraphicsBackend creates the configured backend, falling back
// to headless mode when Ebitengine cannot start
func (app *Application) initializeGraphicsBackend() error {
	backendType := graphics.BackendType(app.config.Video.Backend)

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %w", err)
	}

	graphicsConfig, err := app.config.GraphicsConfig()
	if err != nil {
		return err
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		if backendType != graphics.BackendEbitengine && backendType != "" {
			return fmt.Errorf("failed to initialize graphics backend: %w", err)
		}

		if app.config.LogsAt("WARN") {
			log.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode", err)
		}
		app.graphicsBackend = graphics.NewHeadlessBackend()
		graphicsConfig.Headless = true
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %w", err)
		}
	}

	// The canvas always matches the scaled display; windowed backends
	// stretch it to the window size themselves
	width, height := app.config.GetWindowResolution()
	app.window, err = app.graphicsBackend.CreateWindow(graphicsConfig.WindowTitle, width, height)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	if app.config.LogsAt("DEBUG") {
		log.Printf("[APP_DEBUG] Using %s backend with %dx%d canvas", app.graphicsBackend.GetName(), width, height)
	}
	return nil
}

// LoadROM loads a program image from a file or a directory of parts and
// builds the machine around it
func (app *Application) LoadROM(path string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	image, err := rom.Load(path)
	if err != nil {
		return &ApplicationError{Component: "rom", Operation: "load ROM", Err: err}
	}

	return app.loadImage(image)
}

func (app *Application) loadImage(image *rom.ROM) error {
	app.image = image
	app.system = system.New(image.Data(),
		system.Frontend{Canvas: app.window, Events: app.window},
		system.WithBlockSize(app.config.Window.Scale),
		system.WithTrace(app.config.Debug.CPUTracing),
		system.WithLoopDetection(app.config.Emulation.LoopDetection && app.config.LogsAt("WARN")),
	)
	app.emulator = NewEmulator(app.system)
	app.sound = sound.NewBoard()
	app.sound.EnableDebugLogging(app.config.LogsAt("DEBUG"))

	app.window.SetTitle(fmt.Sprintf("Space Invaders - %s", filepath.Base(image.Source())))

	if app.config.LogsAt("DEBUG") {
		log.Printf("[APP_DEBUG] Loaded %d byte ROM from %s (sha256 %s)", image.Size(), image.Source(), image.Checksum())
	}

	app.emulator.Start()
	return nil
}

// Run drives the machine until the host quits, ctx is cancelled or the
// configured frame limit is reached. A quit request is not an error.
func (app *Application) Run(ctx context.Context) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.emulator == nil {
		return errors.New("no ROM loaded")
	}

	app.ctx = ctx
	app.running = true
	app.startTime = time.Now()
	app.lastFPSTime = time.Now()

	if app.config.LogsAt("DEBUG") {
		log.Printf("[APP_DEBUG] Starting emulator with %s backend...", app.graphicsBackend.GetName())
	}

	// Ebitengine owns the main loop and calls back once per tick
	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		ebitengineWindow.SetEmulatorUpdateFunc(app.frame)
		err := ebitengineWindow.Run()
		app.running = false
		return err
	}

	frameDelay := time.Duration(app.config.Emulation.FrameDelayMicros) * time.Microsecond
	for app.running {
		if err := app.frame(); err != nil {
			app.running = false
			if errors.Is(err, input.ErrQuit) {
				break
			}
			return err
		}

		if frameDelay > 0 {
			time.Sleep(frameDelay)
		}
	}

	if app.config.LogsAt("DEBUG") {
		log.Println("[APP_DEBUG] Emulator main loop ended")
	}
	return nil
}

// frame runs one frame and reports input.ErrQuit once the loop should end
func (app *Application) frame() error {
	if app.ctx != nil && app.ctx.Err() != nil {
		app.Stop()
		return input.ErrQuit
	}
	if !app.running || app.window.ShouldClose() {
		return input.ErrQuit
	}

	if err := app.emulator.Update(); err != nil {
		if !errors.Is(err, input.ErrQuit) {
			err = &ApplicationError{Component: "system", Operation: "frame", Err: err}
		}
		app.Stop()
		return err
	}

	app.sound.Update(app.system.CPU().SoundPorts())

	for _, hook := range app.onFrame {
		if err := hook(app.system); err != nil {
			if app.config.LogsAt("WARN") {
				log.Printf("[APP_WARNING] Frame hook failed at frame %d: %v", app.system.Frame(), err)
			}
		}
	}

	app.updatePerformanceMetrics()

	if limit := app.config.Emulation.MaxFrames; limit > 0 && app.emulator.GetFrameCount() >= uint64(limit) {
		if app.config.LogsAt("INFO") {
			log.Printf("[APP] Frame limit %d reached", limit)
		}
		app.Stop()
		return input.ErrQuit
	}
	return nil
}

// updatePerformanceMetrics refreshes the FPS counter once per second
func (app *Application) updatePerformanceMetrics() {
	now := time.Now()
	elapsed := now.Sub(app.lastFPSTime)
	if elapsed < time.Second {
		return
	}

	frames := app.emulator.GetFrameCount()
	app.currentFPS = float64(frames-app.lastFPSAt) / elapsed.Seconds()
	app.lastFPSAt = frames
	app.lastFPSTime = now

	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		ebitengineWindow.SetStatus(fmt.Sprintf("frame %d", frames))
	}
	if app.config.LogsAt("DEBUG") {
		stats := app.emulator.GetPerformanceStats()
		log.Printf("[APP_DEBUG] FPS: %.1f, frame %d, emulation %v, jitter %v",
			app.currentFPS, frames, stats.EmulationTime, stats.FrameTimeJitter)
	}
}

// AddFrameHook registers hook to run after every frame
func (app *Application) AddFrameHook(hook FrameHook) {
	app.onFrame = append(app.onFrame, hook)
}

// Stop ends the main loop after the current frame
func (app *Application) Stop() {
	app.running = false
}

// Pause freezes emulation
func (app *Application) Pause() {
	if app.emulator != nil {
		app.emulator.SetPaused(true)
	}
}

// Resume continues emulation
func (app *Application) Resume() {
	if app.emulator != nil {
		app.emulator.SetPaused(false)
	}
}

// SaveState saves the current machine state to slot
func (app *Application) SaveState(slot int) error {
	if app.system == nil {
		return errors.New("no ROM loaded")
	}

	return app.states.SaveState(app.system, app.image, slot)
}

// LoadState restores the machine state from slot
func (app *Application) LoadState(slot int) error {
	if app.system == nil {
		return errors.New("no ROM loaded")
	}

	if err := app.states.LoadState(app.system, app.image, slot); err != nil {
		return err
	}
	if app.config.LogsAt("INFO") {
		log.Printf("[APP] Restored slot %d at frame %d", slot, app.system.Frame())
	}
	return nil
}

// Notify injects a host event, used for scripted input
func (app *Application) Notify(event input.Event) {
	app.window.Notify(event)
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running
}

// GetFPS returns the current FPS
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the number of emulated frames
func (app *Application) GetFrameCount() uint64 {
	if app.emulator == nil {
		return 0
	}
	return app.emulator.GetFrameCount()
}

// GetPerformanceStats returns the emulator timing statistics
func (app *Application) GetPerformanceStats() EmulatorStats {
	if app.emulator == nil {
		return EmulatorStats{}
	}
	return app.emulator.GetPerformanceStats()
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROM returns the loaded program image
func (app *Application) GetROM() *rom.ROM {
	return app.image
}

// GetSystem returns the emulated machine
func (app *Application) GetSystem() *system.System {
	return app.system
}

// GetSoundBoard returns the sound latch decoder
func (app *Application) GetSoundBoard() *sound.Board {
	return app.sound
}

// GetWindow returns the host window
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	if app.config.LogsAt("DEBUG") {
		log.Println("[APP_DEBUG] Cleaning up application resources...")
	}

	var lastErr error

	if app.states != nil {
		if err := app.states.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP_ERROR] State manager cleanup error: %v", err)
		}
	}

	if app.emulator != nil {
		app.emulator.Stop()
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP_ERROR] Window cleanup error: %v", err)
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP_ERROR] Graphics backend cleanup error: %v", err)
		}
	}

	app.initialized = false
	return lastErr
}
