package app

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"invaders/internal/graphics"
	"invaders/internal/input"
	"invaders/internal/rom"
	"invaders/internal/sound"
	"invaders/internal/system"
)

// spinProgram enables interrupts and jumps to itself forever
var spinProgram = []byte{0x31, 0x00, 0x24, 0xFB, 0xC3, 0x03, 0x00}

// newHeadlessConfig returns a config that runs without a display and
// keeps every path inside a temporary directory
func newHeadlessConfig(t *testing.T) *Config {
	t.Helper()

	dir := t.TempDir()
	config := NewConfig()
	config.Video.Backend = string(graphics.BackendHeadless)
	config.Emulation.FrameDelayMicros = 0
	config.Paths.ROMs = filepath.Join(dir, "roms")
	config.Paths.SaveStates = filepath.Join(dir, "states")
	config.Paths.Screenshots = filepath.Join(dir, "screenshots")
	return config
}

// writeROM stores program in a temporary file and returns its path
func writeROM(t *testing.T, program []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "invaders.rom")
	if err := os.WriteFile(path, program, 0644); err != nil {
		t.Fatalf("writing ROM: %v", err)
	}
	return path
}

func newTestApplication(t *testing.T, config *Config) *Application {
	t.Helper()

	app, err := NewApplication(config)
	if err != nil {
		t.Fatalf("NewApplication failed: %v", err)
	}
	t.Cleanup(func() { app.Cleanup() })

	if err := app.LoadROM(writeROM(t, spinProgram)); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}
	return app
}

func TestApplication_RunStopsAtFrameLimit(t *testing.T) {
	config := newHeadlessConfig(t)
	config.Emulation.MaxFrames = 3
	app := newTestApplication(t, config)

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if app.GetFrameCount() != 3 {
		t.Errorf("expected 3 frames, got %d", app.GetFrameCount())
	}
	if app.IsRunning() {
		t.Error("application should have stopped")
	}

	headless, ok := graphics.AsHeadlessWindow(app.GetWindow())
	if !ok {
		t.Fatalf("expected headless window, got %T", app.GetWindow())
	}
	if headless.GetFrameCount() != 3 {
		t.Errorf("expected 3 presented frames, got %d", headless.GetFrameCount())
	}
}

func TestApplication_QuitEventEndsRun(t *testing.T) {
	app := newTestApplication(t, newHeadlessConfig(t))

	app.Notify(input.Quit())

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("quit should not be reported as an error, got %v", err)
	}
	if app.GetFrameCount() != 1 {
		t.Errorf("expected 1 frame before quit, got %d", app.GetFrameCount())
	}
}

func TestApplication_CancelledContextEndsRun(t *testing.T) {
	app := newTestApplication(t, newHeadlessConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if app.GetFrameCount() != 0 {
		t.Errorf("expected no frames, got %d", app.GetFrameCount())
	}
}

func TestApplication_KeyEventsReachLatches(t *testing.T) {
	config := newHeadlessConfig(t)
	config.Emulation.MaxFrames = 1
	app := newTestApplication(t, config)

	app.Notify(input.KeyDown(input.InsertCoin))
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if app.GetSystem().CPU().In1&0x01 == 0 {
		t.Error("coin switch should be latched after the frame")
	}
}

func TestApplication_DumpsFrames(t *testing.T) {
	config := newHeadlessConfig(t)
	config.Emulation.MaxFrames = 2
	config.Debug.DumpFrames = []int{2}
	app := newTestApplication(t, config)

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	dump := filepath.Join(config.Paths.Screenshots, "frame_002.ppm")
	if _, err := os.Stat(dump); err != nil {
		t.Errorf("expected %s to exist: %v", dump, err)
	}
}

func TestApplication_RunWithoutROM(t *testing.T) {
	app, err := NewApplication(newHeadlessConfig(t))
	if err != nil {
		t.Fatalf("NewApplication failed: %v", err)
	}
	defer app.Cleanup()

	if err := app.Run(context.Background()); err == nil {
		t.Error("expected error running without a ROM")
	}
	if err := app.SaveState(0); err == nil {
		t.Error("expected error saving without a ROM")
	}
}

func TestApplication_LoadROMError(t *testing.T) {
	app, err := NewApplication(newHeadlessConfig(t))
	if err != nil {
		t.Fatalf("NewApplication failed: %v", err)
	}
	defer app.Cleanup()

	err = app.LoadROM(filepath.Join(t.TempDir(), "missing.rom"))

	var appErr *ApplicationError
	if !errors.As(err, &appErr) || appErr.Component != "rom" {
		t.Fatalf("expected rom ApplicationError, got %v", err)
	}
	var loadErr *rom.LoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("expected wrapped LoadError, got %v", err)
	}
}

func TestApplication_SaveAndLoadState(t *testing.T) {
	config := newHeadlessConfig(t)
	config.Emulation.MaxFrames = 2
	app := newTestApplication(t, config)

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := app.SaveState(1); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	saved := app.GetSystem().CPU().State()
	app.GetSystem().CPU().A = saved.A + 1
	app.GetSystem().CPU().Memory().Write(0x2400, 0xAA)
	app.GetSystem().SetFrame(99)

	if err := app.LoadState(1); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	if app.GetSystem().CPU().State() != saved {
		t.Errorf("CPU state not restored: %+v vs %+v", app.GetSystem().CPU().State(), saved)
	}
	if app.GetSystem().CPU().Memory().Read(0x2400) != 0x00 {
		t.Error("video RAM not restored")
	}
	if app.GetSystem().Frame() != 2 {
		t.Errorf("expected frame 2, got %d", app.GetSystem().Frame())
	}
}

func newTestSystem(t *testing.T, program []byte) (*system.System, *rom.ROM) {
	t.Helper()

	image, err := rom.New(program, "test.rom")
	if err != nil {
		t.Fatalf("rom.New failed: %v", err)
	}
	return system.New(image.Data(), system.NewDummyFrontend()), image
}

func TestStateManager_SlotLifecycle(t *testing.T) {
	sys, image := newTestSystem(t, spinProgram)
	manager := NewStateManager(t.TempDir(), 4)

	if manager.HasSaveState(image, 2) {
		t.Fatal("slot should start empty")
	}
	if err := manager.LoadState(sys, image, 2); !errors.Is(err, ErrNoSaveState) {
		t.Errorf("expected ErrNoSaveState, got %v", err)
	}

	if err := manager.SaveState(sys, image, 2); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if !manager.HasSaveState(image, 2) {
		t.Error("slot should be used after save")
	}

	slots := manager.GetSlotInfo(image)
	if len(slots) != 4 || !slots[2].Used || slots[1].Used {
		t.Errorf("unexpected slot info %+v", slots)
	}

	if err := manager.DeleteState(image, 2); err != nil {
		t.Fatalf("DeleteState failed: %v", err)
	}
	if manager.HasSaveState(image, 2) {
		t.Error("slot should be empty after delete")
	}
}

func TestStateManager_InvalidSlot(t *testing.T) {
	sys, image := newTestSystem(t, spinProgram)
	manager := NewStateManager(t.TempDir(), 4)

	for _, slot := range []int{-1, 4} {
		if err := manager.SaveState(sys, image, slot); err == nil {
			t.Errorf("slot %d: expected error", slot)
		}
	}
}

func TestStateManager_RejectsOtherROM(t *testing.T) {
	sys, image := newTestSystem(t, spinProgram)
	_, other := newTestSystem(t, []byte{0x00, 0x00, 0x76})
	manager := NewStateManager(t.TempDir(), 4)

	path := filepath.Join(t.TempDir(), "export.save")
	if err := manager.ExportState(sys, image, path); err != nil {
		t.Fatalf("ExportState failed: %v", err)
	}

	if err := manager.ImportState(sys, other, path); err == nil {
		t.Error("expected state for a different ROM to be rejected")
	}
}

func TestStateManager_ExportImport(t *testing.T) {
	sys, image := newTestSystem(t, spinProgram)
	sys.RenderNextFrame()
	sys.CPU().Memory().Write(0x3000, 0x42)
	manager := NewStateManager(t.TempDir(), 4)

	path := filepath.Join(t.TempDir(), "export.save")
	if err := manager.ExportState(sys, image, path); err != nil {
		t.Fatalf("ExportState failed: %v", err)
	}

	restored, _ := newTestSystem(t, spinProgram)
	if err := manager.ImportState(restored, image, path); err != nil {
		t.Fatalf("ImportState failed: %v", err)
	}

	if restored.CPU().State() != sys.CPU().State() {
		t.Errorf("CPU state mismatch: %+v vs %+v", restored.CPU().State(), sys.CPU().State())
	}
	if restored.CPU().Memory().Read(0x3000) != 0x42 {
		t.Error("memory not restored")
	}
	if restored.Frame() != 1 {
		t.Errorf("expected frame 1, got %d", restored.Frame())
	}
}

func TestRestore_RejectsTruncatedMemory(t *testing.T) {
	sys, image := newTestSystem(t, spinProgram)

	state := Capture(sys, image)
	state.Memory = state.Memory[:100]

	if err := Restore(sys, image, state); err == nil {
		t.Error("expected error for truncated memory snapshot")
	}
}

func TestEmulator_PauseSkipsFrames(t *testing.T) {
	sys, _ := newTestSystem(t, spinProgram)
	emulator := NewEmulator(sys)

	if err := emulator.Update(); err != nil || emulator.GetFrameCount() != 0 {
		t.Fatalf("stopped emulator should not run, frames=%d err=%v", emulator.GetFrameCount(), err)
	}

	emulator.Start()
	emulator.Update()
	emulator.SetPaused(true)
	emulator.Update()

	if emulator.GetFrameCount() != 1 {
		t.Errorf("expected 1 frame, got %d", emulator.GetFrameCount())
	}
	if emulator.GetCycleCount() == 0 {
		t.Error("cycles should have been counted")
	}
}

func TestCircularTimingBuffer(t *testing.T) {
	buffer := NewCircularTimingBuffer(3)

	if buffer.GetAverage() != 0 || buffer.GetVariance() != 0 {
		t.Error("empty buffer should report zero")
	}

	for _, d := range []time.Duration{100, 10, 20, 30} {
		buffer.Add(d)
	}

	if buffer.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", buffer.Len())
	}
	if buffer.GetAverage() != 20 {
		t.Errorf("expected oldest entry evicted and average 20, got %v", buffer.GetAverage())
	}
	// ((-10)^2 + 0 + 10^2) / 3
	if buffer.GetVariance() != 66 {
		t.Errorf("expected variance 66, got %v", buffer.GetVariance())
	}

	buffer.Reset()
	if buffer.Len() != 0 {
		t.Error("buffer should be empty after reset")
	}
}

func TestApplication_FrameHooks(t *testing.T) {
	config := newHeadlessConfig(t)
	config.Emulation.MaxFrames = 4
	app := newTestApplication(t, config)

	var seen []uint64
	app.AddFrameHook(func(sys *system.System) error {
		seen = append(seen, sys.Frame())
		return nil
	})
	app.AddFrameHook(func(sys *system.System) error {
		return errors.New("hook failure is logged, not fatal")
	})

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(seen) != 4 || seen[0] != 1 || seen[3] != 4 {
		t.Errorf("expected hooks for frames 1-4, got %v", seen)
	}
}

func TestApplication_SoundLatchesReachBoard(t *testing.T) {
	config := newHeadlessConfig(t)
	config.Emulation.MaxFrames = 3

	app, err := NewApplication(config)
	if err != nil {
		t.Fatalf("NewApplication failed: %v", err)
	}
	t.Cleanup(func() { app.Cleanup() })

	// LXI SP,2400h; MVI A,02h; OUT 3; JMP 0007h
	program := []byte{0x31, 0x00, 0x24, 0x3E, 0x02, 0xD3, 0x03, 0xC3, 0x07, 0x00}
	if err := app.LoadROM(writeROM(t, program)); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	board := app.GetSoundBoard()
	if board.Triggers(sound.Shot) != 1 {
		t.Errorf("expected the shot to start once, got %d", board.Triggers(sound.Shot))
	}
	if !board.Playing(sound.Shot) {
		t.Error("shot latch should still be set")
	}
}

func TestApplication_LogLevelFiltersMessages(t *testing.T) {
	tests := []struct {
		logLevel string
		want     bool
	}{
		{"INFO", true},
		{"ERROR", false},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stderr)

			config := newHeadlessConfig(t)
			config.Emulation.MaxFrames = 1
			config.Debug.LogLevel = tt.logLevel
			app := newTestApplication(t, config)

			if err := app.Run(context.Background()); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if got := strings.Contains(buf.String(), "Frame limit 1 reached"); got != tt.want {
				t.Errorf("expected frame limit message %v, got log %q", tt.want, buf.String())
			}
		})
	}
}

func TestApplication_PerformanceStats(t *testing.T) {
	config := newHeadlessConfig(t)
	config.Emulation.MaxFrames = 3
	app := newTestApplication(t, config)

	if stats := app.GetPerformanceStats(); stats.FrameCount != 0 {
		t.Errorf("expected no frames before Run, got %d", stats.FrameCount)
	}

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := app.GetPerformanceStats()
	if stats.FrameCount != 3 {
		t.Errorf("expected 3 frames, got %d", stats.FrameCount)
	}
	if stats.EmulationTime <= 0 {
		t.Error("expected the last frame's emulation time to be recorded")
	}
	if stats.CycleCount == 0 {
		t.Error("expected CPU cycles to be counted")
	}
}
