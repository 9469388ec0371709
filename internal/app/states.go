// Package app provides save state functionality for the emulator.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"invaders/internal/cpu"
	"invaders/internal/memory"
	"invaders/internal/rom"
	"invaders/internal/system"
)

// saveStateVersion is bumped whenever SaveState changes incompatibly
const saveStateVersion = "1.0"

// ErrNoSaveState is returned when a slot holds no state
var ErrNoSaveState = errors.New("no save state")

// StateManager manages save states
type StateManager struct {
	saveDirectory string
	maxSlots      int
	initialized   bool
}

// SaveState represents a saved emulator state
type SaveState struct {
	// Metadata
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	ROMSource   string    `json:"rom_source"`
	ROMChecksum string    `json:"rom_checksum"`
	SlotNumber  int       `json:"slot_number"`
	Description string    `json:"description"`

	// Emulator state
	CPU    cpu.State `json:"cpu"`
	Memory []byte    `json:"memory"`

	// Frame information
	FrameCount uint64 `json:"frame_count"`
}

// StateSlotInfo contains information about a save state slot
type StateSlotInfo struct {
	SlotNumber  int       `json:"slot_number"`
	Used        bool      `json:"used"`
	Timestamp   time.Time `json:"timestamp"`
	FrameCount  uint64    `json:"frame_count"`
	Description string    `json:"description"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
}

// NewStateManager creates a new state manager
func NewStateManager(saveDirectory string, maxSlots int) *StateManager {
	if maxSlots <= 0 {
		maxSlots = 10
	}
	manager := &StateManager{
		saveDirectory: saveDirectory,
		maxSlots:      maxSlots,
	}

	if err := manager.initialize(); err != nil {
		// Log error but continue
		log.Printf("[APP_WARNING] State manager initialization failed: %v", err)
	}

	return manager
}

// initialize creates the save directory
func (sm *StateManager) initialize() error {
	if err := os.MkdirAll(sm.saveDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}

	sm.initialized = true
	return nil
}

func (sm *StateManager) checkSlot(slot int) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}
	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}
	return nil
}

// Capture builds a save state from a running system
func Capture(sys *system.System, image *rom.ROM) *SaveState {
	return &SaveState{
		Version:     saveStateVersion,
		Timestamp:   time.Now(),
		ROMSource:   image.Source(),
		ROMChecksum: image.Checksum(),
		SlotNumber:  -1,
		CPU:         sys.CPU().State(),
		Memory:      sys.CPU().Memory().Snapshot(),
		FrameCount:  sys.Frame(),
	}
}

// SaveState saves the current emulator state to a slot
func (sm *StateManager) SaveState(sys *system.System, image *rom.ROM, slot int) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	state := Capture(sys, image)
	state.SlotNumber = slot
	state.Description = fmt.Sprintf("Slot %d at frame %d, %s", slot, state.FrameCount, state.Timestamp.Format("2006-01-02 15:04:05"))

	if err := sm.saveToFile(state, sm.getSlotFilePath(slot, image)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	return nil
}

// LoadState restores a slot into the system
func (sm *StateManager) LoadState(sys *system.System, image *rom.ROM, slot int) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	filePath := sm.getSlotFilePath(slot, image)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("slot %d: %w", slot, ErrNoSaveState)
	}

	state, err := sm.loadFromFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	return Restore(sys, image, state)
}

// Restore validates state against image and copies it into the system
func Restore(sys *system.System, image *rom.ROM, state *SaveState) error {
	if err := validateSaveState(state, image); err != nil {
		return fmt.Errorf("invalid save state: %w", err)
	}

	sys.CPU().SetState(state.CPU)
	sys.CPU().Memory().Restore(state.Memory)
	sys.SetFrame(state.FrameCount)

	return nil
}

// saveToFile saves a state to a file
func (sm *StateManager) saveToFile(state *SaveState, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// loadFromFile loads a state from a file
func (sm *StateManager) loadFromFile(filePath string) (*SaveState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var state SaveState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// validateSaveState checks a loaded state belongs to image
func validateSaveState(state *SaveState, image *rom.ROM) error {
	if state.Version == "" {
		return fmt.Errorf("missing version information")
	}
	if state.Version != saveStateVersion {
		return fmt.Errorf("unsupported version %s", state.Version)
	}
	if state.ROMChecksum != image.Checksum() {
		return fmt.Errorf("save state is for a different ROM")
	}
	if len(state.Memory) != memory.Size {
		return fmt.Errorf("memory snapshot is %d bytes, expected %d", len(state.Memory), memory.Size)
	}
	return nil
}

// getSlotFilePath generates the file path for a save slot
func (sm *StateManager) getSlotFilePath(slot int, image *rom.ROM) string {
	romName := filepath.Base(image.Source())
	romNameWithoutExt := strings.TrimSuffix(romName, filepath.Ext(romName))
	fileName := fmt.Sprintf("%s_%s_slot_%d.save", romNameWithoutExt, image.Checksum()[:8], slot)
	return filepath.Join(sm.saveDirectory, fileName)
}

// GetSlotInfo returns information about all save slots
func (sm *StateManager) GetSlotInfo(image *rom.ROM) []StateSlotInfo {
	slots := make([]StateSlotInfo, sm.maxSlots)

	for i := 0; i < sm.maxSlots; i++ {
		slotInfo := StateSlotInfo{
			SlotNumber: i,
			Used:       false,
		}

		filePath := sm.getSlotFilePath(i, image)
		if stat, err := os.Stat(filePath); err == nil {
			slotInfo.Used = true
			slotInfo.FilePath = filePath
			slotInfo.FileSize = stat.Size()
			slotInfo.Timestamp = stat.ModTime()

			if state, err := sm.loadFromFile(filePath); err == nil {
				slotInfo.Description = state.Description
				slotInfo.Timestamp = state.Timestamp
				slotInfo.FrameCount = state.FrameCount
			}
		}

		slots[i] = slotInfo
	}

	return slots
}

// DeleteState deletes a save state from a slot
func (sm *StateManager) DeleteState(image *rom.ROM, slot int) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	filePath := sm.getSlotFilePath(slot, image)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("slot %d: %w", slot, ErrNoSaveState)
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete save state: %w", err)
	}

	return nil
}

// HasSaveState checks if a save state exists in a slot
func (sm *StateManager) HasSaveState(image *rom.ROM, slot int) bool {
	if slot < 0 || slot >= sm.maxSlots {
		return false
	}

	_, err := os.Stat(sm.getSlotFilePath(slot, image))
	return err == nil
}

// GetMaxSlots returns the maximum number of save slots
func (sm *StateManager) GetMaxSlots() int {
	return sm.maxSlots
}

// GetSaveDirectory returns the save directory path
func (sm *StateManager) GetSaveDirectory() string {
	return sm.saveDirectory
}

// ExportState writes the current state to an arbitrary file
func (sm *StateManager) ExportState(sys *system.System, image *rom.ROM, filePath string) error {
	state := Capture(sys, image)
	state.Description = fmt.Sprintf("Export %s", state.Timestamp.Format("2006-01-02 15:04:05"))

	return sm.saveToFile(state, filePath)
}

// ImportState restores a state from an arbitrary file
func (sm *StateManager) ImportState(sys *system.System, image *rom.ROM, filePath string) error {
	state, err := sm.loadFromFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to import state: %w", err)
	}

	return Restore(sys, image, state)
}

// Cleanup cleans up state manager resources
func (sm *StateManager) Cleanup() error {
	sm.initialized = false
	return nil
}
