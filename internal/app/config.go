// Package app provides configuration management and the host loop for the emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invaders/internal/graphics"
	"invaders/internal/system"
)

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Input     InputConfig     `json:"input"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Fullscreen bool `json:"fullscreen"`
	Scale      int  `json:"scale"` // pixels per video RAM bit
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	Backend string `json:"backend"` // "ebitengine", "sdl", "headless", "terminal"
	VSync   bool   `json:"vsync"`
	Filter  string `json:"filter"` // "nearest", "linear"
}

// InputConfig binds host keys to cabinet switches
type InputConfig struct {
	Keymap map[string]string `json:"keymap"`
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	// Pause between frames for backends without their own pacing
	FrameDelayMicros int `json:"frame_delay_us"`
	// Stop after this many frames, 0 runs until quit
	MaxFrames      int  `json:"max_frames"`
	SaveStateSlots int  `json:"save_state_slots"`
	LoopDetection  bool `json:"loop_detection"`
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	ShowFPS       bool   `json:"show_fps"`
	EnableLogging bool   `json:"enable_logging"`
	LogLevel      string `json:"log_level"` // "DEBUG", "INFO", "WARN", "ERROR"
	CPUTracing    bool   `json:"cpu_tracing"`
	Statsview     bool   `json:"statsview"`
	StatsviewAddr string `json:"statsview_addr"`
	DumpFrames    []int  `json:"dump_frames"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	ROMs        string `json:"roms"`
	SaveStates  string `json:"save_states"`
	Screenshots string `json:"screenshots"`
}

var validBackends = []string{
	string(graphics.BackendEbitengine),
	string(graphics.BackendSDL),
	string(graphics.BackendHeadless),
	string(graphics.BackendTerminal),
}

var validLogLevels = []string{"DEBUG", "INFO", "WARN", "ERROR"}

var logLevelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	keymap := make(map[string]string)
	for hostKey, key := range graphics.DefaultKeymap() {
		keymap[hostKey.String()] = key.String()
	}

	return &Config{
		Window: WindowConfig{
			Fullscreen: false,
			Scale:      system.DefaultBlockSize,
		},
		Video: VideoConfig{
			Backend: string(graphics.BackendEbitengine),
			VSync:   true,
			Filter:  "nearest",
		},
		Input: InputConfig{
			Keymap: keymap,
		},
		Emulation: EmulationConfig{
			FrameDelayMicros: 500,
			MaxFrames:        0,
			SaveStateSlots:   10,
			LoopDetection:    false,
		},
		Debug: DebugConfig{
			ShowFPS:       false,
			EnableLogging: false,
			LogLevel:      "INFO",
			CPUTracing:    false,
			Statsview:     false,
			StatsviewAddr: "localhost:12600",
		},
		Paths: PathsConfig{
			ROMs:        "./roms",
			SaveStates:  "./states",
			Screenshots: "./screenshots",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist - save default config and return
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	return c.SaveToFile(c.configPath)
}

// validate rejects values the emulator cannot run with and repairs the
// ones that have an obvious default
func (c *Config) validate() error {
	if c.Window.Scale <= 0 {
		c.Window.Scale = system.DefaultBlockSize
	}

	if !contains(validBackends, c.Video.Backend) {
		return &ConfigError{
			Field: "video.backend",
			Value: c.Video.Backend,
			Err:   fmt.Errorf("must be one of %s", strings.Join(validBackends, ", ")),
		}
	}

	if c.Video.Filter != "nearest" && c.Video.Filter != "linear" {
		c.Video.Filter = "nearest"
	}

	if _, err := c.Keymap(); err != nil {
		return &ConfigError{Field: "input.keymap", Value: c.Input.Keymap, Err: err}
	}

	if c.Emulation.FrameDelayMicros < 0 {
		c.Emulation.FrameDelayMicros = 0
	}

	if c.Emulation.MaxFrames < 0 {
		return &ConfigError{
			Field: "emulation.max_frames",
			Value: c.Emulation.MaxFrames,
			Err:   fmt.Errorf("must not be negative"),
		}
	}

	if c.Emulation.SaveStateSlots <= 0 {
		c.Emulation.SaveStateSlots = 10
	}

	c.Debug.LogLevel = strings.ToUpper(c.Debug.LogLevel)
	if !contains(validLogLevels, c.Debug.LogLevel) {
		c.Debug.LogLevel = "INFO"
	}

	if c.Debug.StatsviewAddr == "" {
		c.Debug.StatsviewAddr = "localhost:12600"
	}

	return nil
}

// LogsAt reports whether messages of level pass the configured log level.
// Debug messages additionally need enable_logging.
func (c *Config) LogsAt(level string) bool {
	rank, ok := logLevelRank[level]
	if !ok {
		return true
	}
	if level == "DEBUG" && !c.Debug.EnableLogging {
		return false
	}

	threshold, ok := logLevelRank[c.Debug.LogLevel]
	if !ok {
		threshold = logLevelRank["INFO"]
	}
	return rank >= threshold
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// Keymap parses the configured bindings. An empty keymap selects the defaults.
func (c *Config) Keymap() (graphics.Keymap, error) {
	if len(c.Input.Keymap) == 0 {
		return graphics.DefaultKeymap(), nil
	}
	return graphics.ParseKeymap(c.Input.Keymap)
}

// GetDisplayResolution returns the native resolution of the rotated screen
func (c *Config) GetDisplayResolution() (int, int) {
	return system.DisplayWidth, system.DisplayHeight
}

// GetWindowResolution returns the canvas resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	width, height := c.GetDisplayResolution()
	return width * c.Window.Scale, height * c.Window.Scale
}

// GraphicsConfig builds the backend configuration
func (c *Config) GraphicsConfig() (graphics.Config, error) {
	keymap, err := c.Keymap()
	if err != nil {
		return graphics.Config{}, err
	}

	width, height := c.GetWindowResolution()
	return graphics.Config{
		WindowTitle:  "Space Invaders",
		WindowWidth:  width,
		WindowHeight: height,
		Fullscreen:   c.Window.Fullscreen,
		VSync:        c.Video.VSync,
		Filter:       c.Video.Filter,
		ShowFPS:      c.Debug.ShowFPS,
		Keymap:       keymap,
		Headless:     c.Video.Backend == string(graphics.BackendHeadless),
		Debug:        c.LogsAt("DEBUG"),
		OutputDir:    c.Paths.Screenshots,
		DumpFrames:   c.Debug.DumpFrames,
	}, nil
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	// Marshal to JSON and back to create deep copy
	data, err := json.Marshal(c)
	if err != nil {
		return NewConfig() // Return default config on error
	}

	clone := &Config{}
	if err := json.Unmarshal(data, clone); err != nil {
		return NewConfig() // Return default config on error
	}

	// Copy non-serialized fields
	clone.configPath = c.configPath
	clone.loaded = c.loaded

	return clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/invaders.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
