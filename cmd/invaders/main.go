// Package main implements the invaders arcade emulator executable.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"invaders/internal/app"
	"invaders/internal/debug"
	"invaders/internal/statsview"
	"invaders/internal/system"
	"invaders/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		romPath    = flag.String("rom", "", "Path to the program image, or a directory holding invaders.h/g/f/e")
		configFile = flag.String("config", "", "Path to configuration file")
		backend    = flag.String("backend", "", "Graphics backend: ebitengine, sdl, headless, terminal")
		frames     = flag.Int("frames", -1, "Stop after this many frames (0 runs until quit)")
		debugMode  = flag.Bool("debug", false, "Enable debug logging")
		trace      = flag.Bool("trace", false, "Log every executed instruction")
		dumpDir    = flag.String("dump-dir", "", "Write text dumps of video RAM into this directory")
		memvizFile = flag.String("memviz", "", "Write a Graphviz graph of the machine state here on exit")
		chartFile  = flag.String("frame-chart", "", "Write an HTML chart of frame timings here on exit")
		loadState  = flag.Int("load-state", -1, "Restore this save slot after loading the ROM")
		saveState  = flag.Int("save-state", -1, "Save to this slot on exit")
		stats      = flag.Bool("statsview", false, "Serve runtime charts over HTTP")
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		return 0
	}
	if *showVer {
		version.Read().Write(os.Stdout)
		return 0
	}
	if *romPath == "" {
		fmt.Fprintln(os.Stderr, "a ROM path is required (-rom)")
		printUsage()
		return 2
	}

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	config := app.NewConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		log.Printf("[APP_ERROR] Failed to load config: %v", err)
		return 1
	}

	if *backend != "" {
		config.Video.Backend = *backend
	}
	if *frames >= 0 {
		config.Emulation.MaxFrames = *frames
	}
	if *debugMode {
		config.Debug.EnableLogging = true
		config.Debug.LogLevel = "DEBUG"
	}
	if *trace {
		config.Debug.CPUTracing = true
	}
	if *stats {
		config.Debug.Statsview = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Debug.Statsview {
		statsview.Launch(ctx, config.Debug.StatsviewAddr, os.Stdout)
	}

	application, err := app.NewApplication(config)
	if err != nil {
		log.Printf("[APP_ERROR] Failed to create application: %v", err)
		return 1
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("[APP_ERROR] Application cleanup error: %v", err)
		}
	}()

	if err := application.LoadROM(*romPath); err != nil {
		log.Printf("[APP_ERROR] Failed to load ROM: %v", err)
		return 1
	}

	if *loadState >= 0 {
		if err := application.LoadState(*loadState); err != nil {
			log.Printf("[APP_ERROR] Failed to load state: %v", err)
			return 1
		}
	}

	if *dumpDir != "" {
		dumper := debug.NewFrameDumper(*dumpDir)
		if err := dumper.Enable(); err != nil {
			log.Printf("[APP_ERROR] Failed to enable frame dumps: %v", err)
			return 1
		}
		application.AddFrameHook(dumper.DumpFrame)
	}

	var chart *statsview.FrameChart
	if *chartFile != "" {
		chart = statsview.NewFrameChart(2048)
		application.AddFrameHook(func(sys *system.System) error {
			perf := application.GetPerformanceStats()
			chart.Record(statsview.Sample{
				Frame:     sys.Frame(),
				Emulation: perf.EmulationTime,
				Interval:  perf.FrameTime,
			})
			return nil
		})
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		log.Printf("[APP_ERROR] Emulation stopped: %v", runErr)
	}

	if *saveState >= 0 {
		if err := application.SaveState(*saveState); err != nil {
			log.Printf("[APP_ERROR] Failed to save state: %v", err)
		}
	}

	if chart != nil {
		if err := writeFrameChart(chart, *chartFile); err != nil {
			log.Printf("[APP_ERROR] Failed to write frame chart: %v", err)
		}
	}

	if *memvizFile != "" {
		if err := writeStateGraph(application, *memvizFile); err != nil {
			log.Printf("[APP_ERROR] Failed to write state graph: %v", err)
		}
	}

	log.Printf("[APP] Session ended after %d frames (%v)", application.GetFrameCount(), application.GetUptime())

	if runErr != nil {
		return 1
	}
	return 0
}

func writeStateGraph(application *app.Application, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	debug.WriteStateGraph(f, application.GetSystem())
	return nil
}

func writeFrameChart(chart *statsview.FrameChart, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return chart.Render(f)
}

func printUsage() {
	fmt.Println("invaders - Space Invaders arcade emulator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  invaders -rom <file|dir> [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  invaders -rom ./roms/invaders                      # Directory with invaders.h/g/f/e")
	fmt.Println("  invaders -rom invaders.rom -backend terminal       # Play in the terminal")
	fmt.Println("  invaders -rom invaders.rom -backend headless -frames 600 -dump-dir ./dumps")
	fmt.Println("  invaders -rom invaders.rom -frame-chart timing.html  # Frame timing report")
	fmt.Println()
	fmt.Println("CONTROLS (Default):")
	fmt.Println("  C                 - Insert coin")
	fmt.Println("  1 / 2             - One / two player start")
	fmt.Println("  Left / Right      - Player 1 move")
	fmt.Println("  Space             - Player 1 shoot")
	fmt.Println("  A / D             - Player 2 move")
	fmt.Println("  S                 - Player 2 shoot")
	fmt.Println("  Escape            - Quit")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Config file: ./config/invaders.json")
	fmt.Println("  Save States: ./states/")
	fmt.Println("  Dumps:       ./screenshots/")
}
