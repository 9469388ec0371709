// Package system drives the emulated machine one video frame at a time:
// run the CPU through both interrupt phases, render video RAM to the host
// canvas and feed host input back into the CPU latches.
package system

import (
	"errors"
	"fmt"
	"log"

	"invaders/internal/cpu"
	"invaders/internal/input"
)

// System couples a CPU with its host frontend
type System struct {
	cpu       *cpu.CPU
	frontend  Frontend
	blockSize int
	frame     uint64
}

// Option configures a System
type Option func(*System)

// WithBlockSize sets the on-screen size of one emulated pixel
func WithBlockSize(size int) Option {
	return func(s *System) {
		if size > 0 {
			s.blockSize = size
		}
	}
}

// WithTrace enables per-instruction logging
func WithTrace(enable bool) Option {
	return func(s *System) {
		s.cpu.EnableTrace(enable)
	}
}

// WithLoopDetection enables reporting of a CPU stuck at one address
func WithLoopDetection(enable bool) Option {
	return func(s *System) {
		s.cpu.EnableLoopDetection(enable)
	}
}

// New creates a System running image on frontend
func New(image []byte, frontend Frontend, options ...Option) *System {
	s := &System{
		cpu:       cpu.New(image),
		frontend:  frontend,
		blockSize: DefaultBlockSize,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// RenderNextFrame advances the machine by one frame, draws it and applies
// pending input. Present failures and quit requests are returned; the
// caller decides whether to stop.
func (s *System) RenderNextFrame() error {
	s.cpu.RunFrame()
	s.frame++

	if err := s.Render(); err != nil {
		return fmt.Errorf("render frame %d: %w", s.frame, err)
	}

	if err := input.Apply(s.frontend.Events.PollEvents(), s.cpu); err != nil {
		if errors.Is(err, input.ErrQuit) {
			log.Printf("[SYSTEM] Quit requested at frame %d", s.frame)
		}
		return err
	}

	return nil
}

// Render draws the current video RAM without advancing the machine
func (s *System) Render() error {
	return Render(s.frontend.Canvas, s.cpu.Memory(), s.blockSize)
}

// Notify forwards a host event to the event source
func (s *System) Notify(event input.Event) {
	s.frontend.Events.Notify(event)
}

// Frame returns the number of frames executed
func (s *System) Frame() uint64 {
	return s.frame
}

// SetFrame overrides the frame counter, used when restoring a save state
func (s *System) SetFrame(frame uint64) {
	s.frame = frame
}

// CPU returns the emulated processor
func (s *System) CPU() *cpu.CPU {
	return s.cpu
}

// BlockSize returns the on-screen size of one emulated pixel
func (s *System) BlockSize() int {
	return s.blockSize
}

// CanvasSize returns the surface size the renderer draws into
func (s *System) CanvasSize() (width, height int) {
	return DisplayWidth * s.blockSize, DisplayHeight * s.blockSize
}
