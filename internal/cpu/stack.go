package cpu

import "invaders/internal/memory"

// stackWindow is the size of the circular region established by SetPointer
const stackWindow = 0xFF

// Stack tracks the stack pointer together with the 256-byte window it was
// last set to. Pushing below the window wraps to its top and popping above
// it wraps to its bottom, so a runaway program cycles through the same
// 256 bytes rather than trashing the rest of memory.
type Stack struct {
	pointer uint16
	min     uint16
	max     uint16
}

// newStack returns the power-up stack: pointer at the top of memory, window
// spanning the whole address space
func newStack() Stack {
	return Stack{pointer: 0xFFFF, min: 0x0000, max: 0xFFFF}
}

// Pointer returns the current stack pointer
func (s *Stack) Pointer() uint16 {
	return s.pointer
}

// Bounds returns the current window as (min, max)
func (s *Stack) Bounds() (uint16, uint16) {
	return s.min, s.max
}

// SetPointer moves the stack and derives a new window ending at pointer
func (s *Stack) SetPointer(pointer uint16) {
	s.pointer = pointer
	s.max = pointer
	s.min = pointer - stackWindow
}

// span is the distance from the bottom of the window to the top
func (s *Stack) span() uint16 {
	return s.max - s.min
}

func (s *Stack) pushByte(ram *memory.RAM, value uint8) {
	s.pointer--

	// overflow: wrap to the top of the window
	if s.max-s.pointer > s.span() {
		s.pointer = s.max
	}

	ram.Write(s.pointer, value)
}

func (s *Stack) popByte(ram *memory.RAM) uint8 {
	value := ram.Read(s.pointer)

	// underflow: wrap to the bottom of the window
	if s.pointer == s.max {
		s.pointer = s.min
	} else {
		s.pointer++
	}

	return value
}

// pushAddress pushes the high byte first, so the low byte ends up at the
// lower address as the 8080 expects
func (s *Stack) pushAddress(ram *memory.RAM, address uint16) {
	s.pushByte(ram, uint8(address>>8))
	s.pushByte(ram, uint8(address&0xFF))
}

func (s *Stack) popAddress(ram *memory.RAM) uint16 {
	low := s.popByte(ram)
	high := s.popByte(ram)
	return addressFromHighLow(high, low)
}

func addressFromHighLow(high, low uint8) uint16 {
	return uint16(high)<<8 | uint16(low)
}
