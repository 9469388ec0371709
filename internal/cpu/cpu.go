// Package cpu implements the Intel 8080 CPU together with the Space Invaders
// I/O ports (input latches and the external shift register).
package cpu

import (
	"fmt"
	"log"

	"invaders/internal/memory"
)

// Timing constants
const (
	// CyclesPerHalfFrame is the budget executed before each of the two
	// video interrupts raised per frame
	CyclesPerHalfFrame = 16600

	// MidFrameInterrupt is raised when the beam reaches the middle of the screen
	MidFrameInterrupt = 1
	// EndFrameInterrupt is raised at vertical blank
	EndFrameInterrupt = 2
)

// CPU represents the 8080 processor and the ports wired to it
type CPU struct {
	// Registers
	A  uint8
	B  uint8
	C  uint8
	D  uint8
	E  uint8
	H  uint8
	L  uint8
	PC uint16

	Flags Flags
	stack Stack
	ram   *memory.RAM

	// Input latches read through ports 1 and 2
	In1 uint8
	In2 uint8

	// External shift register: port 4 feeds it, port 2 sets the read
	// offset, port 3 reads it
	shiftRegister       uint16
	shiftRegisterOffset uint8

	// Sound and watchdog ports are latched but have no effect on emulation
	soundPort1 uint8
	soundPort2 uint8
	watchdog   uint8

	interruptsEnabled bool

	// Cycle counter
	cycles uint64

	table *Table

	// Debug
	enableTrace         bool
	enableLoopDetection bool
	lastPC              uint16
	pcStayCount         int
}

// New creates a CPU whose memory is initialised from image.
// All registers are zero, PC is 0, SP is at the top of memory and
// interrupts are enabled.
func New(image []byte) *CPU {
	return NewWithTable(image, DefaultTable())
}

// NewWithTable creates a CPU that executes with the given opcode table
func NewWithTable(image []byte, table *Table) *CPU {
	return &CPU{
		stack:             newStack(),
		ram:               memory.New(image),
		interruptsEnabled: true,
		table:             table,
	}
}

// Memory returns the CPU's address space
func (cpu *CPU) Memory() *memory.RAM {
	return cpu.ram
}

// Stack returns the stack register
func (cpu *CPU) Stack() *Stack {
	return &cpu.stack
}

// Cycles returns the total number of cycles executed
func (cpu *CPU) Cycles() uint64 {
	return cpu.cycles
}

// InterruptsEnabled reports the interrupt enable flip-flop
func (cpu *CPU) InterruptsEnabled() bool {
	return cpu.interruptsEnabled
}

// nextByte fetches the byte at PC and advances PC
func (cpu *CPU) nextByte() uint8 {
	value := cpu.ram.Read(cpu.PC)
	cpu.PC++
	return value
}

// nextAddress fetches a little-endian 16-bit operand
func (cpu *CPU) nextAddress() uint16 {
	low := cpu.nextByte()
	high := cpu.nextByte()
	return addressFromHighLow(high, low)
}

// Step executes a single instruction and returns the cycles it took
func (cpu *CPU) Step() uint8 {
	currentPC := cpu.PC
	opcode := &cpu.table[cpu.nextByte()]

	if cpu.enableLoopDetection {
		cpu.detectInfiniteLoop(currentPC, opcode)
	}
	if cpu.enableTrace {
		cpu.logInstruction(currentPC, opcode)
	}

	opcode.Exec(cpu)
	cpu.cycles += uint64(opcode.Cycles)
	return opcode.Cycles
}

// RunFrame executes one video frame: a half-frame budget followed by the
// mid-screen interrupt, then another budget followed by the vblank interrupt.
func (cpu *CPU) RunFrame() {
	for _, number := range [...]uint16{MidFrameInterrupt, EndFrameInterrupt} {
		var cycleCount uint16
		for cycleCount <= CyclesPerHalfFrame {
			cycleCount += uint16(cpu.Step())
		}

		cpu.Interrupt(number)
	}
}

// Interrupt vectors execution to number*8 when interrupts are enabled and
// disables further interrupts until EI. A disabled CPU ignores the request;
// interrupts are neither queued nor nested.
func (cpu *CPU) Interrupt(number uint16) {
	if !cpu.interruptsEnabled {
		return
	}

	cpu.interruptsEnabled = false
	cpu.stack.pushAddress(cpu.ram, cpu.PC)
	cpu.PC = number << 3
}

// SetInputBit sets or clears one bit of an input latch. Player 1 drives
// In1, player 2 drives In2; other players are ignored.
func (cpu *CPU) SetInputBit(player, bit uint8, pressed bool) {
	var latch *uint8
	switch player {
	case 1:
		latch = &cpu.In1
	case 2:
		latch = &cpu.In2
	default:
		return
	}

	if pressed {
		*latch |= 1 << bit
	} else {
		*latch &^= 1 << bit
	}
}

// SoundPorts returns the last values written to the two sound ports
func (cpu *CPU) SoundPorts() (uint8, uint8) {
	return cpu.soundPort1, cpu.soundPort2
}

// readPort implements IN
func (cpu *CPU) readPort(port uint8) {
	switch port {
	case 1:
		cpu.A = cpu.In1
	case 2:
		cpu.A = cpu.In2
	case 3:
		shiftAmount := 8 - cpu.shiftRegisterOffset
		cpu.A = uint8(cpu.shiftRegister >> shiftAmount)
	}
}

// writePort implements OUT
func (cpu *CPU) writePort(port uint8) {
	switch port {
	case 2:
		cpu.shiftRegisterOffset = cpu.A & 0x07
	case 3:
		cpu.soundPort1 = cpu.A
	case 4:
		cpu.shiftRegister = uint16(cpu.A)<<8 | cpu.shiftRegister>>8
	case 5:
		cpu.soundPort2 = cpu.A
	case 6:
		cpu.watchdog = cpu.A
	}
}

// State is a copy of everything that defines the CPU apart from memory
type State struct {
	A                   uint8  `json:"a"`
	B                   uint8  `json:"b"`
	C                   uint8  `json:"c"`
	D                   uint8  `json:"d"`
	E                   uint8  `json:"e"`
	H                   uint8  `json:"h"`
	L                   uint8  `json:"l"`
	PC                  uint16 `json:"pc"`
	SP                  uint16 `json:"sp"`
	StackMin            uint16 `json:"stack_min"`
	StackMax            uint16 `json:"stack_max"`
	Flags               uint8  `json:"flags"`
	In1                 uint8  `json:"in1"`
	In2                 uint8  `json:"in2"`
	ShiftRegister       uint16 `json:"shift_register"`
	ShiftRegisterOffset uint8  `json:"shift_register_offset"`
	InterruptsEnabled   bool   `json:"interrupts_enabled"`
	Cycles              uint64 `json:"cycles"`
}

// State captures the register state
func (cpu *CPU) State() State {
	return State{
		A: cpu.A, B: cpu.B, C: cpu.C, D: cpu.D, E: cpu.E, H: cpu.H, L: cpu.L,
		PC:                  cpu.PC,
		SP:                  cpu.stack.pointer,
		StackMin:            cpu.stack.min,
		StackMax:            cpu.stack.max,
		Flags:               cpu.Flags.Byte(),
		In1:                 cpu.In1,
		In2:                 cpu.In2,
		ShiftRegister:       cpu.shiftRegister,
		ShiftRegisterOffset: cpu.shiftRegisterOffset,
		InterruptsEnabled:   cpu.interruptsEnabled,
		Cycles:              cpu.cycles,
	}
}

// SetState restores a state captured with State
func (cpu *CPU) SetState(state State) {
	cpu.A, cpu.B, cpu.C, cpu.D, cpu.E, cpu.H, cpu.L = state.A, state.B, state.C, state.D, state.E, state.H, state.L
	cpu.PC = state.PC
	cpu.stack = Stack{pointer: state.SP, min: state.StackMin, max: state.StackMax}
	cpu.Flags = FlagsFromByte(state.Flags)
	cpu.In1 = state.In1
	cpu.In2 = state.In2
	cpu.shiftRegister = state.ShiftRegister
	cpu.shiftRegisterOffset = state.ShiftRegisterOffset & 0x07
	cpu.interruptsEnabled = state.InterruptsEnabled
	cpu.cycles = state.Cycles
}

// CPU Debug Methods

// EnableTrace enables/disables per-instruction logging
func (cpu *CPU) EnableTrace(enable bool) {
	cpu.enableTrace = enable
}

// EnableLoopDetection enables/disables reporting of a PC that never moves
func (cpu *CPU) EnableLoopDetection(enable bool) {
	cpu.enableLoopDetection = enable
}

// detectInfiniteLoop detects when the CPU is stuck at the same PC
func (cpu *CPU) detectInfiniteLoop(pc uint16, opcode *Opcode) {
	if pc != cpu.lastPC {
		cpu.pcStayCount = 0
		cpu.lastPC = pc
		return
	}

	cpu.pcStayCount++
	if cpu.pcStayCount%10000 == 0 {
		log.Printf("[CPU_LOOP] stuck at PC=$%04X executing %s for %d steps | %s",
			pc, opcode.Name, cpu.pcStayCount, cpu.registersString())
	}
}

// logInstruction logs an instruction before it executes
func (cpu *CPU) logInstruction(pc uint16, opcode *Opcode) {
	log.Printf("[CPU_TRACE] PC=$%04X: %-10s (0x%02X) | %s", pc, opcode.Name, opcode.Key, cpu.registersString())
}

func (cpu *CPU) registersString() string {
	return fmt.Sprintf("A=$%02X BC=$%02X%02X DE=$%02X%02X HL=$%02X%02X SP=$%04X %s",
		cpu.A, cpu.B, cpu.C, cpu.D, cpu.E, cpu.H, cpu.L, cpu.stack.pointer, cpu.Flags.short())
}
