package cpu

// Register names an operand that opcode handlers can read or write
// uniformly. M is the byte in memory addressed by H:L.
type Register int

const (
	A Register = iota
	B
	C
	D
	E
	H
	L
	PSW
	BC
	DE
	HL
	SP
	PC
	M
)

var registerNames = [...]string{"A", "B", "C", "D", "E", "H", "L", "PSW", "BC", "DE", "HL", "SP", "PC", "M"}

func (r Register) String() string {
	if r < 0 || int(r) >= len(registerNames) {
		return "?"
	}
	return registerNames[r]
}

// ReadRegister returns the value of any register, pair or M as a 16-bit value
func (cpu *CPU) ReadRegister(register Register) uint16 {
	switch register {
	case A:
		return uint16(cpu.A)
	case B:
		return uint16(cpu.B)
	case C:
		return uint16(cpu.C)
	case D:
		return uint16(cpu.D)
	case E:
		return uint16(cpu.E)
	case H:
		return uint16(cpu.H)
	case L:
		return uint16(cpu.L)
	case PSW:
		return addressFromHighLow(cpu.A, cpu.Flags.Byte())
	case BC:
		return addressFromHighLow(cpu.B, cpu.C)
	case DE:
		return addressFromHighLow(cpu.D, cpu.E)
	case HL:
		return addressFromHighLow(cpu.H, cpu.L)
	case SP:
		return cpu.stack.Pointer()
	case PC:
		return cpu.PC
	case M:
		return uint16(cpu.ram.Read(addressFromHighLow(cpu.H, cpu.L)))
	default:
		return 0
	}
}

// WriteRegister stores value into any register, pair or M. 8-bit targets
// keep the low byte; pairs take the high byte into the first register.
// Writing SP re-derives the stack window.
func (cpu *CPU) WriteRegister(register Register, value uint16) {
	high, low := uint8(value>>8), uint8(value&0xFF)

	switch register {
	case A:
		cpu.A = low
	case B:
		cpu.B = low
	case C:
		cpu.C = low
	case D:
		cpu.D = low
	case E:
		cpu.E = low
	case H:
		cpu.H = low
	case L:
		cpu.L = low
	case PSW:
		cpu.A = high
		cpu.Flags = FlagsFromByte(low)
	case BC:
		cpu.B, cpu.C = high, low
	case DE:
		cpu.D, cpu.E = high, low
	case HL:
		cpu.H, cpu.L = high, low
	case SP:
		cpu.stack.SetPointer(value)
	case PC:
		cpu.PC = value
	case M:
		cpu.ram.Write(addressFromHighLow(cpu.H, cpu.L), low)
	}
}
