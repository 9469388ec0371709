package cpu

import (
	"fmt"
	"math/bits"
	"sort"
	"sync"
)

// Opcode is one instruction byte, its mnemonic, its fixed cost and its behaviour
type Opcode struct {
	Key    uint8
	Name   string
	Cycles uint8
	Exec   func(cpu *CPU)
}

// Table maps every instruction byte to its Opcode. It holds no per-CPU
// state and can be shared between CPUs.
type Table [256]Opcode

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// DefaultTable returns the shared 8080 opcode table, building it on first use
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		defaultTable = NewTable()
	})
	return defaultTable
}

// NewTable builds and validates the opcode table. A missing or duplicated
// opcode is a programming error and panics.
func NewTable() *Table {
	table, err := buildTable(opcodeDefinitions())
	if err != nil {
		panic(err)
	}
	return table
}

// buildTable checks that definitions cover every byte exactly once and
// arranges them so that table[key] is the opcode for key
func buildTable(definitions []Opcode) (*Table, error) {
	counts := make(map[uint8]int, len(definitions))
	for _, opcode := range definitions {
		counts[opcode.Key]++
	}

	for key := 0; key <= 0xFF; key++ {
		switch counts[uint8(key)] {
		case 0:
			return nil, fmt.Errorf("opcode 0x%02X is not implemented", key)
		case 1:
		default:
			return nil, fmt.Errorf("opcode 0x%02X is implemented twice", key)
		}
	}

	sorted := make([]Opcode, len(definitions))
	copy(sorted, definitions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var table Table
	copy(table[:], sorted)
	return &table, nil
}

// operandRegisters is the 3-bit register encoding used by MOV, MVI, INR,
// DCR and the accumulator group
var operandRegisters = [8]Register{B, C, D, E, H, L, M, A}

// operandCost returns cheap for a register operand and expensive for M
func operandCost(register Register, cheap, expensive uint8) uint8 {
	if register == M {
		return expensive
	}
	return cheap
}

type condition struct {
	name string
	test func(Flags) bool
}

// conditions in 3-bit encoding order: NZ Z NC C PO PE P M
var conditions = [8]condition{
	{"NZ", func(f Flags) bool { return !f.Zero }},
	{"Z", func(f Flags) bool { return f.Zero }},
	{"NC", func(f Flags) bool { return !f.Carry }},
	{"C", func(f Flags) bool { return f.Carry }},
	{"PO", func(f Flags) bool { return !f.Even }},
	{"PE", func(f Flags) bool { return f.Even }},
	{"P", func(f Flags) bool { return !f.Negative }},
	{"M", func(f Flags) bool { return f.Negative }},
}

func opcodeDefinitions() []Opcode {
	opcodes := []Opcode{
		{0x00, "NOP", 4, nop},
		{0x76, "HLT", 4, nop},

		{0x3A, "LDA", 13, readAddressThen(lda)},
		{0x0A, "LDAX B", 7, ldax(BC)},
		{0x1A, "LDAX D", 7, ldax(DE)},
		{0x01, "LXI B", 10, readAddressThen(lxi(BC))},
		{0x11, "LXI D", 10, readAddressThen(lxi(DE))},
		{0x21, "LXI H", 10, readAddressThen(lxi(HL))},
		{0x31, "LXI SP", 10, readAddressThen(lxi(SP))},
		{0x2A, "LHLD", 16, readAddressThen(lhld)},
		{0x32, "STA", 13, readAddressThen(sta)},
		{0x02, "STAX B", 7, stax(BC)},
		{0x12, "STAX D", 7, stax(DE)},
		{0x22, "SHLD", 16, readAddressThen(shld)},

		{0xE6, "ANI", 7, readByteThen(ani)},
		{0xEE, "XRI", 7, readByteThen(xri)},
		{0xF6, "ORI", 7, readByteThen(ori)},
		{0xC6, "ADI", 7, readByteThen(adi)},
		{0xCE, "ACI", 7, readByteThen(aci)},
		{0xD6, "SUI", 7, readByteThen(sui)},
		{0xDE, "SBI", 7, readByteThen(sbi)},
		{0xFE, "CPI", 7, readByteThen(cpi)},

		{0x07, "RLC", 4, rlc},
		{0x0F, "RRC", 4, rrc},
		{0x17, "RAL", 4, ral},
		{0x1F, "RAR", 4, rar},

		{0x03, "INX B", 5, inx(BC)},
		{0x13, "INX D", 5, inx(DE)},
		{0x23, "INX H", 5, inx(HL)},
		{0x33, "INX SP", 5, inx(SP)},
		{0x0B, "DCX B", 5, dcx(BC)},
		{0x1B, "DCX D", 5, dcx(DE)},
		{0x2B, "DCX H", 5, dcx(HL)},
		{0x3B, "DCX SP", 5, dcx(SP)},
		{0x09, "DAD B", 10, dad(BC)},
		{0x19, "DAD D", 10, dad(DE)},
		{0x29, "DAD H", 10, dad(HL)},
		{0x39, "DAD SP", 10, dad(SP)},

		{0xC5, "PUSH B", 11, push(BC)},
		{0xD5, "PUSH D", 11, push(DE)},
		{0xE5, "PUSH H", 11, push(HL)},
		{0xF5, "PUSH PSW", 11, push(PSW)},
		{0xC1, "POP B", 10, pop(BC)},
		{0xD1, "POP D", 10, pop(DE)},
		{0xE1, "POP H", 10, pop(HL)},
		{0xF1, "POP PSW", 10, pop(PSW)},

		{0xC3, "JMP", 10, readAddressThen(jmp)},
		{0xCD, "CALL", 17, readAddressThen(call)},
		{0xC9, "RET", 11, ret},

		{0x27, "DAA", 4, daa},
		{0x2F, "CMA", 4, cma},
		{0x37, "STC", 4, stc},
		{0x3F, "CMC", 4, cmc},
		{0xE9, "PCHL", 5, pchl},
		{0xF9, "SPHL", 5, sphl},
		{0xEB, "XCHG", 4, xchg},
		{0xE3, "XTHL", 18, xthl},
		{0xF3, "DI", 4, di},
		{0xFB, "EI", 4, ei},
		{0xD3, "OUT", 10, readByteThen(out)},
		{0xDB, "IN", 10, readByteThen(in)},
	}

	// Undocumented bytes behave as NOP on this machine
	for _, key := range []uint8{0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38, 0xCB, 0xD9, 0xDD, 0xED, 0xFD} {
		opcodes = append(opcodes, Opcode{key, "*NOP", 4, nop})
	}

	// MOV dst,src: 01dddsss, 0x76 (MOV M,M) is HLT
	for code := 0x40; code <= 0x7F; code++ {
		if code == 0x76 {
			continue
		}
		to := operandRegisters[(code>>3)&7]
		from := operandRegisters[code&7]
		cycles := operandCost(to, 5, 7)
		if from == M {
			cycles = 7
		}
		opcodes = append(opcodes, Opcode{uint8(code), fmt.Sprintf("MOV %s,%s", to, from), cycles, mov(from, to)})
	}

	for index, register := range operandRegisters {
		code := uint8(index)

		opcodes = append(opcodes,
			Opcode{0x06 | code<<3, "MVI " + register.String(), operandCost(register, 7, 10), readByteThen(mvi(register))},
			Opcode{0x04 | code<<3, "INR " + register.String(), operandCost(register, 5, 10), inr(register)},
			Opcode{0x05 | code<<3, "DCR " + register.String(), operandCost(register, 5, 10), dcr(register)},
		)

		// Accumulator group: 10ooosss
		cycles := operandCost(register, 4, 7)
		opcodes = append(opcodes,
			Opcode{0x80 | code, "ADD " + register.String(), cycles, withOperand(register, adi)},
			Opcode{0x88 | code, "ADC " + register.String(), cycles, withOperand(register, aci)},
			Opcode{0x90 | code, "SUB " + register.String(), cycles, withOperand(register, sui)},
			Opcode{0x98 | code, "SBB " + register.String(), cycles, withOperand(register, sbi)},
			Opcode{0xA0 | code, "ANA " + register.String(), cycles, withOperand(register, ani)},
			Opcode{0xA8 | code, "XRA " + register.String(), cycles, withOperand(register, xri)},
			Opcode{0xB0 | code, "ORA " + register.String(), cycles, withOperand(register, ori)},
			Opcode{0xB8 | code, "CMP " + register.String(), cycles, withOperand(register, cpi)},
		)
	}

	for index, cond := range conditions {
		code := uint8(index) << 3
		opcodes = append(opcodes,
			Opcode{0xC2 | code, "J" + cond.name, 10, readAddressThen(jmpIf(cond.test))},
			Opcode{0xC4 | code, "C" + cond.name, 14, readAddressThen(callIf(cond.test))},
			Opcode{0xC0 | code, "R" + cond.name, 8, retIf(cond.test)},
			Opcode{0xC7 | code, fmt.Sprintf("RST %d", index), 10, rst(uint16(code))},
		)
	}

	return opcodes
}

// Operand fetch wrappers

func readByteThen(exec func(cpu *CPU, value uint8)) func(cpu *CPU) {
	return func(cpu *CPU) {
		exec(cpu, cpu.nextByte())
	}
}

func readAddressThen(exec func(cpu *CPU, address uint16)) func(cpu *CPU) {
	return func(cpu *CPU) {
		exec(cpu, cpu.nextAddress())
	}
}

// withOperand feeds the value of a register (or M) to an immediate handler
func withOperand(register Register, exec func(cpu *CPU, value uint8)) func(cpu *CPU) {
	return func(cpu *CPU) {
		exec(cpu, uint8(cpu.ReadRegister(register)))
	}
}

// updateArithmeticFlags derives the flags from a widened result.
// Aux carry mirrors carry here; individual opcodes override it.
func (cpu *CPU) updateArithmeticFlags(value uint16) {
	low := uint8(value)
	cpu.Flags.Zero = low == 0
	cpu.Flags.Negative = low > 0x7F
	cpu.Flags.Even = bits.OnesCount8(low)%2 == 0
	cpu.Flags.Carry = value > 0xFF
	cpu.Flags.AuxCarry = value > 0xFF
}

// setCarries sets carry and aux carry together
func (cpu *CPU) setCarries(carry bool) {
	cpu.Flags.AuxCarry = carry
	cpu.Flags.Carry = carry
}

func (cpu *CPU) carryBit() uint16 {
	if cpu.Flags.Carry {
		return 1
	}
	return 0
}

// Data movement

func nop(cpu *CPU) {}

func mov(from, to Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		cpu.WriteRegister(to, cpu.ReadRegister(from))
	}
}

func mvi(to Register) func(cpu *CPU, value uint8) {
	return func(cpu *CPU, value uint8) {
		cpu.WriteRegister(to, uint16(value))
	}
}

func lda(cpu *CPU, address uint16) {
	cpu.A = cpu.ram.Read(address)
}

func ldax(from Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		cpu.A = cpu.ram.Read(cpu.ReadRegister(from))
	}
}

func lxi(to Register) func(cpu *CPU, value uint16) {
	return func(cpu *CPU, value uint16) {
		cpu.WriteRegister(to, value)
	}
}

func lhld(cpu *CPU, address uint16) {
	cpu.L = cpu.ram.Read(address)
	cpu.H = cpu.ram.Read(address + 1)
}

func sta(cpu *CPU, address uint16) {
	cpu.ram.Write(address, cpu.A)
}

func stax(to Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		cpu.ram.Write(cpu.ReadRegister(to), cpu.A)
	}
}

func shld(cpu *CPU, address uint16) {
	cpu.ram.Write(address, cpu.L)
	cpu.ram.Write(address+1, cpu.H)
}

// Logic

func ani(cpu *CPU, value uint8) {
	result := uint16(cpu.A) & uint16(value)
	cpu.A = uint8(result)
	cpu.updateArithmeticFlags(result)
}

func xri(cpu *CPU, value uint8) {
	result := uint16(cpu.A) ^ uint16(value)
	cpu.A = uint8(result)
	cpu.updateArithmeticFlags(result)
}

func ori(cpu *CPU, value uint8) {
	result := uint16(cpu.A) | uint16(value)
	cpu.A = uint8(result)
	cpu.updateArithmeticFlags(result)
}

// Rotates

func rlc(cpu *CPU) {
	bit := cpu.A >> 7
	cpu.Flags.Carry = bit == 1
	cpu.A = cpu.A<<1 | bit
}

func rrc(cpu *CPU) {
	bit := cpu.A & 1
	cpu.Flags.Carry = bit == 1
	cpu.A = bit<<7 | cpu.A>>1
}

func ral(cpu *CPU) {
	bit := uint8(cpu.carryBit())
	cpu.Flags.Carry = cpu.A>>7 == 1
	cpu.A = cpu.A<<1 | bit
}

func rar(cpu *CPU) {
	bit := uint8(cpu.carryBit())
	cpu.Flags.Carry = cpu.A&1 == 1
	cpu.A = bit<<7 | cpu.A>>1
}

// Arithmetic

func adi(cpu *CPU, value uint8) {
	result := uint16(cpu.A) + uint16(value)
	cpu.A = uint8(result)
	cpu.updateArithmeticFlags(result)
}

func aci(cpu *CPU, value uint8) {
	result := uint16(cpu.A) + uint16(value) + cpu.carryBit()
	cpu.A = uint8(result)
	cpu.updateArithmeticFlags(result)
}

// Subtraction wraps in 16 bits, so a borrow shows up as a result above 0xFF

func sui(cpu *CPU, value uint8) {
	result := uint16(cpu.A) - uint16(value)
	cpu.A = uint8(result)
	cpu.updateArithmeticFlags(result)
	cpu.setCarries(result > 0xFF)
}

func sbi(cpu *CPU, value uint8) {
	result := uint16(cpu.A) - uint16(value) - cpu.carryBit()
	cpu.A = uint8(result)
	cpu.updateArithmeticFlags(result)
	cpu.setCarries(result > 0xFF)
}

func cpi(cpu *CPU, value uint8) {
	result := uint16(cpu.A) - uint16(value)
	cpu.updateArithmeticFlags(result)
	cpu.setCarries(result > 0xFF)
}

func inr(target Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		old := cpu.ReadRegister(target)
		result := old + 1
		cpu.WriteRegister(target, result)
		cpu.updateArithmeticFlags(result)
		cpu.setCarries(old == 0xFF)
	}
}

func dcr(target Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		old := cpu.ReadRegister(target)
		result := old - 1
		cpu.WriteRegister(target, result)
		cpu.updateArithmeticFlags(result)
		cpu.setCarries(old == 0)
	}
}

func inx(target Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		old := cpu.ReadRegister(target)
		result := old + 1
		cpu.WriteRegister(target, result)
		cpu.updateArithmeticFlags(result)
		cpu.setCarries(old == 0xFFFF)
	}
}

func dcx(target Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		old := cpu.ReadRegister(target)
		result := old - 1
		cpu.WriteRegister(target, result)
		cpu.updateArithmeticFlags(result)
		cpu.setCarries(old == 0)
	}
}

func dad(target Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		sum := uint32(cpu.ReadRegister(HL)) + uint32(cpu.ReadRegister(target))
		cpu.WriteRegister(HL, uint16(sum))
		cpu.updateArithmeticFlags(uint16(sum))
		cpu.setCarries(sum > 0xFFFF)
	}
}

// daa adjusts A to packed BCD after an addition
func daa(cpu *CPU) {
	lsb := cpu.A & 0x0F
	if lsb > 9 || cpu.Flags.AuxCarry {
		cpu.A += 6
		cpu.Flags.AuxCarry = lsb+6 > 0x0F
	}

	// the high nibble may have been bumped by the low adjustment
	msb := uint16(cpu.A >> 4)
	if msb > 9 || cpu.Flags.Carry {
		msb += 6
	}

	result := msb<<4 | uint16(cpu.A&0x0F)
	cpu.A = uint8(result)
	cpu.updateArithmeticFlags(result)
}

// Stack and control transfer

func push(from Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		cpu.stack.pushAddress(cpu.ram, cpu.ReadRegister(from))
	}
}

func pop(to Register) func(cpu *CPU) {
	return func(cpu *CPU) {
		cpu.WriteRegister(to, cpu.stack.popAddress(cpu.ram))
	}
}

func jmp(cpu *CPU, address uint16) {
	cpu.PC = address
}

func jmpIf(test func(Flags) bool) func(cpu *CPU, address uint16) {
	return func(cpu *CPU, address uint16) {
		if test(cpu.Flags) {
			jmp(cpu, address)
		}
	}
}

// call pushes PC, which already points past the operand bytes
func call(cpu *CPU, address uint16) {
	cpu.stack.pushAddress(cpu.ram, cpu.PC)
	cpu.PC = address
}

func callIf(test func(Flags) bool) func(cpu *CPU, address uint16) {
	return func(cpu *CPU, address uint16) {
		if test(cpu.Flags) {
			call(cpu, address)
		}
	}
}

func ret(cpu *CPU) {
	cpu.PC = cpu.stack.popAddress(cpu.ram)
}

func retIf(test func(Flags) bool) func(cpu *CPU) {
	return func(cpu *CPU) {
		if test(cpu.Flags) {
			ret(cpu)
		}
	}
}

func rst(address uint16) func(cpu *CPU) {
	return func(cpu *CPU) {
		call(cpu, address)
	}
}

// Exchange

func pchl(cpu *CPU) {
	cpu.WriteRegister(PC, cpu.ReadRegister(HL))
}

func sphl(cpu *CPU) {
	cpu.WriteRegister(SP, cpu.ReadRegister(HL))
}

func xchg(cpu *CPU) {
	hl := cpu.ReadRegister(HL)
	de := cpu.ReadRegister(DE)
	cpu.WriteRegister(HL, de)
	cpu.WriteRegister(DE, hl)
}

func xthl(cpu *CPU) {
	pointer := cpu.stack.Pointer()
	low := cpu.ram.Read(pointer)
	high := cpu.ram.Read(pointer + 1)
	cpu.ram.Write(pointer, cpu.L)
	cpu.ram.Write(pointer+1, cpu.H)
	cpu.L = low
	cpu.H = high
}

// Flags and interrupts

func cma(cpu *CPU) {
	cpu.A = ^cpu.A
}

func stc(cpu *CPU) {
	cpu.Flags.Carry = true
}

func cmc(cpu *CPU) {
	cpu.Flags.Carry = !cpu.Flags.Carry
}

func di(cpu *CPU) {
	cpu.interruptsEnabled = false
}

func ei(cpu *CPU) {
	cpu.interruptsEnabled = true
}

// I/O

func in(cpu *CPU, port uint8) {
	cpu.readPort(port)
}

func out(cpu *CPU, port uint8) {
	cpu.writePort(port)
}
