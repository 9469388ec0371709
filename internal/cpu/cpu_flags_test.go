package cpu

import (
	"testing"

	"invaders/internal/memory"
)

func TestFlags_ShouldRoundTripEveryByte(t *testing.T) {
	for value := 0; value <= 0xFF; value++ {
		if got := FlagsFromByte(uint8(value)).Byte(); got != uint8(value) {
			t.Errorf("Expected 0x%02X to round-trip, got 0x%02X", value, got)
		}
	}
}

func TestFlags_BitLayout(t *testing.T) {
	tests := []struct {
		name     string
		flags    Flags
		expected uint8
	}{
		{"Negative", Flags{Negative: true}, 0x80},
		{"Zero", Flags{Zero: true}, 0x40},
		{"AuxCarry", Flags{AuxCarry: true}, 0x10},
		{"Even", Flags{Even: true}, 0x04},
		{"Carry", Flags{Carry: true}, 0x01},
		{"None", Flags{}, 0x00},
	}

	for _, test := range tests {
		if got := test.flags.Byte(); got != test.expected {
			t.Errorf("%s: Expected 0x%02X, got 0x%02X", test.name, test.expected, got)
		}
	}
}

func TestFlags_EqualIgnoresAuxAndReserved(t *testing.T) {
	a := Flags{Zero: true, Carry: true}
	b := Flags{Zero: true, Carry: true, AuxCarry: true, Reserved1: true}

	if !a.Equal(b) {
		t.Errorf("Expected %v to equal %v", a, b)
	}
	if a.Equal(Flags{Zero: true}) {
		t.Error("Expected flags differing in carry to be unequal")
	}
}

func TestUpdateArithmeticFlags(t *testing.T) {
	tests := []struct {
		value                   uint16
		negative, zero, even, c bool
	}{
		{0x0000, false, true, true, false},
		{0x0001, false, false, false, false},
		{0x0080, true, false, false, false},
		{0x00FF, true, false, true, false},
		{0x0100, false, true, true, true},
		{0x0103, false, false, true, true},
	}

	cpu := New(nil)
	for _, test := range tests {
		cpu.updateArithmeticFlags(test.value)
		f := cpu.Flags
		if f.Negative != test.negative || f.Zero != test.zero || f.Even != test.even || f.Carry != test.c {
			t.Errorf("0x%04X: got %v", test.value, f)
		}
		if f.AuxCarry != f.Carry {
			t.Errorf("0x%04X: Expected aux carry to mirror carry", test.value)
		}
	}
}

func TestStack_ShouldBeLIFO(t *testing.T) {
	ram := memory.New(nil)
	stack := newStack()
	stack.SetPointer(0x2400)

	for _, value := range []uint8{1, 2, 3} {
		stack.pushByte(ram, value)
	}
	for _, expected := range []uint8{3, 2, 1} {
		if got := stack.popByte(ram); got != expected {
			t.Errorf("Expected %d, got %d", expected, got)
		}
	}
	if stack.Pointer() != 0x2400 {
		t.Errorf("Expected pointer back at 0x2400, got 0x%04X", stack.Pointer())
	}
}

func TestStack_ShouldWrapAfterFullWindow(t *testing.T) {
	ram := memory.New(nil)
	stack := newStack()
	stack.SetPointer(0x2400)

	for i := 0; i < 255; i++ {
		stack.pushByte(ram, uint8(i))
	}
	if stack.Pointer() != 0x2301 {
		t.Fatalf("Expected pointer at bottom of window 0x2301, got 0x%04X", stack.Pointer())
	}

	stack.pushByte(ram, 0xEE)

	if stack.Pointer() != 0x2400 {
		t.Errorf("Expected push to wrap to 0x2400, got 0x%04X", stack.Pointer())
	}
	if ram.Read(0x2400) != 0xEE {
		t.Errorf("Expected wrapped push stored at 0x2400, got 0x%02X", ram.Read(0x2400))
	}
	if ram.Read(0x2300) != 0x00 {
		t.Errorf("Expected memory below window untouched, got 0x%02X", ram.Read(0x2300))
	}
}

func TestStack_FullWindowRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		start uint16
	}{
		{"inside memory", 0x2400},
		{"window wrapping through zero", 0x0010},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ram := memory.New(nil)
			stack := newStack()
			stack.SetPointer(test.start)

			for i := 0; i < 256; i++ {
				stack.pushByte(ram, uint8(i))
			}
			for i := 255; i >= 0; i-- {
				if got := stack.popByte(ram); got != uint8(i) {
					t.Fatalf("Pop %d: expected %d, got %d", 255-i, i, got)
				}
			}
			if stack.Pointer() != test.start {
				t.Errorf("Expected pointer back at 0x%04X, got 0x%04X", test.start, stack.Pointer())
			}

			for i := 0; i < 256; i++ {
				stack.pushByte(ram, uint8(i))
			}
			first := test.start - 1
			if ram.Read(first) != 0 {
				t.Fatalf("Expected first push at 0x%04X, got 0x%02X", first, ram.Read(first))
			}

			stack.pushByte(ram, 0xAA)

			if stack.Pointer() != first {
				t.Errorf("Expected 257th push at 0x%04X, got 0x%04X", first, stack.Pointer())
			}
			if ram.Read(first) != 0xAA {
				t.Errorf("Expected 257th push to overwrite the first, got 0x%02X", ram.Read(first))
			}
		})
	}
}

func TestStack_PopAtTopShouldWrapToBottom(t *testing.T) {
	ram := memory.New(nil)
	ram.Write(0x2400, 0x5A)
	stack := newStack()
	stack.SetPointer(0x2400)

	if got := stack.popByte(ram); got != 0x5A {
		t.Errorf("Expected 0x5A, got 0x%02X", got)
	}
	if stack.Pointer() != 0x2301 {
		t.Errorf("Expected pointer to wrap to 0x2301, got 0x%04X", stack.Pointer())
	}
}

func TestStack_AddressByteOrder(t *testing.T) {
	ram := memory.New(nil)
	stack := newStack()
	stack.SetPointer(0x2400)

	stack.pushAddress(ram, 0xBEEF)

	if ram.Read(0x23FF) != 0xBE || ram.Read(0x23FE) != 0xEF {
		t.Errorf("Expected high byte above low byte, got 0x%02X 0x%02X", ram.Read(0x23FF), ram.Read(0x23FE))
	}
	if got := stack.popAddress(ram); got != 0xBEEF {
		t.Errorf("Expected 0xBEEF, got 0x%04X", got)
	}
}
