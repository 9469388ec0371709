package cpu

import "fmt"

// Status register bit masks
const (
	negativeMask  = 0x80
	zeroMask      = 0x40
	reserved1Mask = 0x20
	auxCarryMask  = 0x10
	reserved2Mask = 0x08
	evenMask      = 0x04
	reserved3Mask = 0x02
	carryMask     = 0x01
)

// Flags is the 8080 condition code register. The reserved bits carry no
// meaning but are kept so that PUSH PSW / POP PSW round-trip every bit.
type Flags struct {
	Negative  bool // Sign
	Zero      bool
	Reserved1 bool
	AuxCarry  bool
	Reserved2 bool
	Even      bool // Parity
	Reserved3 bool
	Carry     bool
}

// FlagsFromByte unpacks a status byte
func FlagsFromByte(value uint8) Flags {
	return Flags{
		Negative:  value&negativeMask != 0,
		Zero:      value&zeroMask != 0,
		Reserved1: value&reserved1Mask != 0,
		AuxCarry:  value&auxCarryMask != 0,
		Reserved2: value&reserved2Mask != 0,
		Even:      value&evenMask != 0,
		Reserved3: value&reserved3Mask != 0,
		Carry:     value&carryMask != 0,
	}
}

// Byte packs the flags into a status byte
func (f Flags) Byte() uint8 {
	var status uint8
	if f.Negative {
		status |= negativeMask
	}
	if f.Zero {
		status |= zeroMask
	}
	if f.Reserved1 {
		status |= reserved1Mask
	}
	if f.AuxCarry {
		status |= auxCarryMask
	}
	if f.Reserved2 {
		status |= reserved2Mask
	}
	if f.Even {
		status |= evenMask
	}
	if f.Reserved3 {
		status |= reserved3Mask
	}
	if f.Carry {
		status |= carryMask
	}
	return status
}

// Equal compares the flags a program can branch on. Aux carry and the
// reserved bits are ignored.
func (f Flags) Equal(other Flags) bool {
	return f.Negative == other.Negative &&
		f.Zero == other.Zero &&
		f.Even == other.Even &&
		f.Carry == other.Carry
}

func (f Flags) String() string {
	return fmt.Sprintf("negative:%t zero:%t even:%t carry:%t", f.Negative, f.Zero, f.Even, f.Carry)
}

// short renders the flags in the compact form used by the tracer
func (f Flags) short() string {
	flags := []byte("----")
	if f.Negative {
		flags[0] = 'S'
	}
	if f.Zero {
		flags[1] = 'Z'
	}
	if f.Even {
		flags[2] = 'P'
	}
	if f.Carry {
		flags[3] = 'C'
	}
	return string(flags)
}
