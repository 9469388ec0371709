// Package memory implements the flat 64KB address space of the 8080 board.
package memory

// Memory map constants
const (
	// Size is the full 16-bit address space
	Size = 0x10000

	// VideoStart is the first byte of the 1bpp frame buffer
	VideoStart = 0x2400
	// VideoEnd is one past the last byte of the frame buffer
	VideoEnd = 0x4000
	// VideoSize is the number of frame buffer bytes (224 columns * 32 bytes)
	VideoSize = VideoEnd - VideoStart
)

// RAM represents the machine's memory. ROM and RAM share one array;
// the game never writes into its own code so no write protection is modelled.
type RAM struct {
	data [Size]uint8
}

// New creates a RAM instance with image copied from address 0.
// Bytes beyond the address space are ignored, the remainder is zero.
func New(image []byte) *RAM {
	ram := &RAM{}
	copy(ram.data[:], image)
	return ram
}

// Read returns the byte at address
func (r *RAM) Read(address uint16) uint8 {
	return r.data[int(address)%Size]
}

// Write stores value at address
func (r *RAM) Write(address uint16, value uint8) {
	r.data[int(address)%Size] = value
}

// Bytes exposes the live buffer. Callers must treat it as read-only.
func (r *RAM) Bytes() []byte {
	return r.data[:]
}

// VideoRAM exposes the live frame buffer window. Callers must treat it as read-only.
func (r *RAM) VideoRAM() []byte {
	return r.data[VideoStart:VideoEnd]
}

// Snapshot returns a copy of the whole address space
func (r *RAM) Snapshot() []byte {
	snapshot := make([]byte, Size)
	copy(snapshot, r.data[:])
	return snapshot
}

// Restore overwrites memory with snapshot, zero-filling anything it doesn't cover
func (r *RAM) Restore(snapshot []byte) {
	n := copy(r.data[:], snapshot)
	for i := n; i < Size; i++ {
		r.data[i] = 0
	}
}
