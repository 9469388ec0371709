package debug

import (
	"io"

	"github.com/bradleyjkemp/memviz"

	"invaders/internal/cpu"
	"invaders/internal/system"
)

// MachineView is the part of the machine worth drawing as a graph. Memory
// is left out; sixty four thousand nodes render as noise.
type MachineView struct {
	Frame     uint64
	CPU       cpu.State
	Interrupt bool
	Sound     *SoundLatches
}

// SoundLatches holds the last values written to the sound ports
type SoundLatches struct {
	Port3 uint8
	Port5 uint8
}

// NewMachineView captures the current machine state
func NewMachineView(sys *system.System) *MachineView {
	sound1, sound2 := sys.CPU().SoundPorts()
	return &MachineView{
		Frame:     sys.Frame(),
		CPU:       sys.CPU().State(),
		Interrupt: sys.CPU().InterruptsEnabled(),
		Sound:     &SoundLatches{Port3: sound1, Port5: sound2},
	}
}

// WriteStateGraph writes the machine state as a Graphviz dot document
func WriteStateGraph(w io.Writer, sys *system.System) {
	memviz.Map(w, NewMachineView(sys))
}
