// Package sound decodes the cabinet's discrete sound board. The program
// drives it through two output latches; each bit starts one effect.
package sound

import (
	"log"
	"sync"
)

// Effect identifies one sound circuit on the board
type Effect uint8

// Port 3 effects occupy bits 0-4, port 5 effects bits 0-4 of the second latch
const (
	UFO Effect = iota
	Shot
	PlayerDie
	InvaderDie
	ExtendedPlay
	Fleet1
	Fleet2
	Fleet3
	Fleet4
	UFOHit

	effectCount
)

var effectNames = [effectCount]string{
	"UFO", "Shot", "PlayerDie", "InvaderDie", "ExtendedPlay",
	"Fleet1", "Fleet2", "Fleet3", "Fleet4", "UFOHit",
}

func (e Effect) String() string {
	if e < effectCount {
		return effectNames[e]
	}
	return "Unknown"
}

// Effects returns every effect in board order
func Effects() []Effect {
	effects := make([]Effect, effectCount)
	for i := range effects {
		effects[i] = Effect(i)
	}
	return effects
}

// mask returns the latch bit for e; port5 reports which latch it lives on
func (e Effect) mask() (bit uint8, port5 bool) {
	if e < Fleet1 {
		return 1 << e, false
	}
	return 1 << (e - Fleet1), true
}

// Board tracks the two sound latches and counts effect triggers. Only a
// rising edge starts an effect; holding a bit keeps it playing.
type Board struct {
	mu       sync.RWMutex
	port3    uint8
	port5    uint8
	triggers [effectCount]uint64

	debugLogging bool
}

// NewBoard creates a silent board
func NewBoard() *Board {
	return &Board{}
}

// Update latches new port values and returns the effects that started
func (b *Board) Update(port3, port5 uint8) []Effect {
	b.mu.Lock()
	defer b.mu.Unlock()

	rising3 := port3 &^ b.port3
	rising5 := port5 &^ b.port5
	b.port3, b.port5 = port3, port5

	if rising3 == 0 && rising5 == 0 {
		return nil
	}

	var started []Effect
	for e := Effect(0); e < effectCount; e++ {
		bit, onPort5 := e.mask()
		rising := rising3
		if onPort5 {
			rising = rising5
		}
		if rising&bit == 0 {
			continue
		}
		b.triggers[e]++
		started = append(started, e)
		if b.debugLogging {
			log.Printf("[SOUND] %s started", e)
		}
	}
	return started
}

// Playing reports whether the latch bit for e is currently set
func (b *Board) Playing(e Effect) bool {
	if e >= effectCount {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	bit, onPort5 := e.mask()
	if onPort5 {
		return b.port5&bit != 0
	}
	return b.port3&bit != 0
}

// Triggers returns how many times e has started
func (b *Board) Triggers(e Effect) uint64 {
	if e >= effectCount {
		return 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.triggers[e]
}

// Reset silences the board and clears the counters
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.port3, b.port5 = 0, 0
	b.triggers = [effectCount]uint64{}
}

// EnableDebugLogging logs every effect start
func (b *Board) EnableDebugLogging(enable bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.debugLogging = enable
}
