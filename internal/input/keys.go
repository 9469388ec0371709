// Package input maps player actions onto the cabinet's input latches.
package input

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies one switch on the cabinet as a bit in a player's latch.
// Player 1 switches drive port 1, player 2 switches drive port 2.
type Key struct {
	Player uint8
	Bit    uint8
}

// Cabinet switches
var (
	InsertCoin       = Key{Player: 1, Bit: 0}
	SelectTwoPlayers = Key{Player: 1, Bit: 1}
	SelectOnePlayer  = Key{Player: 1, Bit: 2}
	Player1Shoot     = Key{Player: 1, Bit: 4}
	Player1Left      = Key{Player: 1, Bit: 5}
	Player1Right     = Key{Player: 1, Bit: 6}
	Player2Shoot     = Key{Player: 2, Bit: 4}
	Player2Left      = Key{Player: 2, Bit: 5}
	Player2Right     = Key{Player: 2, Bit: 6}
)

var keyNames = map[string]Key{
	"InsertCoin":       InsertCoin,
	"SelectTwoPlayers": SelectTwoPlayers,
	"SelectOnePlayer":  SelectOnePlayer,
	"Player1Shoot":     Player1Shoot,
	"Player1Left":      Player1Left,
	"Player1Right":     Player1Right,
	"Player2Shoot":     Player2Shoot,
	"Player2Left":      Player2Left,
	"Player2Right":     Player2Right,
}

// String returns the switch name, or player/bit for unnamed keys
func (k Key) String() string {
	for name, key := range keyNames {
		if key == k {
			return name
		}
	}
	return fmt.Sprintf("P%d.bit%d", k.Player, k.Bit)
}

// ParseKeyName resolves a switch name such as "Player1Shoot".
// Matching ignores case.
func ParseKeyName(name string) (Key, error) {
	for candidate, key := range keyNames {
		if strings.EqualFold(candidate, strings.TrimSpace(name)) {
			return key, nil
		}
	}
	return Key{}, fmt.Errorf("unknown key %q (valid: %s)", name, strings.Join(KeyNames(), ", "))
}

// KeyNames lists the switch names accepted by ParseKeyName
func KeyNames() []string {
	names := make([]string, 0, len(keyNames))
	for name := range keyNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
